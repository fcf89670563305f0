package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/voxa-labs/voxa-agent/internal/genai"
	"github.com/voxa-labs/voxa-agent/internal/history"
	"github.com/voxa-labs/voxa-agent/internal/models"
	"github.com/voxa-labs/voxa-agent/internal/prompts"
)

// reasoningContextTurns is how many recent turns the escalated model sees.
const reasoningContextTurns = 10

// DeepReasoningTool escalates complex queries to a dedicated reasoning
// completion with recent conversation context. Both sides of the exchange are
// recorded back into the room history.
type DeepReasoningTool struct {
	genai   genai.ClientInterface
	history *history.Store
	room    string
}

// NewDeepReasoningTool creates a reasoning tool bound to one room.
func NewDeepReasoningTool(client genai.ClientInterface, hist *history.Store, room string) *DeepReasoningTool {
	return &DeepReasoningTool{genai: client, history: hist, room: room}
}

// GetToolDefinition returns the OpenAI tool definition for deep reasoning.
func (dt *DeepReasoningTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name:        "deep_reasoning",
			Description: openai.String("Use advanced reasoning for complex analysis, data interpretation, or multi-step problem solving. Use this for queries that require deep analysis, logic, or detailed explanations, or to synthesize information from multiple sources (like search results) into a coherent answer."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "The question or problem that requires advanced reasoning",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// Execute runs the escalated completion with recent room context.
func (dt *DeepReasoningTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query := stringArg(args, "query")
	slog.Info("DeepReasoningTool.Execute: escalating query", "room", dt.room, "queryLength", len(query))

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompts.DeepReasoningInstruction),
	}
	turns := dt.history.Get(ctx, dt.room)
	if len(turns) > reasoningContextTurns {
		turns = turns[len(turns)-reasoningContextTurns:]
	}
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(query))

	response, err := dt.genai.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("DeepReasoningTool.Execute: reasoning failed", "room", dt.room, "error", err)
		return fmt.Sprintf("I encountered an error while processing that request: %v", err), nil
	}

	dt.history.Append(ctx, dt.room, models.RoleUser, query)
	dt.history.Append(ctx, dt.room, models.RoleAssistant, response)
	slog.Info("DeepReasoningTool.Execute: reasoning complete", "room", dt.room, "responseLength", len(response))
	return response, nil
}
