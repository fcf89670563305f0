package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"

	"github.com/voxa-labs/voxa-agent/internal/agent/tools"
	"github.com/voxa-labs/voxa-agent/internal/genai"
	"github.com/voxa-labs/voxa-agent/internal/history"
	"github.com/voxa-labs/voxa-agent/internal/models"
	"github.com/voxa-labs/voxa-agent/internal/transport"
)

// maxToolRounds bounds how many tool-execution iterations one reply may take.
const maxToolRounds = 5

// replyPayload is the data-channel envelope for generated replies.
type replyPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ReplyEngine generates one reply per instruction: it runs the completion
// with the session's tools, executes requested tool calls, and publishes the
// final text to the room's data channel.
type ReplyEngine struct {
	genai       genai.ClientInterface
	registry    *tools.Registry
	history     *history.Store
	pub         transport.DataPublisher
	room        string
	instruction string
	// onReply receives each successfully published reply for bookkeeping
	// (history append, persistence, archiving).
	onReply func(content string)
}

// NewReplyEngine creates an engine bound to one session.
func NewReplyEngine(client genai.ClientInterface, registry *tools.Registry, hist *history.Store, pub transport.DataPublisher, room, systemInstruction string, onReply func(content string)) *ReplyEngine {
	return &ReplyEngine{
		genai:       client,
		registry:    registry,
		history:     hist,
		pub:         pub,
		room:        room,
		instruction: systemInstruction,
		onReply:     onReply,
	}
}

// GenerateReply produces and publishes a reply guided by the given
// instructions. It satisfies the dispatcher's engine contract.
func (e *ReplyEngine) GenerateReply(ctx context.Context, instructions string) error {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(e.instruction),
	}
	for _, turn := range e.history.Get(ctx, e.room) {
		switch turn.Role {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.SystemMessage(instructions))

	defs := e.registry.Definitions()
	var lastToolResults []string

	for round := 0; round < maxToolRounds; round++ {
		resp, err := e.genai.GenerateWithTools(ctx, messages, defs)
		if err != nil {
			// If tools already ran, degrade to their joined output rather
			// than dropping the turn.
			if len(lastToolResults) > 0 {
				slog.Warn("ReplyEngine.GenerateReply: final completion failed, falling back to tool output", "room", e.room, "error", err)
				return e.publish(ctx, joinResults(lastToolResults))
			}
			return fmt.Errorf("generate reply: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			if resp.Content == "" {
				return fmt.Errorf("generate reply: empty completion")
			}
			return e.publish(ctx, resp.Content)
		}

		messages = append(messages, assistantToolCallMessage(resp))
		lastToolResults = lastToolResults[:0]
		for _, toolCall := range resp.ToolCalls {
			result := e.executeToolCall(ctx, toolCall)
			lastToolResults = append(lastToolResults, result)
			messages = append(messages, openai.ToolMessage(result, toolCall.ID))
		}
	}

	slog.Warn("ReplyEngine.GenerateReply: tool round budget exhausted", "room", e.room)
	if len(lastToolResults) > 0 {
		return e.publish(ctx, joinResults(lastToolResults))
	}
	return fmt.Errorf("generate reply: tool round budget exhausted")
}

// executeToolCall runs one requested tool and returns its text result. Tool
// failures become result text so the model can recover conversationally.
func (e *ReplyEngine) executeToolCall(ctx context.Context, toolCall genai.ToolCall) string {
	slog.Info("ReplyEngine.executeToolCall: executing tool", "room", e.room, "tool", toolCall.Function.Name, "toolCallID", toolCall.ID)
	var args map[string]interface{}
	if len(toolCall.Function.Arguments) > 0 {
		if err := json.Unmarshal(toolCall.Function.Arguments, &args); err != nil {
			slog.Warn("ReplyEngine.executeToolCall: malformed tool arguments", "room", e.room, "tool", toolCall.Function.Name, "error", err)
			return fmt.Sprintf("Invalid arguments for tool '%s'", toolCall.Function.Name)
		}
	}
	result, err := e.registry.Execute(ctx, toolCall.Function.Name, args)
	if err != nil {
		slog.Error("ReplyEngine.executeToolCall: tool execution failed", "room", e.room, "tool", toolCall.Function.Name, "error", err)
		return fmt.Sprintf("Tool '%s' failed: %v", toolCall.Function.Name, err)
	}
	if result == "" {
		result = "Tool executed successfully"
	}
	return result
}

// publish sends the reply over the data channel and runs the bookkeeping
// callback.
func (e *ReplyEngine) publish(ctx context.Context, content string) error {
	payload, err := json.Marshal(replyPayload{Type: "agent_reply", Message: content})
	if err != nil {
		return fmt.Errorf("marshal reply payload: %w", err)
	}
	if e.pub != nil {
		if err := e.pub.PublishData(ctx, payload, true); err != nil {
			return fmt.Errorf("publish reply: %w", err)
		}
	}
	if e.onReply != nil {
		e.onReply(content)
	}
	slog.Debug("ReplyEngine.publish: reply published", "room", e.room, "length", len(content))
	return nil
}

// assistantToolCallMessage rebuilds the assistant message carrying the tool
// calls so the follow-up completion sees them before the tool results.
func assistantToolCallMessage(resp *genai.ToolCallResponse) openai.ChatCompletionMessageParamUnion {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, toolCall := range resp.ToolCalls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   toolCall.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      toolCall.Function.Name,
				Arguments: string(toolCall.Function.Arguments),
			},
		})
	}
	assistant := openai.ChatCompletionAssistantMessageParam{
		Content: openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: param.NewOpt(resp.Content),
		},
		ToolCalls: toolCalls,
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func joinResults(results []string) string {
	out := ""
	for i, r := range results {
		if i > 0 {
			out += "\n"
		}
		out += r
	}
	return out
}
