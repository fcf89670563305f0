package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/voxa-labs/voxa-agent/internal/genai"
	"github.com/voxa-labs/voxa-agent/internal/history"
	"github.com/voxa-labs/voxa-agent/internal/models"
)

type mockGenAI struct {
	response     string
	err          error
	lastMessages []openai.ChatCompletionMessageParamUnion
}

func (m *mockGenAI) GeneratePrompt(ctx context.Context, system, user string) (string, error) {
	return m.response, m.err
}

func (m *mockGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	m.lastMessages = messages
	return m.response, m.err
}

func (m *mockGenAI) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	return &genai.ToolCallResponse{Content: m.response}, m.err
}

func TestDeepReasoningIncludesRecentContext(t *testing.T) {
	ctx := context.Background()
	hist := history.NewStore()
	hist.Append(ctx, "room-1", models.RoleUser, "what is a goroutine?")
	hist.Append(ctx, "room-1", models.RoleAssistant, "a lightweight thread")

	mock := &mockGenAI{response: "Detailed analysis."}
	tool := NewDeepReasoningTool(mock, hist, "room-1")

	out, err := tool.Execute(ctx, map[string]interface{}{"query": "compare with threads"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Detailed analysis." {
		t.Errorf("expected model response, got %q", out)
	}
	// system + 2 history turns + query
	if len(mock.lastMessages) != 4 {
		t.Errorf("expected 4 messages, got %d", len(mock.lastMessages))
	}
}

func TestDeepReasoningRecordsBothSides(t *testing.T) {
	ctx := context.Background()
	hist := history.NewStore()
	mock := &mockGenAI{response: "Answer."}
	tool := NewDeepReasoningTool(mock, hist, "room-1")

	if _, err := tool.Execute(ctx, map[string]interface{}{"query": "why?"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	turns := hist.Get(ctx, "room-1")
	if len(turns) != 2 {
		t.Fatalf("expected query and answer recorded, got %d turns", len(turns))
	}
	if turns[0].Role != models.RoleUser || turns[1].Role != models.RoleAssistant {
		t.Errorf("unexpected roles: %+v", turns)
	}
}

func TestDeepReasoningFailureDegradesToText(t *testing.T) {
	ctx := context.Background()
	hist := history.NewStore()
	mock := &mockGenAI{err: errors.New("model offline")}
	tool := NewDeepReasoningTool(mock, hist, "room-1")

	out, err := tool.Execute(ctx, map[string]interface{}{"query": "why?"})
	if err != nil {
		t.Fatalf("reasoning failures must degrade to text: %v", err)
	}
	if !strings.Contains(out, "error while processing") {
		t.Errorf("expected degradation message, got %q", out)
	}
	if len(hist.Get(ctx, "room-1")) != 0 {
		t.Error("failed escalations must not be recorded")
	}
}
