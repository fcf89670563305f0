package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/voxa-labs/voxa-agent/internal/agent/tools"
	"github.com/voxa-labs/voxa-agent/internal/genai"
	"github.com/voxa-labs/voxa-agent/internal/history"
	"github.com/voxa-labs/voxa-agent/internal/transport"
)

// scriptedGenAI returns queued tool-call responses in order.
type scriptedGenAI struct {
	responses []*genai.ToolCallResponse
	errs      []error
	calls     int
}

func (s *scriptedGenAI) GeneratePrompt(ctx context.Context, system, user string) (string, error) {
	return "", nil
}

func (s *scriptedGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return "", nil
}

func (s *scriptedGenAI) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, defs []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return &genai.ToolCallResponse{Content: "fallthrough"}, nil
}

// stubTool records executions and returns a fixed result.
type stubTool struct {
	name   string
	result string
	calls  int
}

func (s *stubTool) GetToolDefinition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: "function",
		Function: shared.FunctionDefinitionParam{
			Name: s.name,
			Parameters: shared.FunctionParameters{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	s.calls++
	return s.result, nil
}

func decodeReplies(t *testing.T, sess *transport.FakeSession) []string {
	t.Helper()
	var out []string
	for _, payload := range sess.Published() {
		var msg struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("malformed payload: %s", payload)
		}
		if msg.Type == "agent_reply" {
			out = append(out, msg.Message)
		}
	}
	return out
}

func TestGenerateReplyPublishesContent(t *testing.T) {
	sess := transport.NewFakeSession("room-1")
	mock := &scriptedGenAI{responses: []*genai.ToolCallResponse{{Content: "Hello there"}}}
	var seen []string
	engine := NewReplyEngine(mock, tools.NewRegistry(), history.NewStore(), sess, "room-1", "base", func(content string) {
		seen = append(seen, content)
	})

	if err := engine.GenerateReply(context.Background(), "greet"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	replies := decodeReplies(t, sess)
	if len(replies) != 1 || replies[0] != "Hello there" {
		t.Errorf("expected published reply, got %v", replies)
	}
	if len(seen) != 1 || seen[0] != "Hello there" {
		t.Errorf("expected onReply callback, got %v", seen)
	}
}

func TestGenerateReplyExecutesToolCalls(t *testing.T) {
	sess := transport.NewFakeSession("room-1")
	tool := &stubTool{name: "get_weather", result: "Toronto: sunny"}
	reg := tools.NewRegistry()
	reg.Register(tool)

	mock := &scriptedGenAI{responses: []*genai.ToolCallResponse{
		{ToolCalls: []genai.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: genai.FunctionCall{
				Name:      "get_weather",
				Arguments: json.RawMessage(`{"city":"Toronto"}`),
			},
		}}},
		{Content: "It's sunny in Toronto."},
	}}

	engine := NewReplyEngine(mock, reg, history.NewStore(), sess, "room-1", "base", nil)
	if err := engine.GenerateReply(context.Background(), "weather?"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tool.calls != 1 {
		t.Errorf("expected one tool execution, got %d", tool.calls)
	}
	replies := decodeReplies(t, sess)
	if len(replies) != 1 || replies[0] != "It's sunny in Toronto." {
		t.Errorf("expected final reply, got %v", replies)
	}
	if mock.calls != 2 {
		t.Errorf("expected follow-up completion, got %d calls", mock.calls)
	}
}

func TestGenerateReplyErrorPropagates(t *testing.T) {
	sess := transport.NewFakeSession("room-1")
	mock := &scriptedGenAI{errs: []error{errors.New("model offline")}}
	engine := NewReplyEngine(mock, tools.NewRegistry(), history.NewStore(), sess, "room-1", "base", nil)

	if err := engine.GenerateReply(context.Background(), "hi"); err == nil {
		t.Fatal("expected error when no tool output exists")
	}
	if len(sess.Published()) != 0 {
		t.Error("nothing must be published on failure")
	}
}

func TestGenerateReplyFallsBackToToolOutput(t *testing.T) {
	sess := transport.NewFakeSession("room-1")
	tool := &stubTool{name: "get_weather", result: "Toronto: sunny"}
	reg := tools.NewRegistry()
	reg.Register(tool)

	mock := &scriptedGenAI{
		responses: []*genai.ToolCallResponse{
			{ToolCalls: []genai.ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: genai.FunctionCall{Name: "get_weather", Arguments: json.RawMessage(`{}`)},
			}}},
		},
		errs: []error{nil, errors.New("model offline")},
	}

	engine := NewReplyEngine(mock, reg, history.NewStore(), sess, "room-1", "base", nil)
	if err := engine.GenerateReply(context.Background(), "weather?"); err != nil {
		t.Fatalf("expected fallback success, got %v", err)
	}
	replies := decodeReplies(t, sess)
	if len(replies) != 1 || !strings.Contains(replies[0], "Toronto: sunny") {
		t.Errorf("expected tool output fallback, got %v", replies)
	}
}
