// Package tools implements the LLM-callable tools available to the reply
// engine: weather, web search, email, CRM access, tickets, meetings,
// analytics, business context, and deep reasoning escalation.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
)

// Tool is a single LLM-callable function.
type Tool interface {
	// GetToolDefinition returns the OpenAI tool definition.
	GetToolDefinition() openai.ChatCompletionToolParam
	// Execute runs the tool with the decoded arguments and returns a
	// plain-text result for the model.
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry holds the tools available to one session.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its definition name. Later registrations with
// the same name replace earlier ones.
func (r *Registry) Register(t Tool) {
	name := t.GetToolDefinition().Function.Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions returns the tool definitions in registration order.
func (r *Registry) Definitions() []openai.ChatCompletionToolParam {
	defs := make([]openai.ChatCompletionToolParam, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].GetToolDefinition())
	}
	return defs
}

// Execute dispatches a named tool call. Unknown names return an error string
// rather than failing the conversation.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		slog.Warn("Registry.Execute: unknown tool requested", "tool", name)
		return fmt.Sprintf("Unknown tool: %s", name), nil
	}
	return t.Execute(ctx, args)
}

// stringArg extracts a string argument, tolerating absence.
func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg extracts an integer argument; JSON numbers decode as float64.
func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}
