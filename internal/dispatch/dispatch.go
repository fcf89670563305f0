// Package dispatch provides the uniform error boundary between the dialogue
// engine and every call site that asks the assistant to speak.
//
// SafeReply never returns an error: failures are logged, reported to the
// caller's UI through a best-effort agent_error data message, and collapsed
// into a boolean so the conversation loop always continues.
package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/voxa-labs/voxa-agent/internal/transport"
)

// DefaultReplyTimeout bounds a single reply generation.
const DefaultReplyTimeout = 30 * time.Second

// Engine generates a spoken or text reply from instructions. The operation
// has no built-in timeout; the dispatcher supplies one.
type Engine interface {
	GenerateReply(ctx context.Context, instructions string) error
}

// agentError is the structured notification published on the data channel
// when reply generation fails.
type agentError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Dispatcher wraps an Engine with timeout and failure-reporting behavior.
type Dispatcher struct {
	engine  Engine
	timeout time.Duration
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithTimeout overrides the reply deadline.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) { dp.timeout = d }
}

// NewDispatcher creates a dispatcher around the given engine.
func NewDispatcher(engine Engine, opts ...Option) *Dispatcher {
	d := &Dispatcher{engine: engine, timeout: DefaultReplyTimeout}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SafeReply asks the engine to speak the given instructions under the
// configured deadline. On timeout or engine failure it publishes an
// agent_error notification (best-effort) and returns false; on success it
// returns true. It never panics or returns an error.
func (d *Dispatcher) SafeReply(ctx context.Context, pub transport.DataPublisher, instructions string) bool {
	replyCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.engine.GenerateReply(replyCtx, instructions)
	}()

	select {
	case err := <-done:
		if err != nil {
			slog.Error("dispatch.SafeReply: reply generation failed", "error", err)
			d.notifyError(ctx, pub, "Agent failed to generate reply. Please try again later.")
			return false
		}
		return true
	case <-replyCtx.Done():
		// The engine goroutine is abandoned; cancellation of in-flight work
		// is best-effort via the context it was handed.
		slog.Warn("dispatch.SafeReply: reply generation timed out", "timeout", d.timeout)
		d.notifyError(ctx, pub, "Reply generation timed out. Please try again.")
		return false
	}
}

// notifyError publishes an agent_error message on the data channel. Publish
// failures are logged and dropped.
func (d *Dispatcher) notifyError(ctx context.Context, pub transport.DataPublisher, message string) {
	if pub == nil {
		return
	}
	payload, err := json.Marshal(agentError{Type: "agent_error", Message: message})
	if err != nil {
		slog.Debug("dispatch.notifyError: failed to encode notification", "error", err)
		return
	}
	if err := pub.PublishData(ctx, payload, true); err != nil {
		slog.Debug("dispatch.notifyError: failed to publish notification", "error", err)
	}
}
