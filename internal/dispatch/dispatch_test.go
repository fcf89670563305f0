package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/voxa-labs/voxa-agent/internal/transport"
)

// fakeEngine implements Engine with configurable behavior.
type fakeEngine struct {
	err   error
	delay time.Duration
	calls int
}

func (e *fakeEngine) GenerateReply(ctx context.Context, instructions string) error {
	e.calls++
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return e.err
}

func decodeAgentError(t *testing.T, payload []byte) (string, string) {
	t.Helper()
	var msg struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("published payload is not valid JSON: %v", err)
	}
	return msg.Type, msg.Message
}

func TestSafeReplySuccess(t *testing.T) {
	sess := transport.NewFakeSession("room-1")
	d := NewDispatcher(&fakeEngine{})

	if ok := d.SafeReply(context.Background(), sess, "say hello"); !ok {
		t.Error("expected true on successful reply")
	}
	if n := len(sess.Published()); n != 0 {
		t.Errorf("expected no error notifications on success, got %d", n)
	}
}

func TestSafeReplyEngineError(t *testing.T) {
	sess := transport.NewFakeSession("room-1")
	d := NewDispatcher(&fakeEngine{err: errors.New("model unavailable")})

	if ok := d.SafeReply(context.Background(), sess, "say hello"); ok {
		t.Error("expected false on engine failure")
	}
	published := sess.Published()
	if len(published) != 1 {
		t.Fatalf("expected one agent_error notification, got %d", len(published))
	}
	typ, msg := decodeAgentError(t, published[0])
	if typ != "agent_error" {
		t.Errorf("expected type agent_error, got %q", typ)
	}
	if msg != "Agent failed to generate reply. Please try again later." {
		t.Errorf("unexpected error message %q", msg)
	}
}

func TestSafeReplyTimeout(t *testing.T) {
	sess := transport.NewFakeSession("room-1")
	d := NewDispatcher(&fakeEngine{delay: time.Second}, WithTimeout(20*time.Millisecond))

	if ok := d.SafeReply(context.Background(), sess, "say hello"); ok {
		t.Error("expected false on timeout")
	}
	published := sess.Published()
	if len(published) != 1 {
		t.Fatalf("expected one agent_error notification, got %d", len(published))
	}
	typ, msg := decodeAgentError(t, published[0])
	if typ != "agent_error" {
		t.Errorf("expected type agent_error, got %q", typ)
	}
	if msg != "Reply generation timed out. Please try again." {
		t.Errorf("unexpected timeout message %q", msg)
	}
}

func TestSafeReplyNilPublisher(t *testing.T) {
	d := NewDispatcher(&fakeEngine{err: errors.New("boom")})
	// Must not panic without a publisher.
	if ok := d.SafeReply(context.Background(), nil, "say hello"); ok {
		t.Error("expected false on engine failure")
	}
}
