// Package persist forwards conversation turns to the business backend's
// durable per-customer and per-general-user logs.
//
// Forwarding is strictly best-effort: losing a turn's durable copy must
// never interrupt the live conversation, so the bridge reports a typed
// Outcome instead of an error and never retries.
package persist

import (
	"context"
	"log/slog"
	"strings"

	"github.com/voxa-labs/voxa-agent/internal/identity"
	"github.com/voxa-labs/voxa-agent/internal/models"
)

// ConversationAppender is the slice of the backend client the bridge uses.
type ConversationAppender interface {
	AppendCustomerConversation(ctx context.Context, email, businessID string, turn models.Turn) error
	AppendGeneralConversation(ctx context.Context, email string, turn models.Turn) error
}

// Bridge routes turns to the durable backend log for identified callers.
type Bridge struct {
	registry *identity.Registry
	backend  ConversationAppender
}

// NewBridge creates a persistence bridge.
func NewBridge(registry *identity.Registry, backend ConversationAppender) *Bridge {
	return &Bridge{registry: registry, backend: backend}
}

// Persist forwards one turn for the given room. Identity resolution prefers
// the registry entry for the room and falls back to the normalized session
// metadata. Without a usable email (must contain '@') the turn is skipped,
// though it still lives in the local history. Backend failures degrade silently.
func (b *Bridge) Persist(ctx context.Context, room string, meta models.SessionMeta, turnRole, content string) models.Outcome {
	role := meta.Role
	email := meta.Email
	businessID := meta.BusinessID
	if entry, ok := b.registry.Get(room); ok {
		role = entry.Role
		email = entry.Email
		if entry.BusinessID != "" {
			businessID = entry.BusinessID
		}
	}

	if !strings.Contains(email, "@") {
		slog.Debug("persist.Bridge: no usable email, skipping", "room", room)
		return models.OutcomeSkipped
	}

	turn := models.Turn{Role: turnRole, Content: content}
	var err error
	switch role {
	case models.CallerCustomer:
		if businessID == "" {
			slog.Debug("persist.Bridge: customer turn without business id, skipping", "room", room)
			return models.OutcomeSkipped
		}
		err = b.backend.AppendCustomerConversation(ctx, email, businessID, turn)
	case models.CallerGeneral:
		err = b.backend.AppendGeneralConversation(ctx, email, turn)
	default:
		// Owner sessions have their own dashboard history; nothing to forward.
		return models.OutcomeSkipped
	}

	if err != nil {
		slog.Debug("persist.Bridge: forward failed", "room", room, "role", role, "error", err)
		return models.OutcomeDegraded
	}
	return models.OutcomeOK
}
