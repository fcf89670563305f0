// Package agent runs the per-room session: metadata normalization, system
// instruction assembly, onboarding for unidentified callers, and the inbound
// text loop that drives reply generation.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/voxa-labs/voxa-agent/internal/agent/tools"
	"github.com/voxa-labs/voxa-agent/internal/archive"
	"github.com/voxa-labs/voxa-agent/internal/dispatch"
	"github.com/voxa-labs/voxa-agent/internal/genai"
	"github.com/voxa-labs/voxa-agent/internal/history"
	"github.com/voxa-labs/voxa-agent/internal/identity"
	"github.com/voxa-labs/voxa-agent/internal/models"
	"github.com/voxa-labs/voxa-agent/internal/onboarding"
	"github.com/voxa-labs/voxa-agent/internal/persist"
	"github.com/voxa-labs/voxa-agent/internal/prompts"
	"github.com/voxa-labs/voxa-agent/internal/transport"
)

// respondInstruction guides the engine for ordinary conversational turns.
const respondInstruction = "Respond helpfully to the user's most recent message."

// Backend is the slice of the business backend the orchestrator and its
// tools need. backend.Client satisfies it.
type Backend interface {
	tools.CRMService
	tools.TicketService
	tools.MeetingService
	tools.BusinessService
	tools.CredentialsProvider
	onboarding.Finalizer
	persist.ConversationAppender
	GetOwnerProfile(ctx context.Context, key string) (models.OwnerProfile, error)
}

// Orchestrator wires one session's collaborators and runs its lifecycle.
type Orchestrator struct {
	history       *history.Store
	registry      *identity.Registry
	backend       Backend
	genai         genai.ClientInterface
	archive       archive.Store
	bridge        *persist.Bridge
	replyTimeout  time.Duration
	collectorOpts []onboarding.Option
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithReplyTimeout overrides the reply dispatch deadline.
func WithReplyTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.replyTimeout = d }
}

// WithArchive attaches a transcript archive. Without one, turns are only
// kept in the bounded in-memory history and the remote conversation log.
func WithArchive(store archive.Store) Option {
	return func(o *Orchestrator) { o.archive = store }
}

// WithCollectorOptions forwards tuning options to the onboarding collector.
func WithCollectorOptions(opts ...onboarding.Option) Option {
	return func(o *Orchestrator) { o.collectorOpts = opts }
}

// NewOrchestrator creates an orchestrator over shared room-independent state.
func NewOrchestrator(hist *history.Store, registry *identity.Registry, backendClient Backend, genaiClient genai.ClientInterface, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		history:      hist,
		registry:     registry,
		backend:      backendClient,
		genai:        genaiClient,
		bridge:       persist.NewBridge(registry, backendClient),
		replyTimeout: dispatch.DefaultReplyTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives one session to completion: greeting, onboarding when the caller
// is unidentified, then the conversational loop. It returns when the
// transport closes or the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context, sess transport.Session) error {
	room := sess.RoomName()
	metaFn := func() models.SessionMeta {
		return NormalizeMetadata(sess.Metadata(), sess.ParticipantAttributes(), room)
	}
	meta := metaFn()
	slog.Info("Orchestrator.Run: session starting", "room", room, "role", meta.Role, "businessID", meta.BusinessID)

	biz, owner := o.resolveContext(ctx, meta)
	instruction := prompts.ForSession(meta, biz, owner)

	registry := o.buildToolRegistry(room)
	engine := NewReplyEngine(o.genai, registry, o.history, sess, room, instruction, func(content string) {
		o.history.Append(ctx, room, models.RoleAssistant, content)
		o.bridge.Persist(ctx, room, metaFn(), models.RoleAssistant, content)
		o.archiveTurn(ctx, room, models.RoleAssistant, content)
	})
	dispatcher := dispatch.NewDispatcher(engine, dispatch.WithTimeout(o.replyTimeout))

	// The ingest pump appends every inbound turn immediately so the
	// onboarding collector sees answers while it owns the conversation.
	// Replies are suppressed until collection finishes.
	var collecting atomic.Bool
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sess.TextMessages():
				if !ok {
					return
				}
				o.ingestUserTurn(ctx, room, metaFn(), msg.Text)
				if !collecting.Load() {
					dispatcher.SafeReply(ctx, sess, respondInstruction)
				}
			}
		}
	}()

	dispatcher.SafeReply(ctx, sess, prompts.SessionInstruction)

	if o.needsOnboarding(room, meta.Role) {
		collecting.Store(true)
		_, err := onboarding.NewCollector(o.history, dispatcher, o.backend, o.registry, o.collectorOpts...).
			Collect(ctx, room, sess, metaFn)
		collecting.Store(false)
		switch {
		case err == nil:
			slog.Info("Orchestrator.Run: onboarding complete", "room", room)
		case errors.Is(err, onboarding.ErrSessionEnded):
			return nil
		default:
			// Collection failure degrades to generic support, never kills
			// the room.
			slog.Warn("Orchestrator.Run: onboarding failed, continuing in general support mode", "room", room, "error", err)
		}
	}

	select {
	case <-ctx.Done():
		<-pumpDone
		return ctx.Err()
	case <-pumpDone:
		slog.Info("Orchestrator.Run: session ended", "room", room)
		return nil
	}
}

// resolveContext fetches business and owner context best-effort.
func (o *Orchestrator) resolveContext(ctx context.Context, meta models.SessionMeta) (*models.BusinessContext, *models.OwnerProfile) {
	var biz *models.BusinessContext
	if key := firstNonEmpty(meta.BusinessID, meta.Slug); key != "" {
		if b, err := o.backend.GetBusinessContext(ctx, key); err != nil {
			slog.Warn("Orchestrator.resolveContext: business context unavailable", "key", key, "error", err)
		} else {
			biz = &b
		}
	}
	var owner *models.OwnerProfile
	if meta.Role == models.CallerOwner {
		if key := firstNonEmpty(meta.Email, meta.Slug, meta.BusinessID); key != "" {
			if p, err := o.backend.GetOwnerProfile(ctx, key); err != nil {
				slog.Warn("Orchestrator.resolveContext: owner profile unavailable", "key", key, "error", err)
			} else {
				owner = &p
			}
		}
	}
	return biz, owner
}

// buildToolRegistry assembles the session's tool set.
func (o *Orchestrator) buildToolRegistry(room string) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(tools.NewWeatherTool())
	reg.Register(tools.NewSearchTool())
	reg.Register(tools.NewEmailTool(o.backend))
	reg.Register(tools.NewCRMLookupTool(o.backend))
	reg.Register(tools.NewCustomerHistoryTool(o.backend))
	reg.Register(tools.NewManageCustomerTool(o.backend))
	reg.Register(tools.NewCreateTicketTool(o.backend))
	reg.Register(tools.NewUpdateTicketTool(o.backend))
	reg.Register(tools.NewListTicketsTool(o.backend))
	reg.Register(tools.NewScheduleMeetingTool(o.backend))
	reg.Register(tools.NewBusinessContextTool(o.backend))
	reg.Register(tools.NewAnalyticsTool(o.backend))
	reg.Register(tools.NewDeepReasoningTool(o.genai, o.history, room))
	return reg
}

// needsOnboarding reports whether the caller still has to identify.
func (o *Orchestrator) needsOnboarding(room string, role models.CallerRole) bool {
	if role != models.CallerCustomer && role != models.CallerGeneral {
		return false
	}
	_, identified := o.registry.Get(room)
	return !identified
}

// ingestUserTurn records one inbound user turn across the history tiers.
func (o *Orchestrator) ingestUserTurn(ctx context.Context, room string, meta models.SessionMeta, text string) {
	o.history.Append(ctx, room, models.RoleUser, text)
	o.bridge.Persist(ctx, room, meta, models.RoleUser, text)
	o.archiveTurn(ctx, room, models.RoleUser, text)
}

// archiveTurn writes to the transcript archive best-effort.
func (o *Orchestrator) archiveTurn(ctx context.Context, room, role, content string) {
	if o.archive == nil {
		return
	}
	if err := o.archive.SaveTurn(ctx, models.ArchivedTurn{RoomName: room, Role: role, Content: content}); err != nil {
		slog.Warn("Orchestrator.archiveTurn: archive write failed", "room", room, "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
