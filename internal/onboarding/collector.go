// Package onboarding implements the sequential, validated identity
// collection flow for unidentified callers.
//
// Fields are collected in a fixed order (name, email, then phone for
// customers or location for general callers). Each field is prompted
// conversationally, validated against its own rule, and retried on invalid
// or missing answers. Once every field validates, the identity is persisted
// downstream exactly once and cached in the identity registry.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voxa-labs/voxa-agent/internal/history"
	"github.com/voxa-labs/voxa-agent/internal/identity"
	"github.com/voxa-labs/voxa-agent/internal/models"
	"github.com/voxa-labs/voxa-agent/internal/transport"
)

// Field identifies one slot in the collection flow.
type Field string

const (
	FieldName     Field = "name"
	FieldEmail    Field = "email"
	FieldPhone    Field = "phone"
	FieldLocation Field = "location"
)

// Wait tuning. The collector waits up to WaitAttempts * WaitInterval for an
// answer before re-issuing the prompt.
const (
	DefaultWaitInterval = 500 * time.Millisecond
	DefaultWaitAttempts = 30
	// DefaultMaxCycles bounds how many full prompt/reject rounds a single
	// field tolerates before the collector gives up on the session. The
	// production behavior re-prompted forever; an explicit bound keeps a
	// silent or adversarial caller from pinning the room.
	DefaultMaxCycles = 8
)

// Collection failure modes.
var (
	// ErrCollectionFailed means every field validated but the downstream
	// upsert did not yield a persistent identifier.
	ErrCollectionFailed = errors.New("onboarding: identity collection failed")
	// ErrCollectionAbandoned means a field exhausted its retry budget.
	ErrCollectionAbandoned = errors.New("onboarding: identity collection abandoned")
	// ErrSessionEnded means the room context was cancelled mid-collection.
	ErrSessionEnded = errors.New("onboarding: session ended during collection")
)

// Replier dispatches a conversational prompt; dispatch.Dispatcher satisfies
// it.
type Replier interface {
	SafeReply(ctx context.Context, pub transport.DataPublisher, instructions string) bool
}

// Finalizer persists the collected identity; backend.Client satisfies it.
type Finalizer interface {
	UpsertCustomer(ctx context.Context, cust models.Customer) (models.Customer, error)
	RegisterGeneralUser(ctx context.Context, u models.GeneralUser) (models.GeneralUser, error)
}

// MetaProvider returns the current normalized session metadata; the frontend
// can update room metadata mid-call (e.g. after a login), which short-
// circuits the corresponding field.
type MetaProvider func() models.SessionMeta

// Result is the outcome of a completed collection.
type Result struct {
	Name     string
	Email    string
	Phone    string
	Location string
	// Customer is set for customer-role collections.
	Customer *models.Customer
	// GeneralUser is set for general-role collections.
	GeneralUser *models.GeneralUser
}

// slotSpec couples a field with its prompt and validator.
type slotSpec struct {
	field    Field
	prompt   string
	validate func(string) bool
}

func customerSlots() []slotSpec {
	return []slotSpec{
		{FieldName, "Before we continue, could I get your full name?", ValidName},
		{FieldEmail, "Thanks! What's the best email address to reach you at?", ValidEmail},
		{FieldPhone, "Got it. And what's a good phone number for you?", ValidPhone},
	}
}

func generalSlots() []slotSpec {
	return []slotSpec{
		{FieldName, "Before we continue, could I get your full name?", ValidName},
		{FieldEmail, "Thanks! What's the best email address to reach you at?", ValidEmail},
		{FieldLocation, "And where are you located?", ValidLocation},
	}
}

// Collector runs the identity collection flow for one session at a time.
type Collector struct {
	history      *history.Store
	replier      Replier
	finalizer    Finalizer
	registry     *identity.Registry
	waitInterval time.Duration
	waitAttempts int
	maxCycles    int
}

// Option configures the collector.
type Option func(*Collector)

// WithWaitInterval overrides the answer polling granularity.
func WithWaitInterval(d time.Duration) Option {
	return func(c *Collector) { c.waitInterval = d }
}

// WithWaitAttempts overrides the per-prompt wait budget.
func WithWaitAttempts(n int) Option {
	return func(c *Collector) { c.waitAttempts = n }
}

// WithMaxCycles overrides the per-field abandonment bound.
func WithMaxCycles(n int) Option {
	return func(c *Collector) { c.maxCycles = n }
}

// NewCollector creates a collector with the given collaborators.
func NewCollector(hist *history.Store, replier Replier, finalizer Finalizer, registry *identity.Registry, opts ...Option) *Collector {
	c := &Collector{
		history:      hist,
		replier:      replier,
		finalizer:    finalizer,
		registry:     registry,
		waitInterval: DefaultWaitInterval,
		waitAttempts: DefaultWaitAttempts,
		maxCycles:    DefaultMaxCycles,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect gathers the identity fields for the room's caller, finalizes them
// downstream, and records the resolved identity in the registry. The meta
// provider is consulted for live metadata short-circuits; pub receives the
// conversational prompts.
func (c *Collector) Collect(ctx context.Context, room string, pub transport.DataPublisher, meta MetaProvider) (*Result, error) {
	m := meta()
	role := m.Role
	if role != models.CallerCustomer && role != models.CallerGeneral {
		return nil, fmt.Errorf("onboarding: unsupported role %q", role)
	}

	slots := customerSlots()
	if role == models.CallerGeneral {
		slots = generalSlots()
	}

	fields := make([]Field, len(slots))
	for i, s := range slots {
		fields[i] = s.field
	}
	collected := prefill(m, c.history.Get(ctx, room), fields)
	for f, v := range collected {
		slog.Debug("onboarding.Collect: field pre-filled", "room", room, "field", f, "value_len", len(v))
	}

	notify := c.history.Notify(room)
	defer c.history.StopNotify(room, notify)

	for _, slot := range slots {
		if _, ok := collected[slot.field]; ok {
			continue
		}
		value, err := c.collectField(ctx, room, pub, meta, notify, slot)
		if err != nil {
			return nil, err
		}
		collected[slot.field] = value
	}

	return c.finalize(ctx, room, role, m.BusinessID, collected, pub)
}

// collectField prompts for one field and waits for a validating answer.
func (c *Collector) collectField(ctx context.Context, room string, pub transport.DataPublisher, meta MetaProvider, notify <-chan struct{}, slot slotSpec) (string, error) {
	slog.Info("onboarding.collectField: requesting field", "room", room, "field", slot.field)
	// Baseline before dispatch so an answer racing the prompt is not missed.
	baseline := c.history.Seq(room)
	if !c.replier.SafeReply(ctx, pub, slot.prompt) {
		// A failed prompt dispatch is not fatal; the caller may still answer.
		slog.Warn("onboarding.collectField: prompt dispatch failed, still waiting for reply", "room", room, "field", slot.field)
	}
	cycles := 0
	for {
		for attempt := 0; attempt < c.waitAttempts; attempt++ {
			// Metadata short-circuit: a frontend update can supply the field
			// while we wait.
			if v, ok := metaValue(meta(), slot.field); ok && slot.validate(v) {
				slog.Debug("onboarding.collectField: field supplied by metadata update", "room", room, "field", slot.field)
				return strings.TrimSpace(v), nil
			}

			answer, seq, ok := c.latestUserTurnSince(ctx, room, baseline)
			if ok {
				baseline = seq
				if slot.validate(answer) {
					slog.Info("onboarding.collectField: field collected", "room", room, "field", slot.field)
					return strings.TrimSpace(answer), nil
				}
				cycles++
				if cycles >= c.maxCycles {
					return "", c.abandon(ctx, room, pub, slot.field)
				}
				rejection := fmt.Sprintf("Sorry, that doesn't look like a valid %s. Could you try again?", slot.field)
				c.replier.SafeReply(ctx, pub, rejection)
				// The attempt budget restarts for the same field; the
				// baseline already excludes the rejected answer.
				attempt = -1
				continue
			}

			select {
			case <-notify:
			case <-time.After(c.waitInterval):
			case <-ctx.Done():
				return "", ErrSessionEnded
			}
		}

		// No answer within the wait budget: re-issue the prompt and restart.
		cycles++
		if cycles >= c.maxCycles {
			return "", c.abandon(ctx, room, pub, slot.field)
		}
		slog.Debug("onboarding.collectField: wait budget exhausted, re-prompting", "room", room, "field", slot.field, "cycle", cycles)
		c.replier.SafeReply(ctx, pub, slot.prompt)
	}
}

// latestUserTurnSince returns the newest user turn appended after the given
// sequence baseline, along with the current sequence.
func (c *Collector) latestUserTurnSince(ctx context.Context, room string, baseline int64) (string, int64, bool) {
	seq := c.history.Seq(room)
	if seq <= baseline {
		return "", seq, false
	}
	turns := c.history.Get(ctx, room)
	fresh := int(seq - baseline)
	if fresh > len(turns) {
		fresh = len(turns)
	}
	for i := len(turns) - 1; i >= len(turns)-fresh; i-- {
		if turns[i].Role == models.RoleUser {
			return turns[i].Content, seq, true
		}
	}
	// Only assistant turns arrived (our own prompts); advance the baseline
	// without consuming the answer budget.
	return "", seq, false
}

// metaValue extracts a field from normalized metadata, when it carries one.
func metaValue(m models.SessionMeta, f Field) (string, bool) {
	switch f {
	case FieldName:
		return m.Name, m.Name != ""
	case FieldEmail:
		return m.Email, m.Email != ""
	default:
		return "", false
	}
}

// abandon dispatches a parting apology and reports the abandonment.
func (c *Collector) abandon(ctx context.Context, room string, pub transport.DataPublisher, f Field) error {
	slog.Warn("onboarding.abandon: giving up on field after retry budget", "room", room, "field", f)
	c.replier.SafeReply(ctx, pub,
		"I'm having trouble collecting your details right now, so let's carry on. I can still help with general questions.")
	return fmt.Errorf("field %s: %w", f, ErrCollectionAbandoned)
}

// finalize performs the exactly-once downstream persistence and registry
// write.
func (c *Collector) finalize(ctx context.Context, room string, role models.CallerRole, businessID string, collected map[Field]string, pub transport.DataPublisher) (*Result, error) {
	res := &Result{
		Name:     collected[FieldName],
		Email:    collected[FieldEmail],
		Phone:    collected[FieldPhone],
		Location: collected[FieldLocation],
	}

	switch role {
	case models.CallerCustomer:
		cust, err := c.finalizer.UpsertCustomer(ctx, models.Customer{
			BusinessID: businessID,
			Name:       res.Name,
			Email:      res.Email,
			Phone:      res.Phone,
		})
		if err != nil || cust.ID == "" {
			slog.Error("onboarding.finalize: customer upsert did not yield an identifier", "room", room, "error", err)
			c.replier.SafeReply(ctx, pub, "I'm sorry, I couldn't save your details just now. Let's continue and I'll try again later.")
			return nil, fmt.Errorf("customer upsert: %w", ErrCollectionFailed)
		}
		res.Customer = &cust
	case models.CallerGeneral:
		user, err := c.finalizer.RegisterGeneralUser(ctx, models.GeneralUser{
			Name:     res.Name,
			Email:    res.Email,
			Location: res.Location,
		})
		if err != nil || user.ID == "" {
			slog.Error("onboarding.finalize: general registration did not yield an identifier", "room", room, "error", err)
			c.replier.SafeReply(ctx, pub, "I'm sorry, I couldn't save your details just now. Let's continue and I'll try again later.")
			return nil, fmt.Errorf("general registration: %w", ErrCollectionFailed)
		}
		res.GeneralUser = &user
	}

	c.registry.Set(room, models.Identity{Role: role, Email: res.Email, BusinessID: businessID})
	slog.Info("onboarding.finalize: identity resolved", "room", room, "role", role, "businessID", businessID)
	return res, nil
}
