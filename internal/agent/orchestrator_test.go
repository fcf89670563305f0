package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/openai/openai-go"

	"github.com/voxa-labs/voxa-agent/internal/archive"
	"github.com/voxa-labs/voxa-agent/internal/genai"
	"github.com/voxa-labs/voxa-agent/internal/history"
	"github.com/voxa-labs/voxa-agent/internal/identity"
	"github.com/voxa-labs/voxa-agent/internal/models"
	"github.com/voxa-labs/voxa-agent/internal/onboarding"
	"github.com/voxa-labs/voxa-agent/internal/transport"
)

// echoGenAI echoes the last system message, so published replies mirror the
// instructions they were generated from.
type echoGenAI struct {
	mu sync.Mutex
}

func (e *echoGenAI) GeneratePrompt(ctx context.Context, system, user string) (string, error) {
	return user, nil
}

func (e *echoGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return "reasoned", nil
}

func (e *echoGenAI) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, defs []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(messages) - 1; i >= 0; i-- {
		if sys := messages[i].OfSystem; sys != nil {
			return &genai.ToolCallResponse{Content: sys.Content.OfString.Value}, nil
		}
	}
	return &genai.ToolCallResponse{Content: "ok"}, nil
}

// orchBackend is a fake business backend for orchestrator tests.
type orchBackend struct {
	mu            sync.Mutex
	upserts       int
	registrations int
	upsertEmptyID bool
	custAppends   int
	genAppends    int
}

func (b *orchBackend) LookupCustomer(ctx context.Context, email string) (models.Customer, error) {
	return models.Customer{}, context.Canceled
}

func (b *orchBackend) UpsertCustomer(ctx context.Context, cust models.Customer) (models.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upserts++
	if b.upsertEmptyID {
		return cust, nil
	}
	cust.ID = "cust-1"
	return cust, nil
}

func (b *orchBackend) SearchCustomers(ctx context.Context, q, businessID string) ([]models.Customer, error) {
	return nil, nil
}

func (b *orchBackend) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	t.ID = "ticket-1"
	return t, nil
}

func (b *orchBackend) UpdateTicketStatus(ctx context.Context, ticketID, status string) (models.Ticket, error) {
	return models.Ticket{ID: ticketID, Status: status}, nil
}

func (b *orchBackend) AddTicketNote(ctx context.Context, ticketID, note string) error { return nil }

func (b *orchBackend) ListTickets(ctx context.Context, businessID string) ([]models.Ticket, error) {
	return nil, nil
}

func (b *orchBackend) CreateMeeting(ctx context.Context, m models.Meeting) (models.Meeting, error) {
	m.ID = "meeting-1"
	return m, nil
}

func (b *orchBackend) GetBusinessContext(ctx context.Context, idOrSlug string) (models.BusinessContext, error) {
	return models.BusinessContext{ID: idOrSlug, Name: "Acme"}, nil
}

func (b *orchBackend) GetAnalytics(ctx context.Context, metric, businessID string) (models.AnalyticsReport, error) {
	return models.AnalyticsReport{Metric: metric}, nil
}

func (b *orchBackend) GetEmailCredentials(ctx context.Context, businessID string) (models.EmailCredentials, error) {
	return models.EmailCredentials{Email: "support@acme.com"}, nil
}

func (b *orchBackend) GetFullEmailCredentials(ctx context.Context, businessID string) (models.EmailCredentials, error) {
	return models.EmailCredentials{Email: "support@acme.com"}, nil
}

func (b *orchBackend) GetOwnerProfile(ctx context.Context, key string) (models.OwnerProfile, error) {
	return models.OwnerProfile{ID: "owner-1", Name: "Dana", Email: "dana@acme.com"}, nil
}

func (b *orchBackend) RegisterGeneralUser(ctx context.Context, u models.GeneralUser) (models.GeneralUser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registrations++
	u.ID = "gen-1"
	return u, nil
}

func (b *orchBackend) AppendCustomerConversation(ctx context.Context, email, businessID string, turn models.Turn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.custAppends++
	return nil
}

func (b *orchBackend) AppendGeneralConversation(ctx context.Context, email string, turn models.Turn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.genAppends++
	return nil
}

// respondTo watches published prompts and delivers the scripted answer when
// a prompt containing the key appears.
func respondTo(t *testing.T, sess *transport.FakeSession, done <-chan struct{}, answers map[string]string) {
	t.Helper()
	delivered := make(map[string]bool)
	go func() {
		seen := 0
		for {
			select {
			case <-done:
				return
			case <-time.After(time.Millisecond):
			}
			published := sess.Published()
			for ; seen < len(published); seen++ {
				var msg struct {
					Message string `json:"message"`
				}
				if json.Unmarshal(published[seen], &msg) != nil {
					continue
				}
				for key, answer := range answers {
					if strings.Contains(msg.Message, key) && !delivered[key] {
						delivered[key] = true
						sess.Deliver("caller", answer)
					}
				}
			}
		}
	}()
}

func fastCollector() Option {
	return WithCollectorOptions(
		onboarding.WithWaitInterval(2*time.Millisecond),
		onboarding.WithWaitAttempts(100),
	)
}

func TestRunIdentifiedSessionRepliesAndArchives(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hist := history.NewStore()
	reg := identity.NewRegistry()
	reg.Set("room-1", models.Identity{Role: models.CallerGeneral, Email: "alex@x.com"})
	backend := &orchBackend{}
	store := archive.NewMemoryStore()
	orch := NewOrchestrator(hist, reg, backend, &echoGenAI{}, WithArchive(store))

	sess := transport.NewFakeSession("room-1")
	sess.Meta = `{"role":"general","userEmail":"alex@x.com"}`

	runDone := make(chan error, 1)
	go func() { runDone <- orch.Run(ctx, sess) }()

	sess.Deliver("caller", "hello there")
	waitFor(t, func() bool { return len(decodeReplies(t, sess)) >= 2 })
	sess.Close()
	if err := <-runDone; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	turns := hist.Get(ctx, "room-1")
	var haveUser bool
	for _, turn := range turns {
		if turn.Role == models.RoleUser && turn.Content == "hello there" {
			haveUser = true
		}
	}
	if !haveUser {
		t.Error("user turn missing from history")
	}
	archived, _ := store.TurnsForRoom(ctx, "room-1")
	if len(archived) < 2 {
		t.Errorf("expected archived turns, got %d", len(archived))
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.genAppends == 0 {
		t.Error("expected general conversation persistence")
	}
}

func TestRunUnidentifiedCustomerRunsOnboarding(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hist := history.NewStore()
	reg := identity.NewRegistry()
	backend := &orchBackend{}
	orch := NewOrchestrator(hist, reg, backend, &echoGenAI{}, fastCollector())

	sess := transport.NewFakeSession("room-1")
	sess.Meta = `{"role":"customer","businessId":"biz-1"}`

	done := make(chan struct{})
	defer close(done)
	respondTo(t, sess, done, map[string]string{
		"full name":     "Alex Smith",
		"email address": "alex@x.com",
		"phone number":  "5551234567",
	})

	runDone := make(chan error, 1)
	go func() { runDone <- orch.Run(ctx, sess) }()

	waitFor(t, func() bool { _, ok := reg.Get("room-1"); return ok })
	sess.Close()
	if err := <-runDone; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.upserts != 1 {
		t.Errorf("expected exactly one upsert, got %d", backend.upserts)
	}
	id, _ := reg.Get("room-1")
	if id.Email != "alex@x.com" || id.BusinessID != "biz-1" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestRunOwnerSkipsOnboarding(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hist := history.NewStore()
	reg := identity.NewRegistry()
	backend := &orchBackend{}
	orch := NewOrchestrator(hist, reg, backend, &echoGenAI{})

	sess := transport.NewFakeSession("owner-room")
	sess.Meta = `{"role":"owner","businessId":"biz-1","ownerEmail":"dana@acme.com"}`

	runDone := make(chan error, 1)
	go func() { runDone <- orch.Run(ctx, sess) }()

	sess.Deliver("owner", "show me this week's tickets")
	waitFor(t, func() bool { return len(decodeReplies(t, sess)) >= 2 })
	sess.Close()
	if err := <-runDone; err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.upserts != 0 || backend.registrations != 0 {
		t.Error("owner sessions must not trigger onboarding persistence")
	}
}

func TestRunOnboardingFailureKeepsSessionAlive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hist := history.NewStore()
	reg := identity.NewRegistry()
	backend := &orchBackend{upsertEmptyID: true}
	orch := NewOrchestrator(hist, reg, backend, &echoGenAI{}, fastCollector())

	sess := transport.NewFakeSession("room-1")
	sess.Meta = `{"role":"customer","businessId":"biz-1"}`

	done := make(chan struct{})
	defer close(done)
	respondTo(t, sess, done, map[string]string{
		"full name":     "Alex Smith",
		"email address": "alex@x.com",
		"phone number":  "5551234567",
	})

	runDone := make(chan error, 1)
	go func() { runDone <- orch.Run(ctx, sess) }()

	// Wait for the collection failure apology, then verify the session
	// still answers.
	waitFor(t, func() bool {
		for _, r := range decodeReplies(t, sess) {
			if strings.Contains(r, "couldn't save your details") {
				return true
			}
		}
		return false
	})
	if _, ok := reg.Get("room-1"); ok {
		t.Error("failed collection must not register an identity")
	}

	before := len(decodeReplies(t, sess))
	sess.Deliver("caller", "can you still help me?")
	waitFor(t, func() bool { return len(decodeReplies(t, sess)) > before })
	sess.Close()
	if err := <-runDone; err != nil {
		t.Fatalf("expected surviving session, got %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
