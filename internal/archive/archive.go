// Package archive provides durable transcript storage backends. The bounded
// in-memory history keeps only the recent window; the archive keeps every
// turn for later review.
package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// Store is the transcript archive contract.
type Store interface {
	// SaveTurn durably records one conversation turn.
	SaveTurn(ctx context.Context, turn models.ArchivedTurn) error
	// TurnsForRoom returns a room's archived turns in chronological order.
	TurnsForRoom(ctx context.Context, room string) ([]models.ArchivedTurn, error)
	// Close releases the backend.
	Close() error
}

// Opts holds configuration for archive store construction.
type Opts struct {
	DSN string
}

// Option configures archive store construction.
type Option func(*Opts)

// WithDSN sets the database DSN.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// MemoryStore is an in-memory archive for tests and cache-less deployments.
type MemoryStore struct {
	mu    sync.Mutex
	turns []models.ArchivedTurn
}

// NewMemoryStore creates an empty in-memory archive.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveTurn records the turn, assigning an id and timestamp when absent.
func (s *MemoryStore) SaveTurn(ctx context.Context, turn models.ArchivedTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Time.IsZero() {
		turn.Time = time.Now().UTC()
	}
	s.turns = append(s.turns, turn)
	return nil
}

// TurnsForRoom returns the room's turns oldest first.
func (s *MemoryStore) TurnsForRoom(ctx context.Context, room string) ([]models.ArchivedTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ArchivedTurn
	for _, t := range s.turns {
		if t.RoomName == room {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// Close is a no-op for the in-memory archive.
func (s *MemoryStore) Close() error { return nil }
