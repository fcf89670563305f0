// Package history provides the per-room bounded conversation log with
// optional mirroring to a shared cache.
//
// The in-memory log is authoritative for the life of the process; the shared
// cache is an advisory, last-write-wins mirror so that reconnects and other
// agent instances can recover context. Every cache failure degrades to local
// state; no operation ever surfaces a cache error to its caller.
package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// DefaultLimit is the maximum number of turns retained per room.
const DefaultLimit = 10

// DefaultKeyPrefix is prepended to room names to form cache keys.
const DefaultKeyPrefix = "voxa:history:"

// Cache is the shared keyed store the history log mirrors into. It may be
// entirely absent; a nil Cache disables mirroring.
type Cache interface {
	// Get returns the stored bytes for key, or (nil, nil) when absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error
}

// Opts holds configuration values for the store.
type Opts struct {
	Cache     Cache
	Limit     int
	KeyPrefix string
}

// Option configures the store.
type Option func(*Opts)

// WithCache sets the shared cache used for best-effort mirroring.
func WithCache(c Cache) Option {
	return func(o *Opts) { o.Cache = c }
}

// WithLimit overrides the per-room turn limit.
func WithLimit(n int) Option {
	return func(o *Opts) { o.Limit = n }
}

// WithKeyPrefix overrides the cache key prefix.
func WithKeyPrefix(p string) Option {
	return func(o *Opts) { o.KeyPrefix = p }
}

// Store keeps a bounded conversation log per room. Safe for concurrent use;
// each exported operation holds the store lock for its full in-memory step,
// so a turn appended by one goroutine is visible before any later append for
// the same room is processed.
type Store struct {
	mu        sync.Mutex
	logs      map[string][]models.Turn
	seqs      map[string]int64
	waiters   map[string][]chan struct{}
	cache     Cache
	limit     int
	keyPrefix string
}

// NewStore creates a history store.
func NewStore(opts ...Option) *Store {
	cfg := Opts{Limit: DefaultLimit, KeyPrefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	slog.Debug("history.NewStore: creating store", "limit", cfg.Limit, "cache_configured", cfg.Cache != nil)
	return &Store{
		logs:      make(map[string][]models.Turn),
		seqs:      make(map[string]int64),
		waiters:   make(map[string][]chan struct{}),
		cache:     cfg.Cache,
		limit:     cfg.Limit,
		keyPrefix: cfg.KeyPrefix,
	}
}

// Get returns the conversation log for a room, creating an empty one if the
// room has not been seen. The first access for a room makes a single
// hydration attempt against the shared cache; malformed payloads and cache
// failures both fall back to an empty log. The returned slice is a copy.
func (s *Store) Get(ctx context.Context, room string) []models.Turn {
	s.mu.Lock()
	log, ok := s.logs[room]
	if ok {
		out := make([]models.Turn, len(log))
		copy(out, log)
		s.mu.Unlock()
		return out
	}
	s.mu.Unlock()

	hydrated := s.hydrate(ctx, room)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another goroutine may have populated the room while we were hydrating;
	// its entry wins so no appended turn is lost.
	if existing, ok := s.logs[room]; ok {
		out := make([]models.Turn, len(existing))
		copy(out, existing)
		return out
	}
	s.logs[room] = hydrated
	out := make([]models.Turn, len(hydrated))
	copy(out, hydrated)
	return out
}

// hydrate attempts to load a room's log from the shared cache. Returns an
// empty slice on any failure.
func (s *Store) hydrate(ctx context.Context, room string) []models.Turn {
	if s.cache == nil {
		return []models.Turn{}
	}
	raw, err := s.cache.Get(ctx, s.keyPrefix+room)
	if err != nil {
		slog.Debug("history.Store: cache hydration failed", "room", room, "error", err)
		return []models.Turn{}
	}
	if len(raw) == 0 {
		return []models.Turn{}
	}
	var turns []models.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		slog.Debug("history.Store: cached history is malformed, starting empty", "room", room, "error", err)
		return []models.Turn{}
	}
	if len(turns) > s.limit {
		turns = turns[len(turns)-s.limit:]
	}
	return turns
}

// Append adds a turn to a room's log, evicting the oldest turn when the log
// exceeds the limit, then mirrors the full log to the shared cache. The
// returned Outcome reports only the mirror step: OutcomeSkipped when no cache
// is configured, OutcomeDegraded when the cache write failed. The in-memory
// append itself cannot fail.
func (s *Store) Append(ctx context.Context, room, role, content string) models.Outcome {
	s.mu.Lock()
	if _, ok := s.logs[room]; !ok {
		// First touch for this room goes through hydration so a mirror from a
		// previous process is not clobbered by the write-back below.
		s.mu.Unlock()
		s.Get(ctx, room)
		s.mu.Lock()
	}
	log := append(s.logs[room], models.Turn{Role: role, Content: content})
	if len(log) > s.limit {
		log = log[len(log)-s.limit:]
	}
	s.logs[room] = log
	s.seqs[room]++
	snapshot := make([]models.Turn, len(log))
	copy(snapshot, log)
	for _, ch := range s.waiters[room] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()

	return s.mirror(ctx, room, snapshot)
}

// Len returns the current number of turns held for a room.
func (s *Store) Len(room string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs[room])
}

// Seq returns the total number of appends ever made for a room. Unlike Len
// it keeps growing past the retention limit, so waiters can detect new turns
// even when the log is full.
func (s *Store) Seq(room string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seqs[room]
}

// mirror writes the full log back to the shared cache, best-effort.
func (s *Store) mirror(ctx context.Context, room string, turns []models.Turn) models.Outcome {
	if s.cache == nil {
		return models.OutcomeSkipped
	}
	data, err := json.Marshal(turns)
	if err != nil {
		slog.Debug("history.Store: failed to serialize history for mirroring", "room", room, "error", err)
		return models.OutcomeDegraded
	}
	if err := s.cache.Set(ctx, s.keyPrefix+room, data); err != nil {
		slog.Debug("history.Store: failed to mirror history to cache", "room", room, "error", err)
		return models.OutcomeDegraded
	}
	return models.OutcomeOK
}

// Notify registers a waiter for a room. The returned channel receives one
// signal (buffered, coalescing) after every append until StopNotify is
// called. This replaces fixed-interval polling for turn arrival.
func (s *Store) Notify(room string) <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.waiters[room] = append(s.waiters[room], ch)
	s.mu.Unlock()
	return ch
}

// StopNotify removes a waiter previously registered with Notify.
func (s *Store) StopNotify(room string, ch <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiters := s.waiters[room]
	for i, w := range waiters {
		if w == ch {
			s.waiters[room] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(s.waiters[room]) == 0 {
		delete(s.waiters, room)
	}
}
