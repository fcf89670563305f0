package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore archives transcripts to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres archive with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore initialized")
	return &PostgresStore{db: db}, nil
}

// SaveTurn inserts one archived turn.
func (s *PostgresStore) SaveTurn(ctx context.Context, turn models.ArchivedTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Time.IsZero() {
		turn.Time = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archived_turns (id, room_name, role, content, time) VALUES ($1, $2, $3, $4, $5)`,
		turn.ID, turn.RoomName, turn.Role, turn.Content, turn.Time)
	if err != nil {
		slog.Error("PostgresStore.SaveTurn failed", "error", err, "room", turn.RoomName)
		return fmt.Errorf("failed to insert archived turn for %s: %w", turn.RoomName, err)
	}
	return nil
}

// TurnsForRoom returns a room's archived turns in chronological order.
func (s *PostgresStore) TurnsForRoom(ctx context.Context, room string) ([]models.ArchivedTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_name, role, content, time FROM archived_turns WHERE room_name = $1 ORDER BY time`, room)
	if err != nil {
		slog.Error("PostgresStore.TurnsForRoom query failed", "error", err, "room", room)
		return nil, fmt.Errorf("failed to query archived turns: %w", err)
	}
	defer rows.Close()

	var turns []models.ArchivedTurn
	for rows.Next() {
		var t models.ArchivedTurn
		if err := rows.Scan(&t.ID, &t.RoomName, &t.Role, &t.Content, &t.Time); err != nil {
			return nil, fmt.Errorf("failed to scan archived turn row: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archived turn rows: %w", err)
	}
	return turns, nil
}

// Close closes the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
