package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore archives transcripts to a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite archive with the given DSN. The DSN is a
// file path; its directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore initialized", "dsn", cfg.DSN)
	return &SQLiteStore{db: db}, nil
}

// SaveTurn inserts one archived turn.
func (s *SQLiteStore) SaveTurn(ctx context.Context, turn models.ArchivedTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Time.IsZero() {
		turn.Time = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO archived_turns (id, room_name, role, content, time) VALUES (?, ?, ?, ?, ?)`,
		turn.ID, turn.RoomName, turn.Role, turn.Content, turn.Time)
	if err != nil {
		slog.Error("SQLiteStore.SaveTurn failed", "error", err, "room", turn.RoomName)
		return fmt.Errorf("failed to insert archived turn for %s: %w", turn.RoomName, err)
	}
	return nil
}

// TurnsForRoom returns a room's archived turns in chronological order.
func (s *SQLiteStore) TurnsForRoom(ctx context.Context, room string) ([]models.ArchivedTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_name, role, content, time FROM archived_turns WHERE room_name = ? ORDER BY time`, room)
	if err != nil {
		slog.Error("SQLiteStore.TurnsForRoom query failed", "error", err, "room", room)
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
