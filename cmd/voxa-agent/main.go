package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voxa-labs/voxa-agent/internal/agent"
	"github.com/voxa-labs/voxa-agent/internal/archive"
	"github.com/voxa-labs/voxa-agent/internal/backend"
	"github.com/voxa-labs/voxa-agent/internal/dispatch"
	"github.com/voxa-labs/voxa-agent/internal/genai"
	"github.com/voxa-labs/voxa-agent/internal/history"
	"github.com/voxa-labs/voxa-agent/internal/identity"
	"github.com/voxa-labs/voxa-agent/internal/transport"
	"github.com/voxa-labs/voxa-agent/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for agent state data
	DefaultStateDir = "/var/lib/voxa-agent"
	// DefaultDBFileName is the default SQLite archive filename
	DefaultDBFileName = "voxa-agent.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping voxa-agent")
	if err := run(ctx, flags); err != nil {
		slog.Error("voxa-agent failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("voxa-agent exited successfully")
}

// Config holds environment configuration
type Config struct {
	BackendURL    string
	BackendAPIKey string
	OpenAIKey     string
	OpenAIModel   string
	RedisURL      string
	DbDriver      string
	DbDSN         string
	StateDir      string
	RoomServerURL string
	RoomNames     string
	RoomToken     string
	ReplyTimeout  time.Duration
}

// Flags holds command line flag values
type Flags struct {
	backendURL    *string
	backendAPIKey *string
	openaiKey     *string
	openaiModel   *string
	redisURL      *string
	dbDriver      *string
	dbDSN         *string
	stateDir      *string
	roomServerURL *string
	roomNames     *string
	roomToken     *string
	replyTimeout  *time.Duration
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		BackendURL:    util.GetEnv("BACKEND_URL", backend.DefaultBaseURL),
		BackendAPIKey: os.Getenv("BACKEND_API_KEY"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		DbDriver:      util.GetEnv("DB_DRIVER", "sqlite3"),
		DbDSN:         os.Getenv("DATABASE_URL"),
		StateDir:      util.GetEnv("VOXA_STATE_DIR", DefaultStateDir),
		RoomServerURL: os.Getenv("ROOM_SERVER_URL"),
		RoomNames:     os.Getenv("ROOM_NAMES"),
		RoomToken:     os.Getenv("ROOM_TOKEN"),
		ReplyTimeout:  util.ParseDurationEnv("REPLY_TIMEOUT", dispatch.DefaultReplyTimeout),
	}
	return config
}

// parseCommandLineFlags parses command line flags with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		backendURL:    flag.String("backend-url", config.BackendURL, "Business backend base URL"),
		backendAPIKey: flag.String("backend-api-key", config.BackendAPIKey, "Business backend bearer token"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key"),
		openaiModel:   flag.String("openai-model", config.OpenAIModel, "OpenAI chat model"),
		redisURL:      flag.String("redis-url", config.RedisURL, "Redis URL for the shared history cache (optional)"),
		dbDriver:      flag.String("db-driver", config.DbDriver, "Archive database driver (sqlite3 or postgres)"),
		dbDSN:         flag.String("db-dsn", config.DbDSN, "Archive database DSN"),
		stateDir:      flag.String("state-dir", config.StateDir, "State directory for the default SQLite archive"),
		roomServerURL: flag.String("room-server-url", config.RoomServerURL, "Room server websocket URL"),
		roomNames:     flag.String("rooms", config.RoomNames, "Comma-separated room names to serve"),
		roomToken:     flag.String("room-token", config.RoomToken, "Room server access token"),
		replyTimeout:  flag.Duration("reply-timeout", config.ReplyTimeout, "Per-reply generation deadline"),
	}
	flag.Parse()
	return flags
}

// run wires the shared components and serves every configured room until the
// context is cancelled.
func run(ctx context.Context, flags Flags) error {
	historyOpts := buildHistoryOptions(ctx, flags)
	hist := history.NewStore(historyOpts...)
	registry := identity.NewRegistry()

	backendClient := backend.NewClient(
		backend.WithBaseURL(*flags.backendURL),
		backend.WithAPIKey(*flags.backendAPIKey),
	)

	genaiOpts := buildGenAIOptions(flags)
	genaiClient, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return err
	}

	archiveStore, err := buildArchiveStore(flags)
	if err != nil {
		return err
	}
	defer archiveStore.Close()

	orch := agent.NewOrchestrator(hist, registry, backendClient, genaiClient,
		agent.WithArchive(archiveStore),
		agent.WithReplyTimeout(*flags.replyTimeout),
	)

	rooms := splitRooms(*flags.roomNames)
	if len(rooms) == 0 {
		slog.Error("No rooms configured; set ROOM_NAMES or -rooms")
		return nil
	}
	slog.Info("Serving rooms", "count", len(rooms))

	var wg sync.WaitGroup
	for _, room := range rooms {
		wg.Add(1)
		go func(room string) {
			defer wg.Done()
			serveRoom(ctx, orch, *flags.roomServerURL, room, *flags.roomToken)
		}(room)
	}
	wg.Wait()
	return nil
}

// serveRoom dials the room and runs its session to completion.
func serveRoom(ctx context.Context, orch *agent.Orchestrator, serverURL, room, token string) {
	sess, err := transport.Dial(ctx, serverURL, room, token)
	if err != nil {
		slog.Error("Failed to join room", "room", room, "error", err)
		return
	}
	defer sess.Close()
	if err := orch.Run(ctx, sess); err != nil && err != context.Canceled {
		slog.Error("Session ended with error", "room", room, "error", err)
	}
}

// buildHistoryOptions attaches the Redis cache when configured.
func buildHistoryOptions(ctx context.Context, flags Flags) []history.Option {
	var opts []history.Option
	if *flags.redisURL != "" {
		cache, err := history.NewRedisCache(ctx, *flags.redisURL)
		if err != nil {
			slog.Warn("Redis cache unavailable, running memory-only", "error", err)
		} else {
			opts = append(opts, history.WithCache(cache))
		}
	}
	return opts
}

// buildGenAIOptions assembles GenAI client options from flags.
func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		opts = append(opts, genai.WithModel(*flags.openaiModel))
	}
	return opts
}

// buildArchiveStore selects the archive backend from flags.
func buildArchiveStore(flags Flags) (archive.Store, error) {
	switch strings.ToLower(*flags.dbDriver) {
	case "postgres":
		if *flags.dbDSN == "" {
			slog.Warn("No DATABASE_URL for postgres archive, using in-memory archive")
			return archive.NewMemoryStore(), nil
		}
		return archive.NewPostgresStore(archive.WithDSN(*flags.dbDSN))
	case "sqlite3", "sqlite", "":
		dsn := *flags.dbDSN
		if dsn == "" {
			dsn = filepath.Join(*flags.stateDir, DefaultDBFileName)
		}
		return archive.NewSQLiteStore(archive.WithDSN(dsn))
	default:
		slog.Warn("Unknown archive driver, using in-memory archive", "driver", *flags.dbDriver)
		return archive.NewMemoryStore(), nil
	}
}

// splitRooms parses the comma-separated room list.
func splitRooms(raw string) []string {
	var rooms []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			rooms = append(rooms, r)
		}
	}
	return rooms
}
