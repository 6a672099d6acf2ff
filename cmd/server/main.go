/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the hotel back office server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config from env (.env honored), then apply flags
  2. Build the slog logger
  3. Initialize tracing (no-op without an OTLP endpoint)
  4. Open the store (SQLite or PostgreSQL)
  5. Wire notifications, login limiter, engine, API handler
  6. Optionally seed a scenario
  7. Start the maintenance scheduler and the HTTP server

COMMAND-LINE FLAGS:
  --port          HTTP server port (HTTP_PORT, default 8080)
  --db-driver     sqlite or postgres (DB_DRIVER)
  --db-path       SQLite database path (DB_PATH); ":memory:" for in-memory
  --database-url  PostgreSQL URL (DATABASE_URL)
  --log-level     debug, info, warn, error (LOG_LEVEL)
  --seed          scenario id or YAML path to load at startup
  --scenarios     expose /api/scenarios

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (HTTP_SHUTDOWN_TIMEOUT)
  3. Stop the scheduler, drain pending notifications
  4. Flush traces, close the store

EXAMPLES:
  # Development with a file database and the alpha demo
  ./server --db-path=./data/hotel.db --seed=alpha

  # Production
  APP_ENV=production DB_DRIVER=postgres DATABASE_URL=... JWT_SECRET=... ./server

SEE ALSO:
  - config/config.go: every environment variable
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/warp/hotel-backoffice/api"
	"github.com/warp/hotel-backoffice/auth"
	"github.com/warp/hotel-backoffice/config"
	"github.com/warp/hotel-backoffice/engine"
	"github.com/warp/hotel-backoffice/hotel"
	"github.com/warp/hotel-backoffice/notify"
	"github.com/warp/hotel-backoffice/ratelimit"
	"github.com/warp/hotel-backoffice/scenario"
	"github.com/warp/hotel-backoffice/store/postgres"
	"github.com/warp/hotel-backoffice/store/sqlite"
	"github.com/warp/hotel-backoffice/tracing"
)

func main() {
	cfg := config.Load()
	cfg.AddFlags(pflag.CommandLine)
	pflag.Parse()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, logger, cfg.OTELEndpoint, cfg.ServiceName, cfg.Env)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", "err", err)
		}
	}()

	// Initialize store
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	logger.Info("store ready", "driver", cfg.DBDriver)

	// Notifications
	var sink notify.Sink = notify.LogSink{Logger: logger}
	if cfg.TelegramToken != "" {
		sink = notify.Fanout{sink, notify.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID)}
		logger.Info("telegram notifications enabled")
	}
	dispatcher := notify.NewDispatcher(sink, logger, cfg.NotifyTimeout)
	defer dispatcher.Wait()

	// Login attempt limiter
	var (
		backend ratelimit.Backend
		sweeper api.Sweeper
	)
	if cfg.RedisURL != "" {
		rb, err := ratelimit.NewRedisBackend(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rb.Close()
		backend = rb
		logger.Info("login limiter backend: redis")
	} else {
		mb := ratelimit.NewMemoryBackend()
		backend, sweeper = mb, mb
		logger.Info("login limiter backend: memory")
	}
	limiter := ratelimit.NewLimiter(backend, "login:", cfg.LoginMaxAttempts, cfg.LoginWindow)

	eng := engine.New(store, engine.Options{
		Notifier:           dispatcher,
		Logger:             logger,
		AllowAdminOnBehalf: cfg.AllowAdminOnBehalf,
	})

	if cfg.SeedScenario != "" {
		if err := seed(ctx, eng, cfg.SeedScenario, logger); err != nil {
			return fmt.Errorf("seed %s: %w", cfg.SeedScenario, err)
		}
	}

	scheduler := api.NewMaintenanceScheduler(eng, dispatcher, sweeper, logger)
	scheduler.CheckInterval = cfg.MaintenanceInterval
	scheduler.MaxShiftAge = cfg.MaxShiftAge
	scheduler.Start()
	defer scheduler.Stop()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	handler := api.NewHandler(eng, tokens, limiter, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimit:       cfg.GlobalRateLimit,
		EnableScenarios: cfg.EnableScenarios,
		ServiceName:     cfg.ServiceName,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", server.Addr, "env", cfg.Env, "scenarios", cfg.EnableScenarios)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (hotel.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

// seed loads a built-in scenario by id, or a YAML file when name looks like
// a path.
func seed(ctx context.Context, eng *engine.Engine, name string, logger *slog.Logger) error {
	var (
		sc  *scenario.Scenario
		err error
	)
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") || strings.Contains(name, "/") {
		sc, err = scenario.LoadFile(name)
	} else {
		sc, err = scenario.Get(name)
	}
	if err != nil {
		return err
	}
	res, err := scenario.Apply(ctx, eng, sc)
	if err != nil {
		return err
	}
	logger.Info("scenario seeded", "scenario", res.Scenario, "hotels", res.Hotels, "users", res.Users, "entries", res.Entries)
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
