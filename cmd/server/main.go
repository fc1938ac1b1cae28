/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the certification tracker server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the zap logger
  3. Open the configured store (sqlite, postgres or memory)
  4. Resolve the scoring policy
  5. Create API handler and router
  6. Start the status refresh scheduler (when REFRESH_INTERVAL > 0)
  7. Start server with graceful shutdown

CONFIGURATION:
  See config/config.go for every flag and environment variable.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the store
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/certs.db"

  # Run against PostgreSQL with a nightly refresh
  DATABASE_URL=postgres://localhost/certs ./server -driver=postgres -refresh-interval=24h

  # Run with the tenure-weighted policy
  ./server -scoring=tenure-weighted

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/open.go: Store selection
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/cert-tracker/api"
	"github.com/warp/cert-tracker/certification"
	"github.com/warp/cert-tracker/config"
	"github.com/warp/cert-tracker/factory"
	"github.com/warp/cert-tracker/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	// Initialize store
	st, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Scoring policy
	policy, err := factory.NewScoringFactory().Resolve(cfg.ScoringPolicy)
	if err != nil {
		return err
	}
	scorer, err := certification.NewScorer(policy)
	if err != nil {
		return err
	}

	// Initialize handler and router
	handler := api.NewHandler(st, scorer, logger)
	router := api.NewRouter(handler, api.Options{
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
		StaticDir:    "./web/dist",
		Logger:       logger,
	})

	scheduler := api.NewStatusRefreshScheduler(st, cfg.RefreshInterval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("driver", cfg.Driver),
			zap.String("policy", policy.Name),
			zap.Duration("refresh_interval", cfg.RefreshInterval),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
