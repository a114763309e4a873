package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/auraforge/orchestrator/internal/adapter"
	"github.com/auraforge/orchestrator/internal/adapter/openaicompat"
	"github.com/auraforge/orchestrator/internal/adapter/scaffold"
	"github.com/auraforge/orchestrator/internal/config"
	"github.com/auraforge/orchestrator/internal/deploy"
	"github.com/auraforge/orchestrator/internal/materialize"
	"github.com/auraforge/orchestrator/internal/pipeline"
	"github.com/auraforge/orchestrator/internal/registry"
	"github.com/auraforge/orchestrator/internal/server"
	"github.com/auraforge/orchestrator/internal/storage"
	"github.com/auraforge/orchestrator/internal/storage/memory"
	"github.com/auraforge/orchestrator/internal/storage/sqldb"
	"github.com/auraforge/orchestrator/internal/telemetry"
	"github.com/auraforge/orchestrator/internal/tokens"
	"github.com/auraforge/orchestrator/internal/trace"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Init("auraforge-orchestrator", logger)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("storage close failed", slog.String("error", err.Error()))
		}
	}()

	emitter := trace.NewEmitter(store, logger, trace.Options{
		BufferSize: cfg.Trace.BufferSize,
		RetryBase:  cfg.Trace.RetryBase,
		RetryMax:   cfg.Trace.RetryMax,
	})

	reg := registry.New(cfg.Providers())

	p := pipeline.New(pipeline.Deps{
		Registry:     reg,
		Adapter:      newAdapter(cfg),
		Store:        store,
		Materializer: materialize.New(store),
		Recorder:     emitter,
		Tokens:       tokens.NewCounter(),
		Deployer:     deploy.NewLocal(""),
		Logger:       logger,
	}, pipeline.Options{
		MinPromptLength: cfg.Generation.MinPromptLength,
		AdapterTimeout:  cfg.Generation.AdapterTimeout,
		OnDeployFailure: cfg.Deploy.OnFailure,
	})

	srv := server.New(cfg.Server.Port, p, reg, store, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("orchestrator started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Type),
		slog.String("adapter", cfg.Generation.Adapter),
		slog.Int("models", len(cfg.Models)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server failed", slog.String("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	// Flush queued audit events before the store closes.
	if err := emitter.Close(shutdownCtx); err != nil {
		logger.Error("trace emitter close failed", slog.String("error", err.Error()))
	}

	logger.Info("orchestrator stopped")
}

func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Type {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		return sqldb.New(cfg.Storage.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func newAdapter(cfg *config.Config) adapter.ModelAdapter {
	switch cfg.Generation.Adapter {
	case "openai":
		keys := make(map[string]string, len(cfg.Models))
		for _, m := range cfg.Models {
			keys[m.ID] = m.APIKey
		}
		return openaicompat.New(func(providerID string) string {
			return keys[providerID]
		})
	default:
		return scaffold.New()
	}
}
