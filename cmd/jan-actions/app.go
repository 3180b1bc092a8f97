package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/config"
	"github.com/janhq/jan-actions/internal/domain/action"
	"github.com/janhq/jan-actions/internal/domain/attachment"
	"github.com/janhq/jan-actions/internal/domain/retry"
	"github.com/janhq/jan-actions/internal/domain/stream"
	"github.com/janhq/jan-actions/internal/domain/transcript"
	"github.com/janhq/jan-actions/internal/infrastructure/auth"
	"github.com/janhq/jan-actions/internal/infrastructure/backend"
	"github.com/janhq/jan-actions/internal/infrastructure/cache"
	"github.com/janhq/jan-actions/internal/infrastructure/logger"
	"github.com/janhq/jan-actions/internal/infrastructure/observability"
)

// Application holds the wired client components shared by every command.
type Application struct {
	cfg       *config.Config
	log       zerolog.Logger
	client    *backend.Client
	queries   *cache.Cache
	contexts  *attachment.Store
	manager   *transcript.Manager
	bootstrap *action.Bootstrap
	telemetry *observability.Provider
}

func NewApplication(
	cfg *config.Config,
	log zerolog.Logger,
	client *backend.Client,
	queries *cache.Cache,
	contexts *attachment.Store,
	manager *transcript.Manager,
	bootstrap *action.Bootstrap,
	telemetry *observability.Provider,
) *Application {
	return &Application{
		cfg:       cfg,
		log:       log,
		client:    client,
		queries:   queries,
		contexts:  contexts,
		manager:   manager,
		bootstrap: bootstrap,
		telemetry: telemetry,
	}
}

// Close unmounts every view and flushes telemetry.
func (a *Application) Close() error {
	var errs []error
	if err := a.manager.CloseAll(); err != nil {
		errs = append(errs, err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// newApplication assembles the graph by hand, following wire.go.
func newApplication(ctx context.Context, logLevel string) (*Application, error) {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	log := logger.New(cfg)

	provider, err := observability.Init(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize observability: %w", err)
	}
	streamTelemetry, err := observability.NewStreamTelemetry(provider)
	if err != nil {
		return nil, fmt.Errorf("initialize stream telemetry: %w", err)
	}

	queries, err := newQueryCache(cfg, log)
	if err != nil {
		return nil, err
	}
	client := newBackendClient(cfg, provider, log)
	contexts := attachment.NewStore()
	pending := newPendingPrompt()
	manager := newManager(cfg, client, queries, contexts, pending, streamTelemetry, log)
	bootstrap := newBootstrap(client, manager, queries, contexts, pending, log)

	return NewApplication(cfg, log, client, queries, contexts, manager, bootstrap, provider), nil
}

func newBackendClient(cfg *config.Config, provider *observability.Provider, log zerolog.Logger) *backend.Client {
	return backend.NewClient(cfg, auth.NewStaticSource(cfg.AccessToken), provider.Sanitizer, log)
}

func newQueryCache(cfg *config.Config, log zerolog.Logger) (*cache.Cache, error) {
	queries, err := cache.New(cfg.CacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	queries.OnInvalidate(func(key string) {
		log.Debug().Str("key", key).Msg("query invalidated")
	})
	return queries, nil
}

func newPendingPrompt() *action.PendingPrompt {
	return &action.PendingPrompt{}
}

func historyPolicy(cfg *config.Config) retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.HistoryMaxRetries
	policy.InitialDelay = cfg.HistoryRetryDelay
	policy.RetryIf = backend.IsRetryable
	return policy
}

func newManager(
	cfg *config.Config,
	client *backend.Client,
	queries *cache.Cache,
	contexts *attachment.Store,
	pending *action.PendingPrompt,
	streamTelemetry *observability.StreamTelemetry,
	log zerolog.Logger,
) *transcript.Manager {
	return transcript.NewManager(client, client, queries, contexts, pending, historyPolicy(cfg),
		log.With().Str("component", "transcript").Logger(),
		stream.WithInvalidator(queries),
		stream.WithTelemetry(streamTelemetry),
	)
}

func newBootstrap(
	client *backend.Client,
	manager *transcript.Manager,
	queries *cache.Cache,
	contexts *attachment.Store,
	pending *action.PendingPrompt,
	log zerolog.Logger,
) *action.Bootstrap {
	return action.NewBootstrap(client, manager, queries, contexts, pending,
		log.With().Str("component", "bootstrap").Logger())
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
