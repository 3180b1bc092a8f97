//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/janhq/jan-actions/internal/config"
	"github.com/janhq/jan-actions/internal/domain/attachment"
	"github.com/janhq/jan-actions/internal/infrastructure/logger"
	"github.com/janhq/jan-actions/internal/infrastructure/observability"
)

var clientSet = wire.NewSet(
	newBackendClient,
	newQueryCache,
	attachment.NewStore,
	newPendingPrompt,
	newManager,
	newBootstrap,
)

var telemetrySet = wire.NewSet(
	observability.Init,
	observability.NewStreamTelemetry,
)

// BuildApplication assembles the client graph with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		telemetrySet,
		clientSet,
		NewApplication,
	)
	return nil, nil
}
