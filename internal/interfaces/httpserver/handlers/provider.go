package handlers

import (
	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/domain/attachment"
	"github.com/janhq/jan-actions/internal/infrastructure/cache"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Action     *ActionHandler
	Transcript *TranscriptHandler
	Context    *ContextHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(initiator Initiator, lister ActionLister, views Views, store *attachment.Store, queries *cache.Cache, log zerolog.Logger) *Provider {
	return &Provider{
		Action:     NewActionHandler(initiator, lister, queries, log),
		Transcript: NewTranscriptHandler(views, log),
		Context:    NewContextHandler(store, log),
	}
}
