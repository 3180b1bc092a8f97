// Package stream assembles a live action transcript from a server-sent event stream.
package stream

import (
	"context"

	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/status"
)

// ActionsListKey is the cache key of the conversation list shown in navigation.
const ActionsListKey = "actions-list"

// Source is one open server stream. Recv returns events in transport order and
// io.EOF once the server closes the connection.
type Source interface {
	Recv() (Event, error)
	Close() error
}

// Request parameterizes a stream open.
type Request struct {
	ActionID string
	Prompt   string
	Context  string // encoded with EncodeContext
}

// Opener opens the per-action streaming endpoint.
type Opener interface {
	Open(ctx context.Context, req Request) (Source, error)
}

// Invalidator drops externally cached query results.
type Invalidator interface {
	Invalidate(key string)
}

// Update is delivered to subscribers after every fold.
type Update struct {
	Message message.Message
	State   status.Status
}

// Telemetry receives lifecycle callbacks. The returned finish func is called
// exactly once with the terminal state of the stream.
type Telemetry interface {
	InvokeStarted(ctx context.Context, actionID string, attachments int) (context.Context, func(outcome status.Status, err error))
	EventApplied(ctx context.Context, kind Kind)
}

type noopTelemetry struct{}

func (noopTelemetry) InvokeStarted(ctx context.Context, _ string, _ int) (context.Context, func(status.Status, error)) {
	return ctx, func(status.Status, error) {}
}

func (noopTelemetry) EventApplied(context.Context, Kind) {}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(string) {}
