// Package action creates new actions and hands their first prompt to the transcript view.
package action

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/domain/attachment"
	chaterrors "github.com/janhq/jan-actions/internal/domain/errors"
	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/status"
	"github.com/janhq/jan-actions/internal/domain/stream"
)

// Creator allocates a new action on the backend.
type Creator interface {
	CreateAction(ctx context.Context) (*message.Action, error)
}

// Navigator mounts the transcript view for an action.
type Navigator interface {
	Navigate(ctx context.Context, actionID string) error
}

// CreationError reports a failed CreateAction call. Nothing is retried.
type CreationError struct {
	Prompt string
	Err    error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create action: %v", e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// Is lets errors.Is match the CREATION_FAILED code.
func (e *CreationError) Is(target error) bool {
	return chaterrors.Code(target) == chaterrors.ErrCodeCreationFailed
}

// ErrCreationFailed matches any *CreationError with errors.Is.
var ErrCreationFailed = &chaterrors.ChatError{
	Code:     chaterrors.ErrCodeCreationFailed,
	Message:  "could not create action",
	Severity: status.ErrorSeverityUser,
}

// PendingPrompt holds the prompt typed before its action existed.
type PendingPrompt struct {
	mu     sync.Mutex
	prompt string
}

func (p *PendingPrompt) Set(prompt string) {
	p.mu.Lock()
	p.prompt = prompt
	p.mu.Unlock()
}

func (p *PendingPrompt) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompt
}

// Take returns the pending prompt and clears it.
func (p *PendingPrompt) Take() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	prompt := p.prompt
	p.prompt = ""
	return prompt
}

func (p *PendingPrompt) Clear() {
	p.Set("")
}

// Bootstrap turns a first prompt into a new action.
type Bootstrap struct {
	creator     Creator
	navigator   Navigator
	invalidator stream.Invalidator
	contexts    *attachment.Store
	pending     *PendingPrompt
	log         zerolog.Logger
}

func NewBootstrap(creator Creator, navigator Navigator, invalidator stream.Invalidator, contexts *attachment.Store, pending *PendingPrompt, log zerolog.Logger) *Bootstrap {
	return &Bootstrap{
		creator:     creator,
		navigator:   navigator,
		invalidator: invalidator,
		contexts:    contexts,
		pending:     pending,
		log:         log.With().Str("component", "bootstrap").Logger(),
	}
}

// Initiate creates an action, parks prompt for the new view, navigates to it and
// refreshes the actions list. Callers must not run two Initiates for the same gesture.
func (b *Bootstrap) Initiate(ctx context.Context, prompt string) (*message.Action, error) {
	created, err := b.creator.CreateAction(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to create action")
		return nil, &CreationError{Prompt: prompt, Err: err}
	}
	if created == nil || created.ID == "" {
		return nil, &CreationError{Prompt: prompt, Err: fmt.Errorf("backend returned no action id")}
	}

	b.pending.Set(prompt)
	b.log.Info().Str("action_id", created.ID).Msg("action created")

	if err := b.navigator.Navigate(ctx, created.ID); err != nil {
		b.invalidator.Invalidate(stream.ActionsListKey)
		return created, fmt.Errorf("open action %s: %w", created.ID, err)
	}
	b.invalidator.Invalidate(stream.ActionsListKey)
	return created, nil
}

// Reset clears the pending prompt and every pinned attachment.
func (b *Bootstrap) Reset() {
	b.pending.Clear()
	b.contexts.Clear()
}

// Prompt returns the pending prompt, empty when none.
func (b *Bootstrap) Prompt() string {
	return b.pending.Get()
}
