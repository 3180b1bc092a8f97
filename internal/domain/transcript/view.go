// Package transcript renders one action's conversation: persisted history
// followed by the live messages of the current session.
package transcript

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/domain/attachment"
	chaterrors "github.com/janhq/jan-actions/internal/domain/errors"
	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/retry"
	"github.com/janhq/jan-actions/internal/domain/status"
	"github.com/janhq/jan-actions/internal/domain/stream"
)

// HistoryKeyPrefix prefixes the cache key of an action's persisted history.
const HistoryKeyPrefix = "action-history:"

// HistoryKey returns the cache key for actionID.
func HistoryKey(actionID string) string {
	return HistoryKeyPrefix + actionID
}

// HistoryLoader fetches the persisted messages of an action.
type HistoryLoader interface {
	ListHistory(ctx context.Context, actionID string) ([]message.Message, error)
}

// QueryCache memoizes query results by key.
type QueryCache interface {
	Fetch(ctx context.Context, key string, load func(ctx context.Context) (any, error)) (any, error)
	Invalidate(key string)
}

// View is the transcript of one action.
type View struct {
	actionID string
	history  HistoryLoader
	cache    QueryCache
	policy   retry.Policy
	contexts *attachment.Store
	asm      *stream.Assembler
	log      zerolog.Logger

	mu        sync.RWMutex
	persisted []message.Message
	loaded    bool
}

func newView(actionID string, history HistoryLoader, cache QueryCache, policy retry.Policy, contexts *attachment.Store, opener stream.Opener, log zerolog.Logger, opts ...stream.Option) *View {
	return &View{
		actionID: actionID,
		history:  history,
		cache:    cache,
		policy:   policy,
		contexts: contexts,
		asm:      stream.NewAssembler(actionID, opener, contexts, log, opts...),
		log:      log.With().Str("component", "transcript").Str("action_id", actionID).Logger(),
	}
}

// ActionID returns the id of the action this view renders.
func (v *View) ActionID() string { return v.actionID }

// Load fetches persisted history through the query cache.
func (v *View) Load(ctx context.Context) error {
	msgs, err := v.fetch(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	v.persisted = message.CloneAll(msgs)
	v.loaded = true
	v.mu.Unlock()
	v.log.Debug().Int("messages", len(msgs)).Msg("history loaded")
	return nil
}

// Refetch drops the cached history and loads it again. The server history then
// covers every finished turn, so the live transcript is cleared in the same step.
func (v *View) Refetch(ctx context.Context) error {
	if v.asm.IsActive() {
		return chaterrors.ErrBusy.WithAction(v.actionID)
	}
	v.cache.Invalidate(HistoryKey(v.actionID))
	msgs, err := v.fetch(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.asm.ResetTranscript(); err != nil {
		return err
	}
	v.persisted = message.CloneAll(msgs)
	v.loaded = true
	v.log.Debug().Int("messages", len(msgs)).Msg("history refetched")
	return nil
}

func (v *View) fetch(ctx context.Context) ([]message.Message, error) {
	key := HistoryKey(v.actionID)
	result, err := v.cache.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return retry.ExecuteWithResult(ctx, v.policy, func(ctx context.Context, attempt int) ([]message.Message, error) {
			if attempt > 0 {
				v.log.Debug().Int("attempt", attempt).Msg("retrying history load")
			}
			return v.history.ListHistory(ctx, v.actionID)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", v.actionID, err)
	}

	msgs, ok := result.([]message.Message)
	if !ok {
		return nil, fmt.Errorf("load history for %s: unexpected cache value %T", v.actionID, result)
	}
	return msgs, nil
}

// Loaded reports whether history has been fetched at least once.
func (v *View) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// History returns a copy of the persisted messages.
func (v *View) History() []message.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return message.CloneAll(v.persisted)
}

// Messages returns persisted history followed by live messages.
func (v *View) Messages() []message.Message {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := message.CloneAll(v.persisted)
	return append(out, v.asm.Messages()...)
}

func (v *View) Invoke(ctx context.Context, prompt string) error {
	return v.asm.Invoke(ctx, prompt)
}

func (v *View) Stop() { v.asm.Stop() }

func (v *View) Wait(ctx context.Context) error { return v.asm.Wait(ctx) }

func (v *View) IsActive() bool { return v.asm.IsActive() }

func (v *View) State() status.Status { return v.asm.State() }

func (v *View) Subscribe(fn func(stream.Update)) func() { return v.asm.Subscribe(fn) }

func (v *View) Contexts() []message.Attachment { return v.contexts.Contexts() }

func (v *View) AddContext(a message.Attachment) bool { return v.contexts.Add(a) }

func (v *View) RemoveContext(id string) { v.contexts.Remove(id) }

// Close tears down any open stream.
func (v *View) Close() error { return v.asm.Close() }
