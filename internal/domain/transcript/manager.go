package transcript

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/domain/action"
	"github.com/janhq/jan-actions/internal/domain/attachment"
	"github.com/janhq/jan-actions/internal/domain/retry"
	"github.com/janhq/jan-actions/internal/domain/stream"
)

// ErrNoView is returned when no view has been mounted yet.
var ErrNoView = errors.New("no action selected")

// Manager keeps one mounted View per action and implements action.Navigator.
type Manager struct {
	history  HistoryLoader
	opener   stream.Opener
	cache    QueryCache
	contexts *attachment.Store
	pending  *action.PendingPrompt
	policy   retry.Policy
	opts     []stream.Option
	log      zerolog.Logger

	mu      sync.Mutex
	views   map[string]*View
	current string
}

var _ action.Navigator = (*Manager)(nil)

func NewManager(
	history HistoryLoader,
	opener stream.Opener,
	cache QueryCache,
	contexts *attachment.Store,
	pending *action.PendingPrompt,
	policy retry.Policy,
	log zerolog.Logger,
	opts ...stream.Option,
) *Manager {
	return &Manager{
		history:  history,
		opener:   opener,
		cache:    cache,
		contexts: contexts,
		pending:  pending,
		policy:   policy,
		opts:     opts,
		log:      log,
		views:    make(map[string]*View),
	}
}

// View returns the mounted view for actionID, mounting it without loading if needed.
func (m *Manager) View(actionID string) *View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked(actionID)
}

func (m *Manager) viewLocked(actionID string) *View {
	v, ok := m.views[actionID]
	if !ok {
		v = newView(actionID, m.history, m.cache, m.policy, m.contexts, m.opener, m.log, m.opts...)
		m.views[actionID] = v
	}
	return v
}

// Navigate mounts the view for actionID and loads its history. A pending first
// prompt is consumed up front and sent on the new view even when the history
// load fails.
func (m *Manager) Navigate(ctx context.Context, actionID string) error {
	m.mu.Lock()
	v := m.viewLocked(actionID)
	m.current = actionID
	m.mu.Unlock()

	prompt := m.pending.Take()
	loadErr := v.Load(ctx)
	if prompt == "" {
		return loadErr
	}
	if loadErr != nil {
		m.log.Warn().Err(loadErr).Str("action_id", actionID).Msg("history unavailable, sending first prompt anyway")
	}
	m.log.Info().Str("action_id", actionID).Msg("sending first prompt")
	// The stream outlives the navigation call; Close tears it down.
	return errors.Join(loadErr, v.Invoke(context.WithoutCancel(ctx), prompt))
}

// Current returns the most recently navigated view.
func (m *Manager) Current() (*View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		return nil, ErrNoView
	}
	return m.views[m.current], nil
}

// Close unmounts the view for actionID.
func (m *Manager) Close(actionID string) error {
	m.mu.Lock()
	v, ok := m.views[actionID]
	delete(m.views, actionID)
	if m.current == actionID {
		m.current = ""
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return v.Close()
}

// CloseAll unmounts every view.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	views := m.views
	m.views = make(map[string]*View)
	m.current = ""
	m.mu.Unlock()

	var errs []error
	for _, v := range views {
		if err := v.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
