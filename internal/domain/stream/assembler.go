package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/domain/attachment"
	chaterrors "github.com/janhq/jan-actions/internal/domain/errors"
	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/status"
)

// ErrClosed is returned by Invoke after Close.
var ErrClosed = errors.New("assembler closed")

// Option customizes an Assembler.
type Option func(*Assembler)

// WithInvalidator sets the cache invalidated on title events.
func WithInvalidator(inv Invalidator) Option {
	return func(a *Assembler) {
		if inv != nil {
			a.invalidator = inv
		}
	}
}

// WithTelemetry sets the metrics/tracing hooks.
func WithTelemetry(t Telemetry) Option {
	return func(a *Assembler) {
		if t != nil {
			a.telemetry = t
		}
	}
}

// Assembler folds one action's stream events into a live transcript. At most
// one stream is open at a time.
type Assembler struct {
	actionID    string
	opener      Opener
	contexts    *attachment.Store
	invalidator Invalidator
	telemetry   Telemetry
	log         zerolog.Logger

	mu       sync.Mutex
	state    status.Status
	messages []message.Message
	inflight int // index of the in-flight assistant message, -1 when none
	source   Source
	cancel   context.CancelFunc
	done     chan struct{}
	subs     map[int]func(Update)
	nextSub  int
}

// NewAssembler constructs an idle assembler for actionID.
func NewAssembler(actionID string, opener Opener, contexts *attachment.Store, log zerolog.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		actionID:    actionID,
		opener:      opener,
		contexts:    contexts,
		invalidator: noopInvalidator{},
		telemetry:   noopTelemetry{},
		log:         log.With().Str("component", "assembler").Str("action_id", actionID).Logger(),
		state:       status.StatusIdle,
		inflight:    -1,
		subs:        make(map[int]func(Update)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Invoke sends prompt with the currently pinned attachments and starts folding
// the response stream. It returns once the stream is open; the stream lives
// until completion, failure, cancellation of ctx, or Close.
func (a *Assembler) Invoke(ctx context.Context, prompt string) error {
	a.mu.Lock()
	if a.state == status.StatusClosed {
		a.mu.Unlock()
		return ErrClosed
	}
	if !a.state.CanSend() {
		a.mu.Unlock()
		return chaterrors.ErrBusy.WithAction(a.actionID)
	}

	captured := a.contexts.Drain()
	user := message.NewUserMessage(prompt, captured)
	placeholder := message.NewAssistantPlaceholder()
	a.messages = append(a.messages, user, placeholder)
	a.inflight = len(a.messages) - 1

	streamCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.state = status.StatusActive
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	a.notify(Update{Message: user.Clone(), State: status.StatusActive})
	a.notify(Update{Message: placeholder.Clone(), State: status.StatusActive})

	spanCtx, finish := a.telemetry.InvokeStarted(streamCtx, a.actionID, len(captured))
	a.log.Info().Int("attachments", len(captured)).Int("prompt_len", len(prompt)).Msg("opening stream")

	encoded, err := EncodeContext(captured)
	if err != nil {
		a.terminate(nil, cancel, done, finish, err)
		return err
	}

	src, err := a.opener.Open(spanCtx, Request{
		ActionID: a.actionID,
		Prompt:   prompt,
		Context:  encoded,
	})
	if err != nil {
		a.terminate(nil, cancel, done, finish, err)
		return err
	}

	a.mu.Lock()
	if a.state == status.StatusClosed {
		a.mu.Unlock()
		a.terminate(src, cancel, done, finish, chaterrors.ErrStreamClosed)
		return chaterrors.ErrStreamClosed.WithAction(a.actionID)
	}
	a.source = src
	a.mu.Unlock()

	go a.pump(spanCtx, src, cancel, done, finish)
	return nil
}

// Stop is part of the chat contract but the backend exposes no cancellation
// endpoint, so it does nothing. Use Close to tear the stream down locally.
func (a *Assembler) Stop() {}

// Close tears down any open stream and waits for the pump to exit. The
// assembler accepts no further invokes.
func (a *Assembler) Close() error {
	a.mu.Lock()
	if a.state == status.StatusClosed {
		done := a.done
		a.mu.Unlock()
		if done != nil {
			<-done
		}
		return nil
	}
	a.state = status.StatusClosed
	cancel, src, done := a.cancel, a.source, a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if src != nil {
		_ = src.Close()
	}
	if done != nil {
		<-done
	}
	return nil
}

// Wait blocks until the current stream, if any, has terminated.
func (a *Assembler) Wait(ctx context.Context) error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsActive reports whether a stream is open; callers disable sending while true.
func (a *Assembler) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.IsActive()
}

// State returns the current lifecycle status.
func (a *Assembler) State() status.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Messages returns a copy of the live transcript.
func (a *Assembler) Messages() []message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return message.CloneAll(a.messages)
}

// ResetTranscript drops the live messages once they have been persisted
// server-side. It fails with ErrBusy while a stream is open.
func (a *Assembler) ResetTranscript() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.state == status.StatusClosed:
		return ErrClosed
	case a.state.IsActive():
		return chaterrors.ErrBusy.WithAction(a.actionID)
	}
	a.messages = nil
	return nil
}

// Subscribe registers fn for every transcript update and returns its cancel func.
// Updates for one stream are delivered sequentially in fold order.
func (a *Assembler) Subscribe(fn func(Update)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

func (a *Assembler) pump(ctx context.Context, src Source, cancel context.CancelFunc, done chan struct{}, finish func(status.Status, error)) {
	for {
		ev, err := src.Recv()
		if err != nil {
			a.terminate(src, cancel, done, finish, a.classifyRecvErr(ctx, err))
			return
		}

		a.telemetry.EventApplied(ctx, ev.Kind)
		a.log.Debug().Str("kind", string(ev.Kind)).Msg("stream event")

		if ev.Kind == KindDone {
			a.terminate(src, cancel, done, finish, nil)
			return
		}
		a.apply(ev)
	}
}

func (a *Assembler) classifyRecvErr(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return chaterrors.ErrStreamClosed.WithAction(a.actionID)
	case errors.Is(err, io.EOF):
		return chaterrors.ErrPrematureEOF.WithAction(a.actionID)
	case errors.Is(err, ErrMalformedEvent):
		return chaterrors.WrapMalformed(err).WithAction(a.actionID)
	default:
		var ce *chaterrors.ChatError
		if errors.As(err, &ce) {
			return err
		}
		return chaterrors.WrapTransport(err).WithAction(a.actionID)
	}
}

func (a *Assembler) apply(ev Event) {
	if ev.Kind == KindTitle {
		a.invalidator.Invalidate(ActionsListKey)
		return
	}

	a.mu.Lock()
	if a.state != status.StatusActive || a.inflight < 0 {
		a.mu.Unlock()
		return
	}
	m := &a.messages[a.inflight]
	switch ev.Kind {
	case KindChunk:
		m.Content += ev.Text
		m.IsStarting = false
	case KindStatus:
		m.Status = ev.Text
	}
	update := Update{Message: m.Clone(), State: a.state}
	a.mu.Unlock()

	a.notify(update)
}

// terminate ends the current invoke. A nil err means the stream completed.
func (a *Assembler) terminate(src Source, cancel context.CancelFunc, done chan struct{}, finish func(status.Status, error), err error) {
	defer close(done)
	if src != nil {
		_ = src.Close()
	}
	cancel()

	a.mu.Lock()
	var update Update
	if a.inflight >= 0 {
		m := &a.messages[a.inflight]
		if err != nil {
			m.Failed = true
			m.Error = failureReason(err)
		}
		update.Message = m.Clone()
	}
	switch {
	case a.state == status.StatusClosed:
	case err != nil:
		a.state = status.StatusFailed
	default:
		a.state = status.StatusIdle
	}
	update.State = a.state
	a.inflight = -1
	a.source = nil
	a.cancel = nil
	a.mu.Unlock()

	if err != nil {
		a.log.Warn().Err(err).Str("state", update.State.String()).Msg("stream terminated")
	} else {
		a.log.Info().Msg("stream completed")
	}

	a.notify(update)
	finish(update.State, err)
}

func (a *Assembler) notify(u Update) {
	a.mu.Lock()
	subs := make([]func(Update), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		fn(u)
	}
}

func failureReason(err error) string {
	var ce *chaterrors.ChatError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
