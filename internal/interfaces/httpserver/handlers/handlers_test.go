package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/jan-actions/internal/domain/action"
	"github.com/janhq/jan-actions/internal/domain/attachment"
	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/retry"
	"github.com/janhq/jan-actions/internal/domain/stream"
	"github.com/janhq/jan-actions/internal/domain/transcript"
	"github.com/janhq/jan-actions/internal/infrastructure/backend"
	"github.com/janhq/jan-actions/internal/infrastructure/cache"
	"github.com/janhq/jan-actions/internal/interfaces/httpserver/handlers"
	"github.com/janhq/jan-actions/internal/interfaces/httpserver/routes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockInitiator is a mock implementation of handlers.Initiator.
type MockInitiator struct {
	InitiateFunc func(ctx context.Context, prompt string) (*message.Action, error)
}

func (m *MockInitiator) Initiate(ctx context.Context, prompt string) (*message.Action, error) {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, prompt)
	}
	return nil, nil
}

// MockLister is a mock implementation of handlers.ActionLister.
type MockLister struct {
	calls           atomic.Int32
	ListActionsFunc func(ctx context.Context, page int) ([]message.Action, error)
}

func (m *MockLister) ListActions(ctx context.Context, page int) ([]message.Action, error) {
	m.calls.Add(1)
	if m.ListActionsFunc != nil {
		return m.ListActionsFunc(ctx, page)
	}
	return nil, nil
}

// MockHistory is a mock implementation of transcript.HistoryLoader.
type MockHistory struct {
	ListHistoryFunc func(ctx context.Context, actionID string) ([]message.Message, error)
}

func (m *MockHistory) ListHistory(ctx context.Context, actionID string) ([]message.Message, error) {
	if m.ListHistoryFunc != nil {
		return m.ListHistoryFunc(ctx, actionID)
	}
	return nil, nil
}

type replaySource struct {
	mu     sync.Mutex
	events []stream.Event
}

func (s *replaySource) Recv() (stream.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return stream.Event{}, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

func (s *replaySource) Close() error { return nil }

// MockOpener replays a fixed event script on every open.
type MockOpener struct {
	mu       sync.Mutex
	events   []stream.Event
	err      error
	requests []stream.Request
}

func (o *MockOpener) Open(_ context.Context, req stream.Request) (stream.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, req)
	if o.err != nil {
		return nil, o.err
	}
	return &replaySource{events: append([]stream.Event(nil), o.events...)}, nil
}

type testServer struct {
	engine  *gin.Engine
	store   *attachment.Store
	manager *transcript.Manager
	opener  *MockOpener
}

func newTestServer(t *testing.T, initiator handlers.Initiator, lister handlers.ActionLister, history transcript.HistoryLoader) *testServer {
	t.Helper()
	queries, err := cache.New(16, zerolog.Nop())
	require.NoError(t, err)

	policy := retry.DefaultPolicy()
	policy.MaxRetries = 0

	store := attachment.NewStore()
	opener := &MockOpener{}
	manager := transcript.NewManager(history, opener, queries, store, &action.PendingPrompt{}, policy, zerolog.Nop(),
		stream.WithInvalidator(queries))
	t.Cleanup(func() { _ = manager.CloseAll() })

	provider := handlers.NewProvider(initiator, lister, manager, store, queries, zerolog.Nop())
	engine := gin.New()
	routes.NewProvider(provider).Register(engine)
	return &testServer{engine: engine, store: store, manager: manager, opener: opener}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestContextHandler_AddListRemoveClear(t *testing.T) {
	s := newTestServer(t, &MockInitiator{}, &MockLister{}, &MockHistory{})

	w := s.do(http.MethodPost, "/v1/context", map[string]any{"id": "e1", "name": "Email", "type": "email"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/v1/context", map[string]any{"id": "e1", "name": "Email", "type": "email"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/v1/context", map[string]any{"id": "n1", "type": "note"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, s.store.Len())

	w = s.do(http.MethodDelete, "/v1/context/e1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var remaining []message.Attachment
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &remaining))
	require.Len(t, remaining, 1)
	assert.Equal(t, "n1", remaining[0].ID)

	w = s.do(http.MethodDelete, "/v1/context", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, s.store.Len())

	w = s.do(http.MethodGet, "/v1/context", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestContextHandler_AddRequiresType(t *testing.T) {
	s := newTestServer(t, &MockInitiator{}, &MockLister{}, &MockHistory{})

	w := s.do(http.MethodPost, "/v1/context", map[string]any{"id": "e1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decode(t, w).Success)
}

func TestActionHandler_Create(t *testing.T) {
	var got string
	initiator := &MockInitiator{InitiateFunc: func(_ context.Context, prompt string) (*message.Action, error) {
		got = prompt
		return &message.Action{ID: "act-1"}, nil
	}}
	s := newTestServer(t, initiator, &MockLister{}, &MockHistory{})

	w := s.do(http.MethodPost, "/v1/actions", map[string]any{"prompt": "plan a trip"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "plan a trip", got)
	var created message.Action
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, "act-1", created.ID)
}

func TestActionHandler_CreateFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		err      error
		created  *message.Action
		wantCode int
	}{
		{
			name:     "missing prompt",
			body:     map[string]any{},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "creation failed",
			body:     map[string]any{"prompt": "hi"},
			err:      &action.CreationError{Prompt: "hi", Err: errors.New("backend down")},
			wantCode: http.StatusBadGateway,
		},
		{
			name:     "unauthorized",
			body:     map[string]any{"prompt": "hi"},
			err:      &action.CreationError{Prompt: "hi", Err: &backend.APIError{Operation: "create action", StatusCode: 401, Message: "login required"}},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "created but navigation failed",
			body:     map[string]any{"prompt": "hi"},
			created:  &message.Action{ID: "act-2"},
			err:      errors.New("history unavailable"),
			wantCode: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initiator := &MockInitiator{InitiateFunc: func(context.Context, string) (*message.Action, error) {
				return tt.created, tt.err
			}}
			s := newTestServer(t, initiator, &MockLister{}, &MockHistory{})

			w := s.do(http.MethodPost, "/v1/actions", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestActionHandler_ListIsCachedPerPage(t *testing.T) {
	lister := &MockLister{ListActionsFunc: func(_ context.Context, page int) ([]message.Action, error) {
		if page == 2 {
			return nil, nil
		}
		return []message.Action{{ID: "a1", Title: "Trip"}}, nil
	}}
	s := newTestServer(t, &MockInitiator{}, lister, &MockHistory{})

	w := s.do(http.MethodGet, "/v1/actions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/v1/actions?page=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), lister.calls.Load())

	var actions []message.Action
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &actions))
	require.Len(t, actions, 1)
	assert.Equal(t, "Trip", actions[0].Title)

	w = s.do(http.MethodGet, "/v1/actions?page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))
	assert.Equal(t, int32(2), lister.calls.Load())

	w = s.do(http.MethodGet, "/v1/actions?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranscriptHandler_GetLoadsHistory(t *testing.T) {
	history := &MockHistory{ListHistoryFunc: func(_ context.Context, actionID string) ([]message.Message, error) {
		assert.Equal(t, "act-1", actionID)
		return []message.Message{
			{ID: "m1", Role: message.RoleUser, Content: "hello"},
			{ID: "m2", Role: message.RoleAssistant, Content: "hi there"},
		}, nil
	}}
	s := newTestServer(t, &MockInitiator{}, &MockLister{}, history)

	w := s.do(http.MethodGet, "/v1/actions/act-1/messages", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var payload struct {
		ActionID string            `json:"actionId"`
		IsActive bool              `json:"isActive"`
		Messages []message.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &payload))
	assert.Equal(t, "act-1", payload.ActionID)
	assert.False(t, payload.IsActive)
	require.Len(t, payload.Messages, 2)
	assert.Equal(t, "hi there", payload.Messages[1].Content)
}

func TestTranscriptHandler_GetUnauthorized(t *testing.T) {
	history := &MockHistory{ListHistoryFunc: func(context.Context, string) ([]message.Message, error) {
		return nil, &backend.APIError{Operation: "list history", StatusCode: 401, Message: "token expired"}
	}}
	s := newTestServer(t, &MockInitiator{}, &MockLister{}, history)

	w := s.do(http.MethodGet, "/v1/actions/act-1/messages", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "token expired", decode(t, w).Error.Message)
}

func TestTranscriptHandler_SendStreamsUpdates(t *testing.T) {
	s := newTestServer(t, &MockInitiator{}, &MockLister{}, &MockHistory{})
	s.opener.events = []stream.Event{
		{Kind: stream.KindStatus, Text: "Searching"},
		{Kind: stream.KindChunk, Text: "Hel"},
		{Kind: stream.KindChunk, Text: "lo"},
		{Kind: stream.KindDone},
	}
	s.store.Add(message.Attachment{ID: "e1", Type: "email"})

	w := s.do(http.MethodPost, "/v1/actions/act-1/messages", map[string]any{"prompt": "hi"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: message\n")
	assert.Contains(t, body, `"status":"Searching"`)

	last := body[strings.LastIndex(body, "event: "):]
	assert.True(t, strings.HasPrefix(last, "event: done\n"), last)
	assert.Contains(t, last, `"content":"Hello"`)

	require.Len(t, s.opener.requests, 1)
	assert.Equal(t, "hi", s.opener.requests[0].Prompt)
	assert.Contains(t, s.opener.requests[0].Context, `"id":"e1"`)
	assert.Zero(t, s.store.Len())

	require.Eventually(t, func() bool {
		return !s.manager.View("act-1").IsActive()
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, s.manager.View("act-1").Messages(), 2)
}

func TestTranscriptHandler_SendOpenFailure(t *testing.T) {
	s := newTestServer(t, &MockInitiator{}, &MockLister{}, &MockHistory{})
	s.opener.err = &backend.APIError{Operation: "open stream", StatusCode: 503, Message: "unavailable"}

	w := s.do(http.MethodPost, "/v1/actions/act-1/messages", map[string]any{"prompt": "hi"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "unavailable", decode(t, w).Error.Message)
}

func TestTranscriptHandler_SendRequiresPrompt(t *testing.T) {
	s := newTestServer(t, &MockInitiator{}, &MockLister{}, &MockHistory{})

	w := s.do(http.MethodPost, "/v1/actions/act-1/messages", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, s.opener.requests)
}

func TestTranscriptHandler_RefreshReloadsHistory(t *testing.T) {
	var calls atomic.Int32
	history := &MockHistory{ListHistoryFunc: func(context.Context, string) ([]message.Message, error) {
		n := calls.Add(1)
		msgs := []message.Message{{ID: "m1", Role: message.RoleUser, Content: "hello"}}
		if n > 1 {
			msgs = append(msgs, message.Message{ID: "m2", Role: message.RoleAssistant, Content: "hi"})
		}
		return msgs, nil
	}}
	s := newTestServer(t, &MockInitiator{}, &MockLister{}, history)

	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/actions/act-1/messages", nil).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/actions/act-1/messages", nil).Code)
	assert.Equal(t, int32(1), calls.Load())

	w := s.do(http.MethodPost, "/v1/actions/act-1/refresh", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, s.manager.View("act-1").Messages(), 2)
}
