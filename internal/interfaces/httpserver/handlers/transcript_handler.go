package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/domain/status"
	"github.com/janhq/jan-actions/internal/domain/stream"
	"github.com/janhq/jan-actions/internal/domain/transcript"
	"github.com/janhq/jan-actions/internal/interfaces/httpserver/requests"
	"github.com/janhq/jan-actions/internal/interfaces/httpserver/responses"
)

// Views resolves the mounted transcript view of an action.
type Views interface {
	View(actionID string) *transcript.View
}

// TranscriptHandler exposes an action's transcript and its message stream.
type TranscriptHandler struct {
	views Views
	log   zerolog.Logger
}

// NewTranscriptHandler constructs the handler.
func NewTranscriptHandler(views Views, log zerolog.Logger) *TranscriptHandler {
	return &TranscriptHandler{
		views: views,
		log:   log.With().Str("handler", "transcript").Logger(),
	}
}

// Get handles GET /v1/actions/:action_id/messages
func (h *TranscriptHandler) Get(c *gin.Context) {
	v, ok := h.loadedView(c)
	if !ok {
		return
	}
	responses.OK(c, http.StatusOK, responses.FromView(v))
}

// Send handles POST /v1/actions/:action_id/messages and re-streams every
// transcript update as SSE until the response completes or fails.
func (h *TranscriptHandler) Send(c *gin.Context) {
	var req requests.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, http.StatusBadRequest, err.Error())
		return
	}
	v, ok := h.loadedView(c)
	if !ok {
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		responses.HandleNewError(c, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := c.Request.Context()
	updates := make(chan stream.Update, 256)
	unsubscribe := v.Subscribe(func(u stream.Update) {
		select {
		case updates <- u:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	if err := v.Invoke(ctx, req.Prompt); err != nil {
		h.log.Warn().Err(err).Str("action_id", v.ActionID()).Msg("invoke rejected")
		responses.HandleError(c, err, "failed to send message")
		return
	}

	prepareSSE(c)
	out := newSSEWriter(c.Writer, flusher, h.log)
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			if u.State.IsActive() {
				out.send("message", u.Message)
				continue
			}
			if u.State == status.StatusIdle {
				out.send("done", u.Message)
			} else {
				out.send("failed", u.Message)
			}
			return
		}
	}
}

// Refresh handles POST /v1/actions/:action_id/refresh
func (h *TranscriptHandler) Refresh(c *gin.Context) {
	v := h.views.View(c.Param("action_id"))
	if err := v.Refetch(c.Request.Context()); err != nil {
		responses.HandleError(c, err, "failed to refresh history")
		return
	}
	responses.OK(c, http.StatusOK, responses.FromView(v))
}

func (h *TranscriptHandler) loadedView(c *gin.Context) (*transcript.View, bool) {
	v := h.views.View(c.Param("action_id"))
	if v.Loaded() {
		return v, true
	}
	if err := v.Load(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Str("action_id", v.ActionID()).Msg("failed to load history")
		responses.HandleError(c, err, "failed to load history")
		return nil, false
	}
	return v, true
}

func prepareSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
}

type sseWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	log     zerolog.Logger
	mu      sync.Mutex
}

func newSSEWriter(w http.ResponseWriter, flusher http.Flusher, log zerolog.Logger) *sseWriter {
	return &sseWriter{writer: w, flusher: flusher, log: log}
}

func (o *sseWriter) send(name string, payload any) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		o.log.Error().Err(err).Str("event", name).Msg("failed to marshal sse payload")
		return
	}
	if _, err := fmt.Fprintf(o.writer, "event: %s\ndata: %s\n\n", name, data); err != nil {
		o.log.Debug().Err(err).Msg("sse client went away")
		return
	}
	o.flusher.Flush()
}
