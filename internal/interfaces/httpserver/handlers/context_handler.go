package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/domain/attachment"
	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/interfaces/httpserver/requests"
	"github.com/janhq/jan-actions/internal/interfaces/httpserver/responses"
)

// ContextHandler manages the attachments pinned to the next message.
type ContextHandler struct {
	store *attachment.Store
	log   zerolog.Logger
}

// NewContextHandler constructs the handler.
func NewContextHandler(store *attachment.Store, log zerolog.Logger) *ContextHandler {
	return &ContextHandler{
		store: store,
		log:   log.With().Str("handler", "context").Logger(),
	}
}

// List handles GET /v1/context
func (h *ContextHandler) List(c *gin.Context) {
	responses.OK(c, http.StatusOK, h.contexts())
}

// Add handles POST /v1/context. Adding a pinned id again is a no-op.
func (h *ContextHandler) Add(c *gin.Context) {
	var req requests.AttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, http.StatusBadRequest, err.Error())
		return
	}
	code := http.StatusOK
	if h.store.Add(req.ToDomain()) {
		code = http.StatusCreated
		h.log.Debug().Str("attachment_id", req.ID).Str("type", req.Type).Msg("attachment pinned")
	}
	responses.OK(c, code, h.contexts())
}

// Remove handles DELETE /v1/context/:attachment_id
func (h *ContextHandler) Remove(c *gin.Context) {
	h.store.Remove(c.Param("attachment_id"))
	responses.OK(c, http.StatusOK, h.contexts())
}

// Clear handles DELETE /v1/context
func (h *ContextHandler) Clear(c *gin.Context) {
	h.store.Clear()
	responses.OK(c, http.StatusOK, h.contexts())
}

func (h *ContextHandler) contexts() []message.Attachment {
	return h.store.Contexts()
}
