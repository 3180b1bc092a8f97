package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/stream"
	"github.com/janhq/jan-actions/internal/infrastructure/cache"
	"github.com/janhq/jan-actions/internal/interfaces/httpserver/requests"
	"github.com/janhq/jan-actions/internal/interfaces/httpserver/responses"
)

// Initiator starts a new action from a first prompt.
type Initiator interface {
	Initiate(ctx context.Context, prompt string) (*message.Action, error)
}

// ActionLister pages through the user's actions.
type ActionLister interface {
	ListActions(ctx context.Context, page int) ([]message.Action, error)
}

// ActionHandler exposes action creation and listing.
type ActionHandler struct {
	initiator Initiator
	lister    ActionLister
	cache     *cache.Cache
	log       zerolog.Logger

	creating atomic.Bool
}

// NewActionHandler constructs the handler.
func NewActionHandler(initiator Initiator, lister ActionLister, queries *cache.Cache, log zerolog.Logger) *ActionHandler {
	return &ActionHandler{
		initiator: initiator,
		lister:    lister,
		cache:     queries,
		log:       log.With().Str("handler", "action").Logger(),
	}
}

// List handles GET /v1/actions
func (h *ActionHandler) List(c *gin.Context) {
	var q requests.ListActionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		responses.HandleNewError(c, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key(stream.ActionsListKey, strconv.Itoa(q.Page))
	actions, err := cache.FetchAs(c.Request.Context(), h.cache, key, func(ctx context.Context) ([]message.Action, error) {
		return h.lister.ListActions(ctx, q.Page)
	})
	if err != nil {
		responses.HandleError(c, err, "failed to list actions")
		return
	}
	if actions == nil {
		actions = []message.Action{}
	}
	responses.OK(c, http.StatusOK, actions)
}

// Create handles POST /v1/actions. Only one creation runs at a time.
func (h *ActionHandler) Create(c *gin.Context) {
	var req requests.PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, http.StatusBadRequest, err.Error())
		return
	}

	if !h.creating.CompareAndSwap(false, true) {
		responses.HandleNewError(c, http.StatusConflict, "an action is already being created")
		return
	}
	defer h.creating.Store(false)

	created, err := h.initiator.Initiate(c.Request.Context(), req.Prompt)
	if err != nil && created == nil {
		h.log.Error().Err(err).Msg("failed to create action")
		responses.HandleError(c, err, "failed to create action")
		return
	}
	if err != nil {
		// The action exists; only opening it failed. The client can retry via GET messages.
		h.log.Warn().Err(err).Str("action_id", created.ID).Msg("action created but not opened")
	}
	responses.OK(c, http.StatusCreated, created)
}
