package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-actions/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// Register attaches all v1 routes under the /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")
	registerActionRoutes(group, r.handlers.Action, r.handlers.Transcript)
	registerContextRoutes(group, r.handlers.Context)
}

func registerActionRoutes(router gin.IRoutes, actions *handlers.ActionHandler, transcripts *handlers.TranscriptHandler) {
	router.GET("/actions", actions.List)
	router.POST("/actions", actions.Create)
	router.GET("/actions/:action_id/messages", transcripts.Get)
	router.POST("/actions/:action_id/messages", transcripts.Send)
	router.POST("/actions/:action_id/refresh", transcripts.Refresh)
}

func registerContextRoutes(router gin.IRoutes, contexts *handlers.ContextHandler) {
	router.GET("/context", contexts.List)
	router.POST("/context", contexts.Add)
	router.DELETE("/context", contexts.Clear)
	router.DELETE("/context/:attachment_id", contexts.Remove)
}
