package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-actions/internal/domain/action"
	chaterrors "github.com/janhq/jan-actions/internal/domain/errors"
	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/status"
	"github.com/janhq/jan-actions/internal/domain/transcript"
	"github.com/janhq/jan-actions/internal/infrastructure/backend"
)

// DataResponse mirrors the backend success envelope.
type DataResponse[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

// ErrorBody carries the error message.
type ErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse mirrors the backend error envelope.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// TranscriptPayload is the rendered transcript of one action.
type TranscriptPayload struct {
	ActionID string            `json:"actionId"`
	State    status.Status     `json:"state"`
	IsActive bool              `json:"isActive"`
	Messages []message.Message `json:"messages"`
}

// FromView renders a transcript view.
func FromView(v *transcript.View) TranscriptPayload {
	state := v.State()
	return TranscriptPayload{
		ActionID: v.ActionID(),
		State:    state,
		IsActive: state.IsActive(),
		Messages: v.Messages(),
	}
}

// OK writes a success envelope.
func OK[T any](c *gin.Context, code int, data T) {
	c.JSON(code, DataResponse[T]{Success: true, Data: data})
}

// HandleError maps domain and backend errors to HTTP responses.
func HandleError(c *gin.Context, err error, message string) {
	code := StatusFor(err)
	body := ErrorBody{Code: chaterrors.Code(err), Message: message}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		body.Message = apiErr.Message
	}
	c.AbortWithStatusJSON(code, ErrorResponse{Success: false, Error: body})
}

// HandleNewError rejects a request at the route layer.
func HandleNewError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Success: false, Error: ErrorBody{Message: message}})
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, chaterrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, chaterrors.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 500 {
			return http.StatusBadGateway
		}
		return apiErr.StatusCode
	case errors.Is(err, action.ErrCreationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
