// Package backend talks to the actions REST API and its per-action event stream.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/janhq/jan-actions/internal/config"
	"github.com/janhq/jan-actions/internal/domain/action"
	"github.com/janhq/jan-actions/internal/domain/message"
	"github.com/janhq/jan-actions/internal/domain/stream"
	"github.com/janhq/jan-actions/internal/domain/transcript"
	"github.com/janhq/jan-actions/internal/infrastructure/auth"
	"github.com/janhq/jan-actions/internal/infrastructure/metrics"
	"github.com/janhq/jan-actions/internal/infrastructure/observability"
	"github.com/janhq/jan-actions/internal/infrastructure/telemetry"
)

// envelope is the backend's response wrapper.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
}

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client is a Resty-backed actions API client.
type Client struct {
	httpClient   *resty.Client
	streamClient *resty.Client
	tokens       auth.TokenSource
	sanitizer    *telemetry.Sanitizer
	log          zerolog.Logger
}

var (
	_ action.Creator           = (*Client)(nil)
	_ transcript.HistoryLoader = (*Client)(nil)
	_ stream.Opener            = (*Client)(nil)
)

// NewClient creates the client. The stream client has no overall timeout since
// a response may stream for minutes.
func NewClient(cfg *config.Config, tokens auth.TokenSource, sanitizer *telemetry.Sanitizer, log zerolog.Logger) *Client {
	return &Client{
		httpClient: resty.New().
			SetBaseURL(cfg.APIURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(cfg.RequestTimeout),
		streamClient: resty.New().
			SetBaseURL(cfg.APIURL).
			SetHeader("Accept", "text/event-stream").
			SetHeader("Cache-Control", "no-cache"),
		tokens:    tokens,
		sanitizer: sanitizer,
		log:       log.With().Str("component", "backend").Logger(),
	}
}

// CreateAction calls POST /actions.
func (c *Client) CreateAction(ctx context.Context) (*message.Action, error) {
	var out envelope[message.Action]
	if err := c.do(ctx, "create_action", http.MethodPost, "/actions", nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ListActions calls GET /actions?page=.
func (c *Client) ListActions(ctx context.Context, page int) ([]message.Action, error) {
	var out envelope[[]message.Action]
	query := map[string]string{"page": strconv.Itoa(page)}
	if err := c.do(ctx, "list_actions", http.MethodGet, "/actions", query, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ListHistory calls GET /actions/{id}/history.
func (c *Client) ListHistory(ctx context.Context, actionID string) ([]message.Message, error) {
	var out envelope[[]message.Message]
	if err := c.do(ctx, "list_history", http.MethodGet, "/actions/{id}/history", map[string]string{"id": actionID}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Open calls GET /actions/{id}/stream and returns the event source. The token
// travels in the query string as the endpoint is built for EventSource clients.
func (c *Client) Open(ctx context.Context, req stream.Request) (stream.Source, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	ctx, span := observability.StartBackendSpan(ctx, "open_stream")
	defer span.End()

	resp, err := c.streamClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetPathParam("id", req.ActionID).
		SetQueryParams(map[string]string{
			"token":   token,
			"prompt":  req.Prompt,
			"context": req.Context,
		}).
		Get("/actions/{id}/stream")
	if err != nil {
		metrics.RecordBackendRequest("open_stream", "error", time.Since(started).Seconds())
		observability.RecordError(span, err, "retryable")
		return nil, fmt.Errorf("open stream: %w", err)
	}

	c.log.Debug().
		Str("url", telemetry.RedactURL(resp.Request.RawRequest.URL.String())).
		Str("token", telemetry.RedactToken(token)).
		Str("prompt", c.sanitizer.SanitizePrompt(req.Prompt)).
		Int("status", resp.StatusCode()).
		Msg("stream opened")
	metrics.RecordBackendRequest("open_stream", strconv.Itoa(resp.StatusCode()), time.Since(started).Seconds())

	body := resp.RawBody()
	if resp.StatusCode() != http.StatusOK {
		defer body.Close()
		apiErr := &APIError{Operation: "open_stream", StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
		var env errorEnvelope
		if json.NewDecoder(body).Decode(&env) == nil && env.Error.Message != "" {
			apiErr.Message = env.Error.Message
		}
		observability.RecordError(span, apiErr, "user")
		return nil, apiErr
	}
	if ct := resp.Header().Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		body.Close()
		return nil, &APIError{Operation: "open_stream", StatusCode: resp.StatusCode(), Message: "unexpected content type " + ct}
	}

	return newSSESource(body), nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, params map[string]string, result any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	started := time.Now()
	ctx, span := observability.StartBackendSpan(ctx, operation)
	defer span.End()

	var apiErr errorEnvelope
	request := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(result).
		SetError(&apiErr)
	for k, v := range params {
		if strings.Contains(path, "{"+k+"}") {
			request.SetPathParam(k, v)
		} else {
			request.SetQueryParam(k, v)
		}
	}

	resp, err := request.Execute(method, path)
	if err != nil {
		metrics.RecordBackendRequest(operation, "error", time.Since(started).Seconds())
		observability.RecordError(span, err, "retryable")
		c.log.Warn().Err(err).Str("operation", operation).Msg("backend request failed")
		return fmt.Errorf("%s: %w", operation, err)
	}

	metrics.RecordBackendRequest(operation, strconv.Itoa(resp.StatusCode()), time.Since(started).Seconds())
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		e := &APIError{Operation: operation, StatusCode: resp.StatusCode(), Message: msg}
		observability.RecordError(span, e, "user")
		c.log.Warn().Str("operation", operation).Int("status", resp.StatusCode()).Str("error", msg).Msg("backend returned error")
		return e
	}
	c.log.Debug().
		Str("operation", operation).
		Str("token", telemetry.RedactToken(token)).
		Dur("elapsed", time.Since(started)).
		Msg("backend request")
	return nil
}
