package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	chaterrors "github.com/janhq/jan-actions/internal/domain/errors"
)

var (
	// ErrMissingToken means no bearer token was configured or forwarded.
	ErrMissingToken = fmt.Errorf("no access token: %w", chaterrors.ErrUnauthorized)
	// ErrTokenExpired means the token's exp claim is in the past.
	ErrTokenExpired = fmt.Errorf("access token expired: %w", chaterrors.ErrUnauthorized)
)

// TokenSource supplies the bearer token for backend calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type contextKey string

const tokenKey contextKey = "actions-auth-token"

// ContextWithToken stores a caller's bearer token for downstream backend calls.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if ctx == nil || token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext extracts a forwarded bearer token if one was provided.
func TokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if token, ok := ctx.Value(tokenKey).(string); ok {
		return token
	}
	return ""
}

// StaticSource serves a configured token. A token forwarded in the context
// takes precedence.
type StaticSource struct {
	token string
	now   func() time.Time
}

func NewStaticSource(token string) *StaticSource {
	return &StaticSource{token: strings.TrimSpace(token), now: time.Now}
}

func (s *StaticSource) Token(ctx context.Context) (string, error) {
	token := TokenFromContext(ctx)
	if token == "" {
		token = s.token
	}
	if token == "" {
		return "", ErrMissingToken
	}
	if expired(token, s.now()) {
		return "", ErrTokenExpired
	}
	return token, nil
}

// expired reports whether a JWT's exp claim has passed. Opaque tokens never
// expire locally; the backend is the authority.
func expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// Middleware copies the caller's bearer token into the request context. With
// required set, requests without one are rejected.
func Middleware(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if required {
				abortUnauthorized(c, "missing bearer token")
				return
			}
			c.Next()
			return
		}
		if expired(token, time.Now()) {
			abortUnauthorized(c, "token expired")
			return
		}
		c.Request = c.Request.WithContext(ContextWithToken(c.Request.Context(), token))
		c.Next()
	}
}

// IsUnauthorized reports whether err means the user must log in again.
func IsUnauthorized(err error) bool {
	return errors.Is(err, chaterrors.ErrUnauthorized)
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"message": message},
	})
}
