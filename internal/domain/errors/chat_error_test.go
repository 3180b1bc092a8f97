package errors_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	chaterrors "github.com/janhq/jan-actions/internal/domain/errors"
	"github.com/janhq/jan-actions/internal/domain/status"
)

func TestChatError_Error(t *testing.T) {
	err := chaterrors.WrapTransport(io.ErrUnexpectedEOF)

	assert.Equal(t, "TRANSPORT_ERROR: stream transport failed (caused by: unexpected EOF)", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestChatError_IsMatchesSentinelByCode(t *testing.T) {
	err := fmt.Errorf("invoke: %w", chaterrors.ErrBusy.WithAction("act-1"))

	assert.ErrorIs(t, err, chaterrors.ErrBusy)
	assert.NotErrorIs(t, err, chaterrors.ErrStreamClosed)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want status.ErrorSeverity
	}{
		{"nil", nil, ""},
		{"chat error keeps severity", chaterrors.ErrUnauthorized, status.ErrorSeverityUser},
		{"wrapped chat error", fmt.Errorf("x: %w", chaterrors.WrapMalformed(errors.New("bad"))), status.ErrorSeverityFatal},
		{"cancelled is fatal", context.Canceled, status.ErrorSeverityFatal},
		{"deadline is retryable", context.DeadlineExceeded, status.ErrorSeverityRetryable},
		{"unknown defaults to retryable", errors.New("boom"), status.ErrorSeverityRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chaterrors.Classify(tt.err))
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, chaterrors.ErrCodePrematureEOF, chaterrors.Code(chaterrors.ErrPrematureEOF))
	assert.Empty(t, chaterrors.Code(errors.New("plain")))
}
