package errors

import (
	"net/http"
	"testing"

	"citas/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestBaseError_WithDetailsKeepsIdentity(t *testing.T) {
	err := ErrUpstreamRejected.WithDetails("NIT inválido")

	assert.True(t, errors.Is(err, ErrUpstreamRejected))
	assert.False(t, errors.Is(err, ErrUpstreamUnavailable))
	assert.Equal(t, "NIT inválido", err.Details())
	assert.Empty(t, ErrUpstreamRejected.Details())
}

func TestBaseError_WrapMessage(t *testing.T) {
	err := ErrStorageFailed.WrapMessage("write slot")

	var appErr AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPCode())
	assert.Equal(t, "STORAGE_FAILED", appErr.ErrorCode())
	assert.True(t, errors.Is(err, ErrStorageFailed))
}

func TestDatabaseExecuteError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewDatabaseExecuteError(cause, "failed to read storage slot")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "DATABASE_EXECUTE_FAILED", err.ErrorCode())
	assert.Contains(t, err.Error(), "connection reset")
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "predefined", err: ErrSessionNotFound, want: KindNotFound},
		{name: "with details", err: ErrDuplicateInsured.WithDetails("CI 123"), want: KindConflict},
		{name: "wrapped", err: ErrUpstreamUnavailable.WrapMessage("dial tcp"), want: KindTransport},
		{name: "database", err: NewDatabaseExecuteError(errors.New("timeout"), "failed to write storage slot"), want: KindTransport},
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
