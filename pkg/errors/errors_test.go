package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *errors.AppError
		want string
	}{
		{
			name: "code and message",
			err:  errors.New(errors.ErrCodeRoomFull, "room is full"),
			want: "[ROOM_FULL] room is full",
		},
		{
			name: "with details",
			err:  errors.ErrMalformedMessage.WithDetails("unknown chat_type"),
			want: "[INVALID_INPUT] malformed client message (unknown chat_type)",
		},
		{
			name: "wrapped cause",
			err:  errors.Wrap(fmt.Errorf("boom"), errors.ErrCodeInternal, "encode frame"),
			want: "[INTERNAL_ERROR] encode frame: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_IsAndHelpers(t *testing.T) {
	wrapped := fmt.Errorf("advance room r1: %w", errors.ErrMissingSwarm)

	assert.True(t, stderrors.Is(wrapped, errors.ErrMissingSwarm))
	assert.True(t, errors.IsInvariant(wrapped))
	assert.False(t, errors.IsInvalidInput(wrapped))

	assert.True(t, errors.IsInvalidInput(errors.ErrMalformedMessage.WithDetails("x")))
	assert.True(t, errors.IsRoomFull(errors.ErrRoomFull))
	assert.True(t, errors.IsNotFound(errors.ErrRoomNotFound))
	assert.True(t, errors.IsUnavailable(errors.ErrRegistryClosed))
	assert.False(t, errors.IsNotFound(fmt.Errorf("plain")))
}

func TestAppError_WithDetailsDoesNotMutate(t *testing.T) {
	_ = errors.ErrRoomFull.WithDetails("r1")
	assert.Empty(t, errors.ErrRoomFull.Details)
}

func TestAppError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := errors.Wrap(cause, errors.ErrCodeUnavailable, "redis unavailable")
	assert.Same(t, cause, stderrors.Unwrap(err))
}
