package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	err := New(CodeValidation, "title is required")
	wrapped := fmt.Errorf("submit: %w", err)

	assert.True(t, HasCode(wrapped, CodeValidation))
	assert.False(t, HasCode(wrapped, CodeNetwork))
	assert.False(t, HasCode(nil, CodeInternal))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeNetwork, "request failed").WithStatus(0)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "request failed: connection refused", err.Error())
	assert.True(t, Retryable(err))
}

func TestStatusOf(t *testing.T) {
	err := New(CodeAPI, "Failed to submit report").WithStatus(500)

	assert.Equal(t, 500, StatusOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, 0, StatusOf(errors.New("plain")))
	assert.False(t, Retryable(New(CodeSessionExpired, "expired")))
}
