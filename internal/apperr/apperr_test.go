package apperr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsCategoryAndCause(t *testing.T) {
	err := Wrap(ErrTimeout, "command.run", context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrExecution)
	assert.Equal(t, "command.run: timeout: context deadline exceeded", err.Error())
}

func TestError_MessageOnly(t *testing.T) {
	err := New(ErrConfiguration, "", "unsupported dialect \"sqlite\"")
	assert.Equal(t, "configuration error: unsupported dialect \"sqlite\"", err.Error())
}

func TestKindOf(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), New(ErrInterrupted, "op", "cancelled"))

	assert.Equal(t, ErrInterrupted, KindOf(wrapped))
	assert.Nil(t, KindOf(errors.New("plain")))
}
