package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorKinds(t *testing.T) {
	assert.Equal(t, KindNotFound, NewNotFound("x").Kind)
	assert.Equal(t, KindInvalidState, NewInvalidState("x").Kind)
	assert.Equal(t, KindTransactionConflict, NewTransactionConflict("x", nil).Kind)
	assert.Equal(t, KindIntegrityViolation, NewIntegrityViolation("x", nil).Kind)
}

func TestAppErrorRetryable(t *testing.T) {
	assert.True(t, NewTransactionConflict("conflict", nil).Retryable())
	assert.False(t, NewNotFound("x").Retryable())
	assert.False(t, NewInvalidState("x").Retryable())
	assert.False(t, NewIntegrityViolation("x", nil).Retryable())
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("deadlock found")
	err := NewTransactionConflict("答题事务冲突", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "TRANSACTION_CONFLICT")
	assert.Contains(t, err.Error(), "deadlock found")
}

func TestAsAppError(t *testing.T) {
	appErr := NewInvalidState("没有进行中的阅读会话")
	wrapped := fmt.Errorf("processing: %w", appErr)

	got := AsAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, KindInvalidState, got.Kind)

	assert.Nil(t, AsAppError(errors.New("plain")))
	assert.Nil(t, AsAppError(nil))
}

func TestSentinelErrors(t *testing.T) {
	require.NotNil(t, AsAppError(ErrUserNotFound))
	assert.Equal(t, KindNotFound, AsAppError(ErrUserNotFound).Kind)
	assert.Equal(t, KindNotFound, AsAppError(ErrArticleNotFound).Kind)
	assert.Equal(t, KindNotFound, AsAppError(ErrQuestionNotFound).Kind)
}
