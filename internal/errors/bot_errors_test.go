package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errShortSeries = stderrors.New("insufficient data")

func TestCategorizeError_UsesClassifiersFirst(t *testing.T) {
	err := fmt.Errorf("RSI: %w", errShortSeries)
	botErr := CategorizeError(err, "engine", "entry",
		Classifier{Target: errShortSeries, Category: ErrorCategoryInsufficientData})

	require.NotNil(t, botErr)
	assert.Equal(t, ErrorCategoryInsufficientData, botErr.Category)
	assert.Equal(t, RecoveryActionSkip, botErr.GetRecoveryAction())
	assert.ErrorIs(t, botErr, errShortSeries)
}

func TestCategorizeError_Fallbacks(t *testing.T) {
	assert.Nil(t, CategorizeError(nil, "x", "y"))

	timeout := CategorizeError(fmt.Errorf("klines: %w", context.DeadlineExceeded), "fetcher", "klines")
	assert.Equal(t, ErrorCategoryTimeout, timeout.Category)
	assert.True(t, timeout.Retryable)
	assert.Equal(t, RecoveryActionRetry, timeout.GetRecoveryAction())

	creds := CategorizeError(stderrors.New("API key invalid"), "bybit", "order")
	assert.Equal(t, ErrorCategoryCredentials, creds.Category)
	assert.Equal(t, RecoveryActionStop, creds.GetRecoveryAction())

	existing := NewBotError(ErrorCategoryFetch, "fetcher", "klines", "bad series")
	assert.Same(t, existing, CategorizeError(fmt.Errorf("wrapped: %w", existing), "engine", "cycle"))

	unknown := CategorizeError(stderrors.New("something odd"), "engine", "cycle")
	assert.Equal(t, ErrorCategoryTemporary, unknown.Category)
}

func TestBotError_Formatting(t *testing.T) {
	err := WrapError(stderrors.New("reduce-only rejected"), ErrorCategoryExecutionRejected, "position", "close").
		WithContext("symbol", "BTCUSDT")

	assert.Contains(t, err.Error(), "[EXECUTION_REJECTED:position] close")
	assert.Equal(t, "BTCUSDT", err.Context["symbol"])
	assert.Nil(t, WrapError(nil, ErrorCategoryFetch, "a", "b"))
	assert.Equal(t, RecoveryActionStop, NewBotError(ErrorCategoryConfiguration, "config", "load", "missing").GetRecoveryAction())
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(NewBotError(ErrorCategoryFetch, "f", "o", "m"))
	stats.RecordError(NewBotError(ErrorCategoryFetch, "f", "o", "m"))
	stats.RecordError(NewBotError(ErrorCategoryRateLimit, "f", "o", "m"))

	assert.Equal(t, 3, stats.TotalErrors)
	assert.Len(t, stats.RecentErrors, 2)
	assert.Equal(t, 2, stats.ErrorsByCategory[ErrorCategoryFetch])
	assert.True(t, stats.HasRecentErrors(ErrorCategoryRateLimit, 1))
	assert.False(t, stats.HasRecentErrors(ErrorCategoryFetch, 2))
}
