package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType(t *testing.T) {
	connErr := NewStoreConnectionFailed("bolt://localhost:7687", fmt.Errorf("refused"))
	queryErr := NewStoreQueryFailed("MATCH (n) RETURN n", fmt.Errorf("syntax"))
	cycleErr := NewCycleDetected("goal", []string{"a", "b"})

	assert.True(t, IsErrorType(connErr, ErrorTypeConnection))
	assert.False(t, IsErrorType(connErr, ErrorTypeQuery))
	assert.True(t, IsErrorType(queryErr, ErrorTypeQuery))
	assert.True(t, IsErrorType(cycleErr, ErrorTypeCycle))
	assert.False(t, IsErrorType(nil, ErrorTypeQuery))
	assert.False(t, IsErrorType(fmt.Errorf("plain"), ErrorTypeQuery))
}

func TestIsErrorType_Wrapped(t *testing.T) {
	inner := NewStoreConnectionFailed("bolt://localhost:7687", nil)
	wrapped := fmt.Errorf("fetching concept: %w", inner)

	assert.True(t, IsErrorType(wrapped, ErrorTypeConnection))
	assert.False(t, IsErrorType(wrapped, ErrorTypeQuery))
}

func TestErrorMessageCarriesKindTag(t *testing.T) {
	err := NewStoreQueryFailed("CREATE (c:Concept)", fmt.Errorf("constraint violation"))
	assert.Contains(t, err.Error(), "[query]")
	assert.Contains(t, err.Error(), "constraint violation")
}

func TestCycleDetectedCarriesRemaining(t *testing.T) {
	err := NewCycleDetected("goal-1", []string{"x", "y"})
	assert.Equal(t, "goal-1", err.GoalConceptID)
	assert.Equal(t, []string{"x", "y"}, err.Remaining)
	assert.Contains(t, err.Error(), "goal-1")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewStoreConnectionFailed("bolt://x", nil)))
	assert.False(t, IsRetryable(NewStoreQueryFailed("q", nil)))
	assert.False(t, IsRetryable(NewContextTimeout("store query", nil)))
	assert.False(t, IsRetryable(NewContextCancelled("store query", nil)))
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewStoreQueryFailed("q", cause)
	assert.ErrorIs(t, err, cause)
}
