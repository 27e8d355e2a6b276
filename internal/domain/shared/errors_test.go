package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_IsMatchesKind(t *testing.T) {
	assert.ErrorIs(t, ErrUserStateNotFound, ErrNotFound)
	assert.ErrorIs(t, ErrInvalidWindow, ErrInvalidInput)
}

func TestDomainError_WrapPreservesUnderlying(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError("ledger", "Append", ErrLedger, "insert failed", cause)

	assert.ErrorIs(t, err, ErrLedger)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ledger.Append")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDomainError_UnwrapFallsBackToKind(t *testing.T) {
	err := NewDomainError("leaderboard", "Validate", ErrValueOutOfRange, "limit must be positive")
	require.Nil(t, err.Err)
	assert.ErrorIs(t, errors.Unwrap(err), ErrValueOutOfRange)
}
