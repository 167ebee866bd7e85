package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain"
)

func TestStockError_UnwrapsToSentinel(t *testing.T) {
	err := fmt.Errorf("venta: %w", domain.InsufficientStock("adjust", "p1", "b1", 3, 2))

	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.False(t, errors.Is(err, domain.ErrInvariantViolation))

	var se *domain.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "p1", se.ProductID)
	assert.Equal(t, int64(3), se.Requested)
	assert.Equal(t, int64(2), se.Available)
}

func TestInvariantViolation_Unwrap(t *testing.T) {
	err := domain.InvariantViolation("release", "p1", "b1", 5, 1)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
	assert.False(t, domain.IsRetryable(err))
}

func TestStateError_Unwrap(t *testing.T) {
	err := &domain.StateError{Entity: "apartado", ID: "l1", From: "cancelled", To: "settled"}
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, domain.IsRetryable(fmt.Errorf("commit: %w", domain.ErrContention)))
	assert.False(t, domain.IsRetryable(domain.ErrNotFound))
	assert.False(t, domain.IsRetryable(nil))
}
