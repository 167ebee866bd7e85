package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/application/coordinator"
	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/sqlite/sqlitetest"
)

func TestLowStock_SuggestsOrderAndPrioritisesDeficit(t *testing.T) {
	ctx := context.Background()
	st := sqlitetest.New(t)
	b := sqlitetest.Branch(t, st, "Centro", "0.16")
	eng := inventory.NewEngine(st, st.Repositories(), coordinator.New(coordinator.Config{Timeout: 5 * time.Second}))

	a := sqlitetest.Product(t, st, "A-1", "Arroz", "20.00", "12.00")
	sqlitetest.Stock(t, st, a.ID, b.ID, 2, 0)
	_, err := eng.SetThresholds(ctx, a.ID, b.ID, 5, 20)
	require.NoError(t, err)

	// sin máximo: objetivo = mínimo * 1.5
	f := sqlitetest.Product(t, st, "F-1", "Frijol", "18.00", "9.50")
	sqlitetest.Stock(t, st, f.ID, b.ID, 0, 0)
	_, err = eng.SetThresholds(ctx, f.ID, b.ID, 4, 0)
	require.NoError(t, err)

	ok := sqlitetest.Product(t, st, "S-1", "Sal", "8.00", "3.00")
	sqlitetest.Stock(t, st, ok.ID, b.ID, 10, 0)
	_, err = eng.SetThresholds(ctx, ok.ID, b.ID, 5, 30)
	require.NoError(t, err)

	uc := inventory.NewReplenishmentUseCase(st.Repositories().Stock, st.Reports())
	list, err := uc.LowStock(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, f.ID, list[0].ProductID)
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, int64(6), list[0].TargetStock)
	assert.Equal(t, int64(6), list[0].SuggestedOrderQty)
	assert.True(t, list[0].EstimatedOrderCost.Equal(decimal.NewFromInt(57)), list[0].EstimatedOrderCost.String())

	assert.Equal(t, a.ID, list[1].ProductID)
	assert.Equal(t, 2, list[1].Priority)
	assert.Equal(t, int64(18), list[1].SuggestedOrderQty)
}

func TestLowStock_RequiresBranch(t *testing.T) {
	st := sqlitetest.New(t)
	uc := inventory.NewReplenishmentUseCase(st.Repositories().Stock, st.Reports())
	_, err := uc.LowStock(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
