package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/sqlite/sqlitetest"
)

func TestMigrate_Idempotent(t *testing.T) {
	st := sqlitetest.New(t)
	ctx := context.Background()

	require.NoError(t, st.Migrate(ctx))
	v, err := st.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestProductRepo_RoundTripAndLookup(t *testing.T) {
	st := sqlitetest.New(t)
	ctx := context.Background()
	p := sqlitetest.Product(t, st, "CAF-001", "Café Molido", "89.90", "55.1234")

	repos := st.Repositories()
	got, err := repos.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, decimal.RequireFromString("89.90").Equal(got.Price))
	assert.True(t, decimal.RequireFromString("55.1234").Equal(got.Cost))
	assert.True(t, got.Active)

	bySKU, err := repos.Products.GetByCode(ctx, "CAF-001")
	require.NoError(t, err)
	require.NotNil(t, bySKU)
	assert.Equal(t, p.ID, bySKU.ID)

	missing, err := repos.Products.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := repos.Products.List(ctx, repository.ProductFilter{Search: "cafe"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, repos.Products.SetActive(ctx, p.ID, false))
	list, err = repos.Products.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProductRepo_DuplicateSKU(t *testing.T) {
	st := sqlitetest.New(t)
	sqlitetest.Product(t, st, "DUP", "Uno", "1", "1")

	now := time.Now().UTC()
	err := st.Repositories().Products.Create(context.Background(), &entity.Product{
		ID: uuid.New().String(), SKU: "DUP", Name: "Dos", Unit: "pza", Active: true, CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestStock_CheckConstraintIsInvariantViolation(t *testing.T) {
	st := sqlitetest.New(t)
	ctx := context.Background()
	b := sqlitetest.Branch(t, st, "Centro", "0.16")
	p := sqlitetest.Product(t, st, "A", "A", "10", "5")
	sqlitetest.Stock(t, st, p.ID, b.ID, 5, 0)

	err := st.Repositories().Stock.Update(ctx, &entity.BranchStock{
		ProductID: p.ID, BranchID: b.ID, Stock: 5, Reserved: 6, UpdatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestStock_UnknownProductIsNotFound(t *testing.T) {
	st := sqlitetest.New(t)
	b := sqlitetest.Branch(t, st, "Centro", "0")

	err := st.Repositories().Stock.Insert(context.Background(), &entity.BranchStock{
		ProductID: "ghost", BranchID: b.ID, UpdatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryLog_IsAppendOnly(t *testing.T) {
	st := sqlitetest.New(t)
	ctx := context.Background()
	b := sqlitetest.Branch(t, st, "Centro", "0")
	p := sqlitetest.Product(t, st, "A", "A", "10", "5")
	sqlitetest.Stock(t, st, p.ID, b.ID, 3, 0)

	_, err := st.DB().ExecContext(ctx, `UPDATE inventory_log SET delta = 100`)
	require.Error(t, err)
	_, err = st.DB().ExecContext(ctx, `DELETE FROM inventory_log`)
	require.Error(t, err)

	sum, n, err := st.Repositories().Logs.SumDelta(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum)
	assert.Equal(t, 1, n)
}

func TestProducts_CannotBeDeleted(t *testing.T) {
	st := sqlitetest.New(t)
	p := sqlitetest.Product(t, st, "A", "A", "10", "5")

	_, err := st.DB().ExecContext(context.Background(), `DELETE FROM products WHERE id = ?`, p.ID)
	require.Error(t, err)
}

func TestRun_RollbackOnErrorSkipsHooks(t *testing.T) {
	st := sqlitetest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()
	hookRan := false

	err := st.Run(ctx, func(ctx context.Context, tx *repository.Tx) error {
		require.NoError(t, tx.Branches.Create(ctx, &entity.Branch{ID: "b-1", Name: "Temporal", Active: true, CreatedAt: now, UpdatedAt: now}))
		tx.AfterCommit(func() { hookRan = true })
		return domain.ErrInvalidInput
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, hookRan)

	b, err := st.Repositories().Branches.GetByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Nil(t, b, "la sucursal no debe persistir tras rollback")

	err = st.Run(ctx, func(ctx context.Context, tx *repository.Tx) error {
		tx.AfterCommit(func() { hookRan = true })
		return tx.Branches.Create(ctx, &entity.Branch{ID: "b-2", Name: "Fija", Active: true, CreatedAt: now, UpdatedAt: now})
	})
	require.NoError(t, err)
	assert.True(t, hookRan)
}

func TestLayawaySave_GuardsExpectedStatus(t *testing.T) {
	st := sqlitetest.New(t)
	ctx := context.Background()
	b := sqlitetest.Branch(t, st, "Centro", "0")
	c := sqlitetest.Customer(t, st, "Ana")
	now := time.Now().UTC()
	l := &entity.Layaway{
		ID: uuid.New().String(), BranchID: b.ID, CustomerID: c.ID, Status: entity.LayawayPending,
		Total: decimal.NewFromInt(10), Balance: decimal.NewFromInt(10), CreatedBy: "u", CreatedAt: now, UpdatedAt: now,
	}
	repos := st.Repositories()
	require.NoError(t, repos.Layaways.Create(ctx, l))

	l.Status = entity.LayawayCancelled
	require.NoError(t, repos.Layaways.Save(ctx, l, entity.LayawayPending))

	l.Status = entity.LayawaySettled
	err := repos.Layaways.Save(ctx, l, entity.LayawayPending)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}
