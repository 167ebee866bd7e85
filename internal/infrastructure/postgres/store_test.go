package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/pos-ledger/pkg/config"
)

// newStore abre la base indicada en POS_TEST_DATABASE_URL; sin ella la prueba se omite.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	url := os.Getenv("POS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("POS_TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 4})
	require.NoError(t, err)
	st := postgres.NewStore(pool, 2*time.Second)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))
	return st
}

func seed(t *testing.T, st *postgres.Store) (*entity.Branch, *entity.Product) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	suffix := uuid.NewString()[:8]
	b := &entity.Branch{ID: uuid.NewString(), Name: "Centro " + suffix, TaxRate: decimal.RequireFromString("0.16"),
		Active: true, CreatedAt: now, UpdatedAt: now}
	p := &entity.Product{ID: uuid.NewString(), SKU: "SKU-" + suffix, Name: "Café " + suffix, Unit: "pza",
		Price: decimal.RequireFromString("25.50"), Cost: decimal.RequireFromString("12.3456"),
		SearchKey: "cafe " + suffix, Active: true, CreatedAt: now, UpdatedAt: now}
	repos := st.Repositories()
	require.NoError(t, repos.Branches.Create(ctx, b))
	require.NoError(t, repos.Products.Create(ctx, p))
	return b, p
}

func TestMigrate_Idempotent(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	v, err := st.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestProductRepo_DecimalRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	_, p := seed(t, st)

	got, err := st.Repositories().Products.GetByCode(ctx, p.SKU)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, p.Price.Equal(got.Price))
	assert.True(t, p.Cost.Equal(got.Cost))
	assert.Empty(t, got.Barcode)

	missing, err := st.Repositories().Products.GetByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := *p
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, st.Repositories().Products.Create(ctx, &dup), domain.ErrDuplicate)
}

func TestStock_ForUpdateAndLog(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	b, p := seed(t, st)
	now := time.Now().UTC()

	err := st.Run(ctx, func(ctx context.Context, tx *repository.Tx) error {
		s, err := tx.Stock.GetForUpdate(ctx, p.ID, b.ID)
		require.NoError(t, err)
		require.Nil(t, s)
		if err := tx.Stock.Insert(ctx, &entity.BranchStock{ProductID: p.ID, BranchID: b.ID, Stock: 5, UpdatedAt: now}); err != nil {
			return err
		}
		return tx.Logs.Append(ctx, &entity.InventoryLogEntry{ID: uuid.NewString(), ProductID: p.ID, BranchID: b.ID,
			Delta: 5, Reason: entity.ReasonReceiving, Actor: "test", RefType: entity.RefTypeManual, CreatedAt: now})
	})
	require.NoError(t, err)

	sum, count, err := st.Repositories().Logs.SumDelta(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum)
	assert.Equal(t, 1, count)

	err = st.Repositories().Stock.Update(ctx, &entity.BranchStock{ProductID: p.ID, BranchID: b.ID, Stock: 1, Reserved: 2, UpdatedAt: now})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	err = st.Repositories().Stock.Insert(ctx, &entity.BranchStock{ProductID: p.ID, BranchID: b.ID, UpdatedAt: now})
	assert.ErrorIs(t, err, domain.ErrContention)
}

func TestRun_RollbackSkipsHooks(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	b, p := seed(t, st)

	ran := false
	err := st.Run(ctx, func(ctx context.Context, tx *repository.Tx) error {
		tx.AfterCommit(func() { ran = true })
		if err := tx.Stock.Insert(ctx, &entity.BranchStock{ProductID: p.ID, BranchID: b.ID, Stock: 3, UpdatedAt: time.Now().UTC()}); err != nil {
			return err
		}
		return domain.ErrInsufficientStock
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.False(t, ran)

	s, err := st.Repositories().Stock.Get(ctx, p.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, s)
}
