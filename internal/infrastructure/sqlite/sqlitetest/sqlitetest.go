// Package sqlitetest arma almacenes SQLite temporales y datos de prueba.
package sqlitetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain/catalog"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/infrastructure/sqlite"
)

// New abre un almacén migrado en un archivo temporal que se elimina al terminar la prueba.
func New(t testing.TB) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	st, err := sqlite.Open(ctx, sqlite.Config{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		BusyTimeout:  10 * time.Second,
		MaxOpenConns: 8,
	})
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// Branch crea una sucursal activa con la tasa indicada ("0.16").
func Branch(t testing.TB, st *sqlite.Store, name, taxRate string) *entity.Branch {
	t.Helper()
	now := time.Now().UTC()
	b := &entity.Branch{
		ID:        uuid.New().String(),
		Name:      name,
		TaxRate:   decimal.RequireFromString(taxRate),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Repositories().Branches.Create(context.Background(), b))
	return b
}

// Product crea un producto activo con precio y costo.
func Product(t testing.TB, st *sqlite.Store, sku, name, price, cost string) *entity.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &entity.Product{
		ID:        uuid.New().String(),
		SKU:       sku,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Cost:      decimal.RequireFromString(cost),
		Unit:      "pza",
		SearchKey: catalog.SearchKey(name),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Repositories().Products.Create(context.Background(), p))
	return p
}

// Customer crea un cliente activo.
func Customer(t testing.TB, st *sqlite.Store, name string) *entity.Customer {
	t.Helper()
	now := time.Now().UTC()
	c := &entity.Customer{ID: uuid.New().String(), Name: name, Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, st.Repositories().Customers.Create(context.Background(), c))
	return c
}

// Stock inserta directamente una fila de stock con su entrada de recepción en el registro,
// para que el stock cuadre con el registro desde el inicio.
func Stock(t testing.TB, st *sqlite.Store, productID, branchID string, stock, reserved int64) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	repos := st.Repositories()
	require.NoError(t, repos.Stock.Insert(ctx, &entity.BranchStock{
		ProductID: productID, BranchID: branchID, Stock: stock, Reserved: reserved, UpdatedAt: now,
	}))
	if stock > 0 {
		require.NoError(t, repos.Logs.Append(ctx, &entity.InventoryLogEntry{
			ID: uuid.New().String(), ProductID: productID, BranchID: branchID, Delta: stock,
			Reason: entity.ReasonReceiving, Actor: "seed", RefType: entity.RefTypeManual, CreatedAt: now,
		}))
	}
}
