package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// LowStockItem es una fila del reporte de stock bajo, con datos del producto.
type LowStockItem struct {
	Stock entity.BranchStock
	SKU   string
	Name  string
	Cost  decimal.Decimal
}

// StockRepository define el puerto para consultar/actualizar stock por sucursal+producto.
// Get y GetForUpdate devuelven (nil, nil) si el producto no se ha dado de alta en la sucursal.
type StockRepository interface {
	Get(ctx context.Context, productID, branchID string) (*entity.BranchStock, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, productID, branchID string) (*entity.BranchStock, error)
	Insert(ctx context.Context, stock *entity.BranchStock) error
	Update(ctx context.Context, stock *entity.BranchStock) error
	ListByBranch(ctx context.Context, branchID string, limit, offset int) ([]*entity.BranchStock, error)
	ListBelowMinimum(ctx context.Context, branchID string) ([]LowStockItem, error)
}
