package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// SaleFilter filtra el listado de ventas.
type SaleFilter struct {
	BranchID   string
	CustomerID string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// SaleRepository persiste ventas. Una venta no se modifica después de creada.
type SaleRepository interface {
	// Create inserta cabecera y líneas.
	Create(ctx context.Context, sale *entity.Sale) error
	// GetByID devuelve la venta con sus líneas o (nil, nil).
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// List devuelve solo cabeceras, más recientes primero.
	List(ctx context.Context, filter SaleFilter) ([]*entity.Sale, error)
}
