package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// InventoryLogFilter filtra el registro de auditoría.
type InventoryLogFilter struct {
	ProductID string
	BranchID  string
	Reason    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// InventoryLogRepository es de solo inserción.
type InventoryLogRepository interface {
	Append(ctx context.Context, entry *entity.InventoryLogEntry) error
	List(ctx context.Context, filter InventoryLogFilter) ([]*entity.InventoryLogEntry, error)
	// SumDelta devuelve la suma de deltas y la cantidad de entradas de un producto en una sucursal.
	SumDelta(ctx context.Context, productID, branchID string) (sum int64, count int, err error)
}
