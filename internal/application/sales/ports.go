package sales

import (
	"context"
	"time"

	"github.com/jhoicas/pos-ledger/internal/application/inventory"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// StockOperator interfaz para integrar ventas con el motor de inventario.
// Las variantes InTx usan la transacción del llamador: si devuelven error
// (p. ej. ErrInsufficientStock) el llamador debe abortar para que todo se revierta.
type StockOperator interface {
	AdjustInTx(ctx context.Context, tx *repository.Tx, ch inventory.StockChange) (*entity.BranchStock, error)
	ReserveInTx(ctx context.Context, tx *repository.Tx, ch inventory.StockChange) (*entity.BranchStock, error)
	ReleaseInTx(ctx context.Context, tx *repository.Tx, ch inventory.StockChange) (*entity.BranchStock, error)
	ConsumeInTx(ctx context.Context, tx *repository.Tx, ch inventory.StockChange) (*entity.BranchStock, error)
	Publish(events ...inventory.Event)
	Now() time.Time
}

var _ StockOperator = (*inventory.Engine)(nil)
