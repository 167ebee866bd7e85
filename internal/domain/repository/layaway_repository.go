package repository

import (
	"context"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// LayawayFilter filtra el listado de apartados.
type LayawayFilter struct {
	BranchID   string
	CustomerID string
	Status     string
	Limit      int
	Offset     int
}

// LayawayRepository persiste apartados, sus líneas y abonos.
type LayawayRepository interface {
	Create(ctx context.Context, layaway *entity.Layaway) error
	GetByID(ctx context.Context, id string) (*entity.Layaway, error)
	// GetForUpdate carga el apartado con sus líneas bloqueando la cabecera.
	GetForUpdate(ctx context.Context, id string) (*entity.Layaway, error)
	// Save guarda estado, pagado, saldo, venta y cierre siempre que el estado
	// persistido siga siendo expectedStatus; si no, devuelve ErrInvalidStateTransition.
	Save(ctx context.Context, layaway *entity.Layaway, expectedStatus string) error
	AddPayment(ctx context.Context, payment *entity.LayawayPayment) error
	ListPayments(ctx context.Context, layawayID string) ([]*entity.LayawayPayment, error)
	List(ctx context.Context, filter LayawayFilter) ([]*entity.Layaway, error)
}
