package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción del almacén. Si fn devuelve error
// se hace rollback y nada se persiste; si no, commit y luego los hooks de tx.AfterCommit.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, tx *repository.Tx) error) error
}

// Locker serializa las mutaciones de una misma clave de stock.
type Locker interface {
	Acquire(ctx context.Context, key entity.StockKey) (release func(), err error)
}

// AvailabilityCache guarda disponibles ya calculados para el camino de lectura.
// Nunca se consulta al validar una mutación.
// Cada clave lleva una generación que Invalidate incrementa; Set solo escribe si la
// generación leída antes de consultar el almacén sigue vigente.
type AvailabilityCache interface {
	Get(ctx context.Context, key entity.StockKey) (int64, bool)
	// Generation devuelve la generación actual; ok=false indica que no se debe poblar la clave.
	Generation(ctx context.Context, key entity.StockKey) (gen uint64, ok bool)
	Set(ctx context.Context, key entity.StockKey, available int64, gen uint64)
	Invalidate(ctx context.Context, keys ...entity.StockKey)
}

// Tipos de evento publicados tras el commit.
const (
	EventStockAdjusted   = "stock.adjusted"
	EventStockReserved   = "stock.reserved"
	EventStockReleased   = "stock.released"
	EventStockConsumed   = "stock.consumed"
	EventSaleCreated     = "sale.created"
	EventLayawayCreated  = "layaway.created"
	EventLayawaySettled  = "layaway.settled"
	EventLayawayCanceled = "layaway.cancelled"
	EventLayawayPayment  = "layaway.payment"
)

// Event notifica a otras terminales un cambio ya confirmado.
type Event struct {
	Type      string    `json:"type"`
	ProductID string    `json:"product_id,omitempty"`
	BranchID  string    `json:"branch_id"`
	Delta     int64     `json:"delta,omitempty"`
	Stock     int64     `json:"stock"`
	Reserved  int64     `json:"reserved"`
	RefType   string    `json:"ref_type,omitempty"`
	RefID     string    `json:"ref_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	At        time.Time `json:"at"`
}

// EventPublisher entrega eventos; un fallo de publicación no revierte nada.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}
