package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un apartado.
const (
	LayawayPending   = "pending"
	LayawaySettled   = "settled"
	LayawayCancelled = "cancelled"
)

// Layaway es un apartado: mercancía reservada para un cliente que paga en abonos.
// Solo puede pasar de pending a settled o a cancelled.
type Layaway struct {
	ID         string
	BranchID   string
	CustomerID string
	Status     string
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	TaxRate    decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Paid       decimal.Decimal
	Balance    decimal.Decimal
	DueDate    *time.Time
	Notes      string
	CreatedBy  string
	SaleID     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ClosedAt   *time.Time
	Items      []LayawayItem
}

// CanTransition reporta si el apartado puede pasar al estado to.
func (l *Layaway) CanTransition(to string) bool {
	return l.Status == LayawayPending && (to == LayawaySettled || to == LayawayCancelled)
}

// LayawayItem congela precio y costo al momento de apartar.
type LayawayItem struct {
	ID        string
	LayawayID string
	Line      int
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
	Subtotal  decimal.Decimal
}

// LayawayPayment es un abono (incluido el anticipo inicial).
type LayawayPayment struct {
	ID        string
	LayawayID string
	Amount    decimal.Decimal
	UserID    string
	Notes     string
	CreatedAt time.Time
}
