package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métodos de pago.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentCredit   = "credit"
	PaymentMixed    = "mixed"
	PaymentLayaway  = "layaway" // venta generada al liquidar un apartado
)

// ValidPaymentMethod reporta si m es aceptable para una venta de mostrador.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentCredit, PaymentMixed:
		return true
	}
	return false
}

// Sale es una venta confirmada. Es inmutable una vez persistida.
type Sale struct {
	ID               string
	BranchID         string
	CustomerID       string // vacío para público general
	UserID           string
	LayawayID        string // informado cuando proviene de liquidar un apartado
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	TaxRate          decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	PaymentMethod    string
	PaymentReference string
	AmountTendered   decimal.Decimal
	Change           decimal.Decimal
	CreatedAt        time.Time
	Items            []SaleItem
}

// SaleItem congela precio y costo del producto al momento de vender.
type SaleItem struct {
	ID        string
	SaleID    string
	Line      int
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
	Subtotal  decimal.Decimal
}
