package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateLayawayRequest body para POST /api/layaways.
type CreateLayawayRequest struct {
	BranchID   string          `json:"branch_id"`
	CustomerID string          `json:"customer_id"`
	Lines      []LineRequest   `json:"lines"`
	Discount   decimal.Decimal `json:"discount"`
	Deposit    decimal.Decimal `json:"deposit"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
	Notes      string          `json:"notes"`
}

// LayawayPaymentRequest body para POST /api/layaways/:id/payments.
type LayawayPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes"`
}

// LayawayItemResponse línea apartada.
type LayawayItemResponse struct {
	Line      int             `json:"line"`
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// LayawayPaymentResponse un abono.
type LayawayPaymentResponse struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	UserID    string          `json:"user_id"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// LayawayResponse salida de un apartado.
type LayawayResponse struct {
	ID         string                   `json:"id"`
	BranchID   string                   `json:"branch_id"`
	CustomerID string                   `json:"customer_id"`
	Status     string                   `json:"status"`
	Subtotal   decimal.Decimal          `json:"subtotal"`
	Discount   decimal.Decimal          `json:"discount"`
	Tax        decimal.Decimal          `json:"tax"`
	Total      decimal.Decimal          `json:"total"`
	Paid       decimal.Decimal          `json:"paid"`
	Balance    decimal.Decimal          `json:"balance"`
	DueDate    *time.Time               `json:"due_date,omitempty"`
	Notes      string                   `json:"notes,omitempty"`
	SaleID     string                   `json:"sale_id,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
	ClosedAt   *time.Time               `json:"closed_at,omitempty"`
	Items      []LayawayItemResponse    `json:"items,omitempty"`
	Payments   []LayawayPaymentResponse `json:"payments,omitempty"`
}

// LayawayPaymentResult salida de registrar un abono; Sale viene si el abono liquidó el apartado.
type LayawayPaymentResult struct {
	Layaway LayawayResponse `json:"layaway"`
	Sale    *SaleResponse   `json:"sale,omitempty"`
}
