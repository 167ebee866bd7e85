package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineRequest una línea de venta o apartado. UnitPrice vacío usa el precio de catálogo.
type LineRequest struct {
	ProductID string           `json:"product_id"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// PaymentRequest forma de pago de una venta.
type PaymentRequest struct {
	Method         string          `json:"method"`
	Reference      string          `json:"reference"`
	AmountTendered decimal.Decimal `json:"amount_tendered"`
}

// CreateSaleRequest body para POST /api/sales.
type CreateSaleRequest struct {
	BranchID   string          `json:"branch_id"`
	CustomerID string          `json:"customer_id"`
	Lines      []LineRequest   `json:"lines"`
	Discount   decimal.Decimal `json:"discount"`
	Payment    PaymentRequest  `json:"payment"`
}

// SaleItemResponse línea de venta con precio y costo congelados.
type SaleItemResponse struct {
	Line      int             `json:"line"`
	ProductID string          `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// SaleResponse salida de una venta.
type SaleResponse struct {
	ID               string             `json:"id"`
	BranchID         string             `json:"branch_id"`
	CustomerID       string             `json:"customer_id,omitempty"`
	UserID           string             `json:"user_id"`
	LayawayID        string             `json:"layaway_id,omitempty"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	Discount         decimal.Decimal    `json:"discount"`
	TaxRate          decimal.Decimal    `json:"tax_rate"`
	Tax              decimal.Decimal    `json:"tax"`
	Total            decimal.Decimal    `json:"total"`
	PaymentMethod    string             `json:"payment_method"`
	PaymentReference string             `json:"payment_reference,omitempty"`
	AmountTendered   decimal.Decimal    `json:"amount_tendered"`
	Change           decimal.Decimal    `json:"change"`
	CreatedAt        time.Time          `json:"created_at"`
	Items            []SaleItemResponse `json:"items,omitempty"`
}

// SaleListResponse lista paginada de ventas (solo cabeceras).
type SaleListResponse struct {
	Items []SaleResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}
