package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ReportFilter acota un reporte a un rango [From, To) y opcionalmente a una sucursal.
type ReportFilter struct {
	BranchID string
	From     time.Time
	To       time.Time
}

// SaleHeaderFact son los importes de una venta, tal como quedaron al venderse.
type SaleHeaderFact struct {
	SaleID        string
	BranchID      string
	PaymentMethod string
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	CreatedAt     time.Time
}

// SaleLineFact es una línea vendida con precio y costo congelados.
type SaleLineFact struct {
	SaleID    string
	BranchID  string
	ProductID string
	SKU       string
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
	CreatedAt time.Time
}

// ReportRepository entrega hechos de venta; la agregación se hace en la capa de aplicación.
type ReportRepository interface {
	SaleHeaders(ctx context.Context, filter ReportFilter) ([]SaleHeaderFact, error)
	SaleLines(ctx context.Context, filter ReportFilter) ([]SaleLineFact, error)
}
