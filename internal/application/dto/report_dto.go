package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportRequest parámetros de los reportes. Fechas YYYY-MM-DD; por defecto el mes en curso.
type ReportRequest struct {
	BranchID  string `query:"branch_id"`
	StartDate string `query:"start_date"`
	EndDate   string `query:"end_date"` // inclusivo
	TopN      int    `query:"top_n"`
}

// PaymentMethodTotalDTO ventas agrupadas por método de pago.
type PaymentMethodTotalDTO struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// SalesSummaryDTO resumen de ventas de un período.
type SalesSummaryDTO struct {
	BranchID      string                  `json:"branch_id,omitempty"`
	From          time.Time               `json:"from"`
	To            time.Time               `json:"to"`
	SaleCount     int                     `json:"sale_count"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	Discount      decimal.Decimal         `json:"discount"`
	Tax           decimal.Decimal         `json:"tax"`
	Total         decimal.Decimal         `json:"total"`
	AverageTicket decimal.Decimal         `json:"average_ticket"`
	ByMethod      []PaymentMethodTotalDTO `json:"by_method"`
}

// SKURankingDTO margen y rentabilidad por producto, calculado con precios y costos congelados.
type SKURankingDTO struct {
	Rank             int             `json:"rank"` // 1 = más rentable
	ProductID        string          `json:"product_id"`
	SKU              string          `json:"sku"`
	ProductName      string          `json:"product_name"`
	UnitsSold        int64           `json:"units_sold"`
	GrossRevenue     decimal.Decimal `json:"gross_revenue"`
	TotalCOGS        decimal.Decimal `json:"total_cogs"`
	GrossProfit      decimal.Decimal `json:"gross_profit"` // GrossRevenue - TotalCOGS
	MarginPct        decimal.Decimal `json:"margin_pct"`
	RevenuePct       decimal.Decimal `json:"revenue_pct"`
	CumulativeRevPct decimal.Decimal `json:"cumulative_revenue_pct"`
	IsTopPareto      bool            `json:"is_top_pareto"` // dentro del 80% de ingresos
}

// MarginReportDTO margen del período con ranking por SKU.
type MarginReportDTO struct {
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCOGS    decimal.Decimal `json:"total_cogs"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	MarginPct    decimal.Decimal `json:"margin_pct"`
	Products     []SKURankingDTO `json:"products"`
}
