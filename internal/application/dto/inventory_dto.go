package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustStockRequest body para POST /api/inventory/adjust.
type AdjustStockRequest struct {
	ProductID string           `json:"product_id"`
	BranchID  string           `json:"branch_id"`
	Delta     int64            `json:"delta"`
	Reason    string           `json:"reason"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
}

// IntroduceProductRequest body para POST /api/inventory/introduce.
type IntroduceProductRequest struct {
	ProductID    string `json:"product_id"`
	BranchID     string `json:"branch_id"`
	InitialStock int64  `json:"initial_stock"`
	MinStock     int64  `json:"min_stock"`
	MaxStock     int64  `json:"max_stock"`
}

// ThresholdsRequest body para PUT /api/inventory/thresholds.
type ThresholdsRequest struct {
	ProductID string `json:"product_id"`
	BranchID  string `json:"branch_id"`
	MinStock  int64  `json:"min_stock"`
	MaxStock  int64  `json:"max_stock"`
}

// TransferStockRequest body para POST /api/inventory/transfer.
type TransferStockRequest struct {
	ProductID    string `json:"product_id"`
	FromBranchID string `json:"from_branch_id"`
	ToBranchID   string `json:"to_branch_id"`
	Quantity     int64  `json:"quantity"`
}

// StockResponse estado de un producto en una sucursal.
type StockResponse struct {
	ProductID string    `json:"product_id"`
	BranchID  string    `json:"branch_id"`
	Stock     int64     `json:"stock"`
	Reserved  int64     `json:"reserved"`
	Available int64     `json:"available"`
	MinStock  int64     `json:"min_stock"`
	MaxStock  int64     `json:"max_stock"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AvailabilityResponse salida de GET /api/inventory/available.
type AvailabilityResponse struct {
	ProductID string `json:"product_id"`
	BranchID  string `json:"branch_id"`
	Available int64  `json:"available"`
}

// InventoryLogResponse una entrada del registro de auditoría.
type InventoryLogResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	BranchID  string    `json:"branch_id"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason"`
	Actor     string    `json:"actor"`
	RefType   string    `json:"ref_type,omitempty"`
	RefID     string    `json:"ref_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReconcileResponse resultado de cuadrar stock contra registro.
type ReconcileResponse struct {
	ProductID  string `json:"product_id"`
	BranchID   string `json:"branch_id"`
	Stock      int64  `json:"stock"`
	Reserved   int64  `json:"reserved"`
	LoggedSum  int64  `json:"logged_sum"`
	Entries    int    `json:"entries"`
	Consistent bool   `json:"consistent"`
}

// ReplenishmentSuggestionDTO representa una sugerencia de reposición para un SKU
// que quedó en o por debajo de su mínimo.
type ReplenishmentSuggestionDTO struct {
	ProductID           string          `json:"product_id"`
	SKU                 string          `json:"sku"`
	ProductName         string          `json:"product_name"`
	Stock               int64           `json:"stock"`
	Reserved            int64           `json:"reserved"`
	Available           int64           `json:"available"`
	MinStock            int64           `json:"min_stock"`
	TargetStock         int64           `json:"target_stock"`        // máximo, o mínimo * 1.5 si no hay máximo
	SuggestedOrderQty   int64           `json:"suggested_order_qty"` // TargetStock - Available
	UnitCost            decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost  decimal.Decimal `json:"estimated_order_cost"`
	GrossMarginPct      decimal.Decimal `json:"gross_margin_pct"`
	UnitsSoldLast90Days int64           `json:"units_sold_last_90d"`
	Priority            int             `json:"priority"` // 1 = más urgente
}
