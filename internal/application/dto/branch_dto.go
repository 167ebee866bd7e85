package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateBranchRequest entrada para crear una sucursal.
type CreateBranchRequest struct {
	Name    string           `json:"name"`
	Address string           `json:"address"`
	TaxRate *decimal.Decimal `json:"tax_rate"` // por defecto DEFAULT_TAX_RATE
}

// UpdateTaxRateRequest body para PUT /api/branches/:id/tax-rate.
type UpdateTaxRateRequest struct {
	TaxRate decimal.Decimal `json:"tax_rate"`
}

// BranchResponse salida de una sucursal.
type BranchResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
