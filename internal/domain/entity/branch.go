package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Branch es una sucursal física con inventario propio.
type Branch struct {
	ID      string
	Name    string
	Address string
	// TaxRate es la tasa de impuesto de la sucursal (0.16 = 16%).
	TaxRate   decimal.Decimal
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
