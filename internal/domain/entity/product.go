package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product es un artículo del catálogo. Price y Cost son los valores vigentes;
// ventas y apartados guardan su propia copia al momento de la operación.
type Product struct {
	ID          string
	SKU         string // único
	Barcode     string // opcional, único si se informa
	Name        string
	Description string
	Price       decimal.Decimal // precio de venta vigente
	Cost        decimal.Decimal // costo promedio ponderado
	Unit        string
	SearchKey   string // nombre normalizado sin tildes, para búsqueda
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
