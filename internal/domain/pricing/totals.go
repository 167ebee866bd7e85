// Package pricing calcula los totales de ventas y apartados.
//
// Regla: el descuento se aplica sobre el subtotal antes de impuestos, el impuesto
// se calcula con la tasa de la sucursal sobre el subtotal descontado y el redondeo
// (mitad al par, a centavos) ocurre una sola vez, sobre el total.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pos-ledger/internal/domain"
)

// MoneyPlaces es la cantidad de decimales de los importes cobrados.
const MoneyPlaces = 2

// Line es una línea a cobrar.
type Line struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Totals es el resultado de Compute. Subtotal + Tax - Discount == Total.
type Totals struct {
	Lines    []decimal.Decimal // subtotal por línea, sin redondear
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Taxable  decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Compute calcula subtotal, impuesto y total.
func Compute(lines []Line, discount, taxRate decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, fmt.Errorf("%w: sin líneas", domain.ErrInvalidInput)
	}
	if taxRate.IsNegative() {
		return Totals{}, fmt.Errorf("%w: tasa de impuesto negativa", domain.ErrInvalidInput)
	}
	if discount.IsNegative() {
		return Totals{}, fmt.Errorf("%w: descuento negativo", domain.ErrInvalidInput)
	}

	t := Totals{Lines: make([]decimal.Decimal, len(lines))}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return Totals{}, fmt.Errorf("%w: línea %d con cantidad %d", domain.ErrInvalidInput, i+1, l.Quantity)
		}
		if l.UnitPrice.IsNegative() {
			return Totals{}, fmt.Errorf("%w: línea %d con precio negativo", domain.ErrInvalidInput, i+1)
		}
		t.Lines[i] = l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
		t.Subtotal = t.Subtotal.Add(t.Lines[i])
	}
	if discount.GreaterThan(t.Subtotal) {
		return Totals{}, fmt.Errorf("%w: descuento %s mayor al subtotal %s", domain.ErrInvalidInput, discount, t.Subtotal)
	}

	t.Discount = discount
	t.Taxable = t.Subtotal.Sub(discount)
	t.Total = t.Taxable.Add(t.Taxable.Mul(taxRate)).RoundBank(MoneyPlaces)
	// el impuesto absorbe el redondeo para que los componentes cuadren con el total
	t.Tax = t.Total.Sub(t.Taxable)
	return t, nil
}
