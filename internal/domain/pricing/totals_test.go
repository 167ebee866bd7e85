package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/pricing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute_DiscountBeforeTax(t *testing.T) {
	lines := []pricing.Line{
		{Quantity: 2, UnitPrice: d("50.00")},
		{Quantity: 1, UnitPrice: d("20.00")},
	}

	got, err := pricing.Compute(lines, d("20.00"), d("0.16"))
	require.NoError(t, err)

	assert.True(t, d("120.00").Equal(got.Subtotal), got.Subtotal.String())
	assert.True(t, d("100.00").Equal(got.Taxable))
	assert.True(t, d("16.00").Equal(got.Tax), got.Tax.String())
	assert.True(t, d("116.00").Equal(got.Total), got.Total.String())
}

func TestCompute_RoundsHalfToEvenOnce(t *testing.T) {
	cases := []struct {
		name  string
		price string
		rate  string
		want  string
	}{
		{"mitad hacia par abajo", "0.15", "0.10", "0.16"}, // 0.165
		{"mitad hacia par arriba", "0.25", "0.10", "0.28"}, // 0.275
		{"sin impuesto", "9.99", "0", "9.99"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pricing.Compute([]pricing.Line{{Quantity: 1, UnitPrice: d(tc.price)}}, decimal.Zero, d(tc.rate))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Total.StringFixed(2))
		})
	}
}

func TestCompute_RoundingIsNotPerLine(t *testing.T) {
	lines := []pricing.Line{
		{Quantity: 1, UnitPrice: d("0.33")},
		{Quantity: 1, UnitPrice: d("0.33")},
		{Quantity: 1, UnitPrice: d("0.33")},
	}
	got, err := pricing.Compute(lines, decimal.Zero, d("0.16"))
	require.NoError(t, err)

	// redondeando por línea el impuesto sería 0.15; una sola vez da 0.16
	assert.Equal(t, "1.15", got.Total.StringFixed(2))
	assert.Equal(t, "0.16", got.Tax.StringFixed(2))
}

func TestCompute_ComponentsAddUp(t *testing.T) {
	got, err := pricing.Compute([]pricing.Line{{Quantity: 7, UnitPrice: d("13.37")}}, d("3.10"), d("0.085"))
	require.NoError(t, err)
	assert.True(t, got.Subtotal.Sub(got.Discount).Add(got.Tax).Equal(got.Total))
}

func TestCompute_InvalidInput(t *testing.T) {
	one := []pricing.Line{{Quantity: 1, UnitPrice: d("10")}}

	_, err := pricing.Compute(nil, decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = pricing.Compute([]pricing.Line{{Quantity: 0, UnitPrice: d("10")}}, decimal.Zero, decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = pricing.Compute(one, d("10.01"), decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = pricing.Compute(one, d("-1"), decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = pricing.Compute(one, decimal.Zero, d("-0.1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
