package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeMatchesDefinition(t *testing.T) {
	var calc Calculator
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		var lines []Line
		want := decimal.Zero
		for n := rng.Intn(5); n >= 0; n-- {
			price := decimal.New(int64(rng.Intn(100000)), -2)
			qty := rng.Intn(5) + 1
			lines = append(lines, Line{UnitPrice: price, Quantity: qty})
			want = want.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}
		discount := decimal.New(int64(rng.Intn(2000)), -2)

		got := calc.Compute(lines, discount)
		require.True(t, want.Equal(got.Subtotal), "subtotal %s != %s", got.Subtotal, want)
		require.True(t, want.Mul(d("0.18")).Round(2).Equal(got.Tax))
		if want.GreaterThanOrEqual(d("500")) {
			require.True(t, got.Shipping.IsZero())
		} else {
			require.True(t, got.Shipping.Equal(d("50")))
		}
		require.True(t, got.Subtotal.Add(got.Tax).Add(got.Shipping).Sub(got.Discount).Equal(got.Total))
	}
}

func TestShippingThresholdIsInclusive(t *testing.T) {
	var calc Calculator
	assert.True(t, calc.Shipping(d("500")).IsZero())
	assert.True(t, calc.Shipping(d("499.99")).Equal(d("50")))
	assert.True(t, calc.Shipping(d("0")).Equal(d("50")))
}

func TestComputeSingleItemAboveThreshold(t *testing.T) {
	var calc Calculator
	got := calc.Compute([]Line{{UnitPrice: d("999"), Quantity: 1}}, decimal.Zero)

	assert.Equal(t, "999", got.Subtotal.String())
	assert.Equal(t, "179.82", got.Tax.String())
	assert.True(t, got.Shipping.IsZero())
	assert.Equal(t, "1178.82", got.Total.String())
}

func TestComputeOrderFixture(t *testing.T) {
	var calc Calculator
	got := calc.Compute([]Line{
		{UnitPrice: d("200"), Quantity: 1},
		{UnitPrice: d("150"), Quantity: 2},
	}, decimal.Zero)

	assert.Equal(t, "500", got.Subtotal.String())
	assert.Equal(t, "90", got.Tax.String())
	assert.True(t, got.Shipping.IsZero())
	assert.Equal(t, "590", got.Total.String())
}

func TestTaxRoundsHalfAwayFromZero(t *testing.T) {
	var calc Calculator
	// 0.25 * 0.18 = 0.045
	assert.Equal(t, "0.05", calc.Tax(d("0.25")).StringFixed(2))
}

func TestNewCalculatorFromConfig(t *testing.T) {
	calc, err := NewCalculator(config.PricingConfig{TaxRate: "0.05", FreeShippingThreshold: "1000", FlatShippingFee: "80"})
	require.NoError(t, err)

	got := calc.Compute([]Line{{UnitPrice: d("600"), Quantity: 1}}, decimal.Zero)
	assert.Equal(t, "30", got.Tax.String())
	assert.Equal(t, "80", got.Shipping.String())

	defaults, err := NewCalculator(config.PricingConfig{})
	require.NoError(t, err)
	assert.True(t, defaults.TaxRate().Equal(DefaultTaxRate))

	_, err = NewCalculator(config.PricingConfig{TaxRate: "abc"})
	assert.Error(t, err)
	_, err = NewCalculator(config.PricingConfig{FlatShippingFee: "-1"})
	assert.Error(t, err)
}

func TestAmountInMinorUnits(t *testing.T) {
	assert.Equal(t, int64(117882), AmountInMinorUnits(d("1178.82")))
	assert.Equal(t, int64(5000), AmountInMinorUnits(d("50")))
	assert.Equal(t, int64(1), AmountInMinorUnits(d("0.005")))
}
