// Package pricing computes cart and order totals.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// MoneyPlaces is the number of decimal places kept on every amount (paise).
const MoneyPlaces = 2

var (
	DefaultTaxRate               = decimal.RequireFromString("0.18")
	DefaultFreeShippingThreshold = decimal.NewFromInt(500)
	DefaultFlatShippingFee       = decimal.NewFromInt(50)
)

// Line is one priced line item.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the full breakdown of an order or cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Calculator holds the tax and shipping parameters. The zero value applies
// the defaults (18% tax, free shipping from ₹500, ₹50 flat fee otherwise).
type Calculator struct {
	configured            bool
	taxRate               decimal.Decimal
	freeShippingThreshold decimal.Decimal
	flatShippingFee       decimal.Decimal
}

// NewCalculator parses the pricing section of the config.
func NewCalculator(cfg config.PricingConfig) (Calculator, error) {
	c := Calculator{configured: true}
	var err error
	if c.taxRate, err = parseOr(cfg.TaxRate, DefaultTaxRate); err != nil {
		return Calculator{}, fmt.Errorf("tax rate: %w", err)
	}
	if c.freeShippingThreshold, err = parseOr(cfg.FreeShippingThreshold, DefaultFreeShippingThreshold); err != nil {
		return Calculator{}, fmt.Errorf("free shipping threshold: %w", err)
	}
	if c.flatShippingFee, err = parseOr(cfg.FlatShippingFee, DefaultFlatShippingFee); err != nil {
		return Calculator{}, fmt.Errorf("flat shipping fee: %w", err)
	}
	if c.taxRate.IsNegative() || c.freeShippingThreshold.IsNegative() || c.flatShippingFee.IsNegative() {
		return Calculator{}, fmt.Errorf("pricing values must not be negative")
	}
	return c, nil
}

func parseOr(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if raw == "" {
		return fallback, nil
	}
	return decimal.NewFromString(raw)
}

// TaxRate is the rate applied to subtotals.
func (c Calculator) TaxRate() decimal.Decimal {
	if !c.configured {
		return DefaultTaxRate
	}
	return c.taxRate
}

func (c Calculator) shippingParams() (threshold, fee decimal.Decimal) {
	if !c.configured {
		return DefaultFreeShippingThreshold, DefaultFlatShippingFee
	}
	return c.freeShippingThreshold, c.flatShippingFee
}

// Subtotal is Σ(unitPrice × quantity).
func (c Calculator) Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(LineTotal(line.UnitPrice, line.Quantity))
	}
	return Round(sum)
}

// Tax applies the flat tax rate to the subtotal.
func (c Calculator) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Mul(c.TaxRate()))
}

// Shipping is free once the subtotal reaches the threshold, else the flat fee.
func (c Calculator) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	threshold, fee := c.shippingParams()
	if subtotal.GreaterThanOrEqual(threshold) {
		return decimal.Zero
	}
	return Round(fee)
}

// Total is subtotal + tax + shipping - discount.
func (c Calculator) Total(subtotal, tax, shipping, discount decimal.Decimal) decimal.Decimal {
	return Round(subtotal.Add(tax).Add(shipping).Sub(discount))
}

// Compute returns the full breakdown for the lines and discount.
func (c Calculator) Compute(lines []Line, discount decimal.Decimal) Totals {
	subtotal := c.Subtotal(lines)
	tax := c.Tax(subtotal)
	shipping := c.Shipping(subtotal)
	discount = Round(discount)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    c.Total(subtotal, tax, shipping, discount),
	}
}

// LineTotal is price × quantity rounded to paise.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return Round(price.Mul(decimal.NewFromInt(int64(quantity))))
}

// Round rounds half away from zero to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// AmountInMinorUnits converts rupees to paise for gateway APIs.
func AmountInMinorUnits(d decimal.Decimal) int64 {
	return Round(d).Shift(MoneyPlaces).IntPart()
}
