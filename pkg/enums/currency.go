package enums

import (
	"fmt"
	"strings"
)

// Currency is the ISO code stored on orders and payment attempts.
type Currency string

const (
	CurrencyINR Currency = "INR"
)

var validCurrencies = []Currency{
	CurrencyINR,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw code, in any case, into a Currency.
func ParseCurrency(value string) (Currency, error) {
	normalized := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
