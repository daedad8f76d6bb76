// Package format renders money and text for API responses.
package format

import (
	"regexp"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

const rupee = "₹"

// slugNoise matches what Slugify strips before slug.Make sees the input, so
// punctuation never becomes a hyphen and symbols are not spelled out.
var slugNoise = regexp.MustCompile(`[^\p{L}\p{N}\s_-]+`)

// FormatCurrency renders an INR amount with two decimals and Indian digit
// grouping (lakh/crore): 999 -> ₹999.00, 1234.56 -> ₹1,234.56,
// 123456 -> ₹1,23,456.00.
func FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + rupee + groupIndian(whole) + "." + frac
}

// FormatFloat is a convenience for callers holding float amounts.
func FormatFloat(amount float64) string {
	return FormatCurrency(decimal.NewFromFloat(amount))
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// Slugify lowercases the input, drops non-alphanumeric characters and joins
// the remaining words with single hyphens.
func Slugify(s string) string {
	return slug.Make(slugNoise.ReplaceAllString(s, ""))
}
