package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// Currency markers are removed before anything else so the dot in
	// "Rs." never reaches the number.
	currencyMarker = regexp.MustCompile(`(?i)₹|\brs\.?|\binr\b`)
	nonNumeric     = regexp.MustCompile(`[^\d.]`)
)

// ParseAmount converts "₹1,250.00", "Rs. 450" or "INR 2,000" to a
// non-negative decimal. Empty or invalid input is zero.
func ParseAmount(s string) decimal.Decimal {
	s = currencyMarker.ReplaceAllString(strings.TrimSpace(s), "")
	s = nonNumeric.ReplaceAllString(s, "")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
