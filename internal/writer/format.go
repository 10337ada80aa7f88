// Package writer exports analyzed statements as CSV or XLSX and formats
// amounts for display.
package writer

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var paise = decimal.New(1, int32(money.GetCurrency(money.INR).Fraction))

// FormatINR renders an amount with the rupee sign and thousands separators,
// e.g. "-₹1,250.00".
func FormatINR(amount decimal.Decimal) string {
	minor := amount.Mul(paise).Round(0).IntPart()
	return money.New(minor, money.INR).Display()
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
