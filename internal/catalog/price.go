package catalog

import "github.com/shopspring/decimal"

// Amount converts an amount in cents to a decimal in major units.
func Amount(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatPrice renders cents as a dollar string, e.g. 2500 -> "$25.00".
func FormatPrice(cents int64) string {
	return "$" + Amount(cents).StringFixed(2)
}
