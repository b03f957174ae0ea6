package pricing

import "github.com/shopspring/decimal"

// currencyPlaces is the precision adjustments are rounded to.
const currencyPlaces = 2

// RoundCurrency rounds an amount to currency precision, half up. All stage
// amounts pass through here before signing so that identical inputs always
// produce identical outputs.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}
