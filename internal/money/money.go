package money

import "github.com/shopspring/decimal"

// Quote-currency amounts settle at 2 decimal places, base-asset
// quantities at 8. Rounding is half-up and applied once per value.
const (
	QuotePlaces int32 = 2
	BasePlaces  int32 = 8
)

func RoundQuote(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuotePlaces)
}

func RoundBase(d decimal.Decimal) decimal.Decimal {
	return d.Round(BasePlaces)
}

func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
