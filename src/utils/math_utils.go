package utils

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Pct converts a percentage value (5 means 5%) to its decimal fraction.
func Pct(p decimal.Decimal) decimal.Decimal {
	return p.Div(oneHundred)
}

// RoundMoney rounds a value to the output precision. Applied only at the
// final output boundary; intermediate phase arithmetic keeps full precision.
func RoundMoney(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Round(precision)
}

// CompoundFactor returns (1 + dailyRatePct/100)^days.
func CompoundFactor(dailyRatePct decimal.Decimal, days int) decimal.Decimal {
	if days <= 0 {
		return decimal.NewFromInt(1)
	}
	base := decimal.NewFromInt(1).Add(Pct(dailyRatePct))
	return base.Pow(decimal.NewFromInt(int64(days)))
}

// SafeDiv returns a/b, or zero when b is zero. Ratio fields over an empty
// denominator are reported as zero rather than failing the whole run.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
