package services

import "github.com/shopspring/decimal"

var thousand = decimal.NewFromInt(1000)

// roundThousand rounds to the nearest multiple of 1000 and floors the result
// at zero. Prices and refunds use it.
func roundThousand(v decimal.Decimal) int64 {
	r := v.Round(-3)
	if r.Sign() <= 0 {
		return 0
	}
	return r.IntPart()
}

// ceilToThousands rounds the magnitude of v up to the next multiple of 1000,
// keeping the sign. Supplier proration uses it so the supplier side is never
// credited less than the exact share; do not swap it for roundThousand.
func ceilToThousands(v decimal.Decimal) int64 {
	if v.IsZero() {
		return 0
	}
	mag := v.Abs().Div(thousand).Ceil().Mul(thousand)
	if v.Sign() < 0 {
		mag = mag.Neg()
	}
	return mag.IntPart()
}

// prorate returns amount * part / whole without rounding.
func prorate(amount int64, part, whole int) decimal.Decimal {
	return decimal.NewFromInt(amount).Mul(decimal.NewFromInt(int64(part))).Div(decimal.NewFromInt(int64(whole)))
}
