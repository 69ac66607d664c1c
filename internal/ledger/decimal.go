package ledger

import (
	"math"

	"github.com/shopspring/decimal"
)

// Totals are stored as float64 but combined in decimal so that adding and
// then subtracting the same amount returns the original value exactly.

func add(total, amount float64) float64 {
	f, _ := decimal.NewFromFloat(total).Add(decimal.NewFromFloat(amount)).Float64()
	return f
}

func subClamp(total, amount float64) float64 {
	d := decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(amount))
	if d.IsNegative() {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func magnitude(f float64) float64 {
	return math.Abs(f)
}
