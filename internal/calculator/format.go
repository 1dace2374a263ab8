package calculator

import (
	"github.com/shopspring/decimal"
)

// Display values are fixed-precision strings, two decimals unless noted.

func money(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

func percent(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

func fixed(f float64, places int32) string {
	return decimal.NewFromFloat(f).StringFixed(places)
}

// round2 rounds half away from zero to cents.
func round2(f float64) float64 {
	r, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return r
}

// splitCents rounds amounts to cents so that the rounded parts add up to the
// rounded total. Missing cents go to the largest remainders, surplus cents
// come off the smallest.
func splitCents(total float64, amounts []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(amounts))
	if len(amounts) == 0 {
		return out
	}
	target := decimal.NewFromFloat(total).Round(2)
	sum := decimal.Zero
	rem := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		d := decimal.NewFromFloat(a)
		out[i] = d.Truncate(2)
		rem[i] = d.Sub(out[i])
		sum = sum.Add(out[i])
	}

	cent := decimal.New(1, -2)
	diff := target.Sub(sum)
	for diff.GreaterThanOrEqual(cent) {
		best := 0
		for i := range rem {
			if rem[i].GreaterThan(rem[best]) {
				best = i
			}
		}
		out[best] = out[best].Add(cent)
		rem[best] = decimal.NewFromInt(-1)
		diff = diff.Sub(cent)
	}
	// float noise can leave the truncated parts a cent above the total
	for diff.LessThanOrEqual(cent.Neg()) {
		worst := -1
		for i := range out {
			if out[i].LessThan(cent) {
				continue
			}
			if worst < 0 || rem[i].LessThan(rem[worst]) {
				worst = i
			}
		}
		if worst < 0 {
			break
		}
		out[worst] = out[worst].Sub(cent)
		rem[worst] = decimal.NewFromInt(2)
		diff = diff.Add(cent)
	}
	return out
}
