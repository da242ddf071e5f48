package reorder

import "math"

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// roundUpToMultiple rounds qty up to the next multiple of step. step < 1 is treated as 1.
func roundUpToMultiple(qty, step int) int {
	if step < 1 {
		step = 1
	}
	if qty <= 0 {
		return 0
	}
	if rem := qty % step; rem != 0 {
		return qty + step - rem
	}
	return qty
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func floatPtr(v float64) *float64 {
	return &v
}

func appendUnique(list []string, code string) []string {
	for _, existing := range list {
		if existing == code {
			return list
		}
	}
	return append(list, code)
}

func removeCode(list []string, code string) []string {
	out := list[:0]
	for _, existing := range list {
		if existing != code {
			out = append(out, existing)
		}
	}
	return out
}
