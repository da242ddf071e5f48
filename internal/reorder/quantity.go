package reorder

import "math"

// QuantityInput collects the values the raw order gap is computed from.
type QuantityInput struct {
	Velocity     VelocityDecision
	HorizonDays  int
	OnHand       int
	Incoming     int // incoming within the horizon
	ReorderPoint int
}

// QuantityResult is the unconstrained recommendation.
type QuantityResult struct {
	DemandForecast   float64
	RawGap           int
	FromReorderPoint bool
	// OutOfRange is set when the gap cannot be represented as a whole unit count.
	OutOfRange bool
}

// maxOrderUnits bounds any computed quantity. Above 2^53 a float64 no longer holds
// every whole number, so larger gaps are treated as a computation failure.
const maxOrderUnits = 1 << 53

// CalculateQuantity computes demand over the horizon and the gap left after on-hand and
// incoming supply. Safety stock is already part of the horizon, so the target is the
// forecast itself. Without a positive velocity the gap falls back to the static reorder
// point so a product with no sales history can still surface.
func CalculateQuantity(in QuantityInput) QuantityResult {
	if !in.Velocity.Known() {
		gap := in.ReorderPoint - in.OnHand
		if gap < 0 {
			gap = 0
		}
		return QuantityResult{RawGap: gap, FromReorderPoint: true}
	}

	forecast := in.Velocity.Rate() * float64(in.HorizonDays)
	gap := forecast - float64(in.OnHand) - float64(in.Incoming)

	units, ok := ceilUnits(gap)
	return QuantityResult{
		DemandForecast: forecast,
		RawGap:         units,
		OutOfRange:     !ok,
	}
}

// ceilUnits converts a fractional unit count into whole units, never negative.
// Rounding to 6 places first keeps float noise (20.0000000001) from adding a unit.
// ok is false when v is not finite or exceeds maxOrderUnits.
func ceilUnits(v float64) (units int, ok bool) {
	if !isFinite(v) {
		return 0, false
	}
	if v <= 0 {
		return 0, true
	}
	c := math.Ceil(roundFloat(v, 6))
	if c > maxOrderUnits {
		return 0, false
	}
	return int(c), true
}
