package reorder

import "math"

type windowReading struct {
	source VelocitySource
	value  *float64
}

// SelectVelocity picks one demand rate from the 7/30/56-day readings.
//
// latest takes the first present reading in 7d, 30d, 56d order. conservative takes the
// minimum present reading and reports "mixed" when that minimum is shared by more than
// one window. Non-finite readings count as absent; negative readings (net returns) are
// clamped to zero.
func SelectVelocity(v7, v30, v56 *float64, strategy Strategy) VelocityDecision {
	readings := []windowReading{
		{Source7d, sanitizeVelocity(v7)},
		{Source30d, sanitizeVelocity(v30)},
		{Source56d, sanitizeVelocity(v56)},
	}

	decision := VelocityDecision{Source: SourceNone, Strategy: strategy}

	switch strategy {
	case StrategyConservative:
		var (
			best    *float64
			source  VelocitySource
			matches int
		)
		for _, r := range readings {
			if r.value == nil {
				continue
			}
			switch {
			case best == nil || *r.value < *best:
				best, source, matches = r.value, r.source, 1
			case *r.value == *best:
				matches++
			}
		}
		if best == nil {
			return decision
		}
		decision.Velocity = best
		decision.Source = source
		if matches > 1 {
			decision.Source = SourceMixed
		}
	default:
		for _, r := range readings {
			if r.value != nil {
				decision.Velocity = r.value
				decision.Source = r.source
				break
			}
		}
	}

	return decision
}

func sanitizeVelocity(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	val := *v
	if val < 0 {
		val = 0
	}
	return &val
}
