package reorder

// HorizonInput collects the values the coverage horizon is derived from.
type HorizonInput struct {
	LeadTimeDays    *int
	SafetyStockDays *int
	Override        *int
}

// CalculateHorizon returns the number of days a reorder must cover.
// An override replaces the computed value outright.
func CalculateHorizon(in HorizonInput) int {
	if in.Override != nil {
		return *in.Override
	}

	horizon := leadTimeOrDefault(in.LeadTimeDays) + safetyStockOrDefault(in.SafetyStockDays)
	if horizon < MinHorizonDays {
		horizon = MinHorizonDays
	}
	return horizon
}

func leadTimeOrDefault(v *int) int {
	if v == nil || *v < 0 {
		return DefaultLeadTimeDays
	}
	return *v
}

func safetyStockOrDefault(v *int) int {
	if v == nil || *v < 0 {
		return DefaultSafetyStockDays
	}
	return *v
}

// incomingBucketDays lists the precomputed incoming-supply horizons, ascending.
var incomingBucketDays = [...]int{7, 14, 30, 60}

// IncomingWithinHorizon selects the smallest precomputed bucket covering horizonDays.
// Horizons beyond the largest bucket fall back to the 60-day bucket and report
// beyond=true; the value is a floor, not an extrapolation.
func IncomingWithinHorizon(b IncomingBuckets, horizonDays int) (qty int, bucket int, beyond bool) {
	values := [...]int{b.Within7, b.Within14, b.Within30, b.Within60}
	for i, days := range incomingBucketDays {
		if horizonDays <= days {
			return nonNegative(values[i]), days, false
		}
	}
	last := len(incomingBucketDays) - 1
	return nonNegative(values[last]), incomingBucketDays[last], true
}

// Total returns the widest bucket, which includes every narrower one.
func (b IncomingBuckets) Total() int {
	return nonNegative(b.Within60)
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
