package reorder

import (
	"fmt"
	"strings"
)

// Evaluation is the outcome of running one product through the engine.
// Exactly one of Suggestion and SkipReason is set.
type Evaluation struct {
	Suggestion *ReorderSuggestion
	SkipReason string
	Trace      *ExplanationTrace
}

// Evaluate runs one product through velocity selection, horizon and quantity
// calculation, constraint resolution and the inclusion filters. params must already
// be validated. Trace capture has no effect on the numbers produced.
func Evaluate(item Item, params Params, explain bool) (Evaluation, error) {
	params = params.normalized()
	t := newTracer(explain)
	t.recordInputs(item, params)

	p := item.Product
	flags := make([]string, 0, 2)

	packSize := p.PackSize
	if packSize < 1 {
		packSize = 1
	}

	supplier := item.Supplier
	missingSupplier := supplier == nil || !supplier.IsActive
	leadTime := DefaultLeadTimeDays
	moq := DefaultMOQ
	var leadTimeRaw *int
	if supplier != nil {
		leadTimeRaw = supplier.LeadTimeDays
		leadTime = leadTimeOrDefault(supplier.LeadTimeDays)
		if supplier.MinimumOrderQuantity > 1 {
			moq = supplier.MinimumOrderQuantity
		}
	}
	if missingSupplier {
		flags = append(flags, FlagMissingSupplier)
		t.step("No active supplier is linked; the product is flagged missing_supplier and defaults apply.")
	}
	if p.OnHand < 0 {
		flags = append(flags, FlagNegativeOnHand)
		t.step("On-hand quantity %d is negative; treated as a backlog that increases the gap.", p.OnHand)
	}

	// Velocity
	decision := SelectVelocity(p.Velocity7d, p.Velocity30d, p.Velocity56d, params.Strategy)
	if decision.Velocity != nil {
		t.step("Strategy %s selected velocity %.4f/day from the %s window.", params.Strategy, *decision.Velocity, decision.Source)
	} else {
		t.step("Strategy %s found no velocity readings.", params.Strategy)
	}
	if !decision.Known() {
		flags = append(flags, FlagNoVelocity)
		if !params.IncludeZeroVelocity {
			t.step("Zero or unknown velocity and include_zero_velocity is false; the product is excluded.")
			return Evaluation{SkipReason: SkipZeroVelocity, Trace: t.result()}, nil
		}
		t.step("Zero or unknown velocity but include_zero_velocity is true; continuing on the reorder point.")
	}

	// Horizon
	horizon := CalculateHorizon(HorizonInput{
		LeadTimeDays:    leadTimeRaw,
		SafetyStockDays: p.SafetyStockDays,
		Override:        params.HorizonDaysOverride,
	})
	t.calc(CalcHorizonDays, float64(horizon))
	if params.HorizonDaysOverride != nil {
		t.step("Horizon overridden to %d days.", horizon)
	} else {
		t.step("Horizon is max(lead time %d + safety stock %d, %d) = %d days.",
			leadTime, safetyStockOrDefault(p.SafetyStockDays), MinHorizonDays, horizon)
	}

	incoming, bucket, beyond := IncomingWithinHorizon(p.Incoming, horizon)
	t.calc(CalcIncoming, float64(incoming))
	if beyond {
		flags = append(flags, FlagHorizonBeyondBuckets)
		t.step("Horizon exceeds the largest incoming bucket; using the %d-day bucket (%d units) as a floor.", bucket, incoming)
	} else if incoming > 0 {
		t.step("Incoming supply within %d days: %d units.", bucket, incoming)
	}

	// Quantity
	qty := CalculateQuantity(QuantityInput{
		Velocity:     decision,
		HorizonDays:  horizon,
		OnHand:       p.OnHand,
		Incoming:     incoming,
		ReorderPoint: p.ReorderPoint,
	})
	if !isFinite(qty.DemandForecast) {
		return Evaluation{}, fmt.Errorf("non-finite demand forecast for product %d", p.ProductID)
	}
	if qty.OutOfRange {
		return Evaluation{}, fmt.Errorf("order gap for product %d exceeds %d units (forecast %g)", p.ProductID, int64(maxOrderUnits), qty.DemandForecast)
	}
	t.calc(CalcDemandForecast, qty.DemandForecast)
	t.calc(CalcRawGap, float64(qty.RawGap))

	reasons := make([]string, 0, 6)
	if qty.FromReorderPoint {
		t.step("Gap from static reorder point: max(%d - %d, 0) = %d.", p.ReorderPoint, p.OnHand, qty.RawGap)
		if qty.RawGap > 0 {
			reasons = append(reasons, ReasonReorderPointFallback)
		}
	} else {
		t.step("Demand forecast %.2f units; gap after on-hand %d and incoming %d is %d.",
			qty.DemandForecast, p.OnHand, incoming, qty.RawGap)
		if qty.RawGap > 0 {
			reasons = append(reasons, ReasonDemandGap)
		}
	}

	// Constraints
	res := ResolveConstraints(ConstraintInput{
		RawGap:       qty.RawGap,
		MOQ:          moq,
		PackSize:     packSize,
		MaxStockDays: p.MaxStockDays,
		Velocity:     decision.Rate(),
		OnHand:       p.OnHand,
		Incoming:     incoming,
	})
	t.calc(CalcPostMOQ, float64(res.PostMOQ))
	t.calc(CalcPostPack, float64(res.PostPack))
	t.calc(CalcPostCap, float64(res.PostCap))
	if res.CapCeiling != nil {
		t.calc(CalcCapCeiling, float64(*res.CapCeiling))
	}
	for _, adj := range res.Adjustments {
		t.step("Quantity %s.", adj)
	}
	reasons = append(reasons, res.Reasons...)

	var coverCurrent, coverAfter *float64
	if decision.Known() {
		rate := decision.Rate()
		coverCurrent = floatPtr(roundFloat(float64(p.OnHand)/rate, 2))
		coverAfter = floatPtr(roundFloat(float64(p.OnHand+incoming+res.Quantity)/rate, 2))
		if !isFinite(*coverCurrent) || !isFinite(*coverAfter) {
			return Evaluation{}, fmt.Errorf("non-finite days cover for product %d", p.ProductID)
		}
		t.calc(CalcDaysCoverCurrent, *coverCurrent)
		t.calc(CalcDaysCoverAfter, *coverAfter)
	}

	trailing := trailingReasons(reasonContext{
		Quantity:         res.Quantity,
		OnHand:           p.OnHand,
		ReorderPoint:     p.ReorderPoint,
		Incoming:         incoming,
		VelocityKnown:    decision.Known(),
		DaysCoverCurrent: coverCurrent,
		LeadTimeDays:     leadTime,
	})
	for _, r := range trailing {
		reasons = appendUnique(reasons, r)
	}
	if len(trailing) > 0 {
		t.step("Visibility reasons: %s.", strings.Join(trailing, ", "))
	}

	if !decision.Known() && res.Quantity == 0 {
		t.step("Included only through include_zero_velocity and resolved to 0; no suggestion is produced.")
		return Evaluation{SkipReason: ReasonZeroVelocitySkipped, Trace: t.result()}, nil
	}

	suggestion := &ReorderSuggestion{
		ProductID:             p.ProductID,
		SKU:                   p.SKU,
		Name:                  p.Name,
		Category:              p.Category,
		SupplierID:            p.SupplierID,
		MissingSupplier:       missingSupplier,
		UnitCost:              p.Cost,
		PackSize:              packSize,
		OnHand:                p.OnHand,
		IncomingTotal:         p.Incoming.Total(),
		Incoming:              p.Incoming,
		IncomingWithinHorizon: incoming,
		DaysCoverCurrent:      coverCurrent,
		DaysCoverAfter:        coverAfter,
		RecommendedQuantity:   res.Quantity,
		ChosenVelocity:        decision.Velocity,
		VelocitySource:        decision.Source,
		HorizonDays:           horizon,
		DemandForecastUnits:   roundFloat(qty.DemandForecast, 4),
		Reasons:               reasons,
		Adjustments:           res.Adjustments,
		Flags:                 flags,
	}
	if supplier != nil {
		id := supplier.ID
		suggestion.SupplierID = &id
		suggestion.SupplierName = supplier.Name
	}

	if skip := admit(suggestion, params); skip != "" {
		t.step("Excluded by request filters: %s.", skip)
		return Evaluation{SkipReason: skip, Trace: t.result()}, nil
	}

	t.step("Recommend ordering %d units.", res.Quantity)
	return Evaluation{Suggestion: suggestion, Trace: t.result()}, nil
}
