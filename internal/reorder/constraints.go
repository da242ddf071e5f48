package reorder

import (
	"fmt"
	"math"
)

// ConstraintInput carries what the resolver needs to turn a raw gap into an order.
type ConstraintInput struct {
	RawGap       int
	MOQ          int
	PackSize     int
	MaxStockDays *int
	Velocity     float64
	OnHand       int
	Incoming     int
}

// Resolution is the constrained quantity together with every adjustment made.
type Resolution struct {
	PostMOQ     int
	PostPack    int
	CapCeiling  *int
	PostCap     int
	Quantity    int
	Reasons     []string
	Adjustments []string
}

// ResolveConstraints applies MOQ enforcement, pack rounding and the max-stock-days cap,
// in that order. The cap runs last and wins. Feeding Quantity back in as RawGap yields
// the same Quantity.
func ResolveConstraints(in ConstraintInput) Resolution {
	moq := in.MOQ
	if moq < 1 {
		moq = DefaultMOQ
	}
	pack := in.PackSize
	if pack < 1 {
		pack = 1
	}

	res := Resolution{
		Reasons:     make([]string, 0, 3),
		Adjustments: make([]string, 0, 3),
	}

	qty := in.RawGap
	if qty < 0 {
		qty = 0
	}

	// 1. MOQ
	if qty > 0 && qty < moq {
		res.Adjustments = append(res.Adjustments, fmt.Sprintf("raised from %d to supplier MOQ %d", qty, moq))
		res.Reasons = appendUnique(res.Reasons, ReasonMOQEnforced)
		qty = moq
	}
	res.PostMOQ = qty

	// 2. Pack rounding
	if rounded := roundUpToMultiple(qty, pack); rounded != qty {
		res.Adjustments = append(res.Adjustments, fmt.Sprintf("rounded from %d to %d (pack size %d)", qty, rounded, pack))
		res.Reasons = appendUnique(res.Reasons, ReasonPackRounded)
		qty = rounded
	}
	res.PostPack = qty

	// 3. Max stock days
	if in.MaxStockDays != nil && in.Velocity > 0 && isFinite(in.Velocity) {
		ceiling := maxStockCeiling(*in.MaxStockDays, in.Velocity, in.OnHand, in.Incoming)
		res.CapCeiling = &ceiling
		if qty > ceiling {
			capped := roundUpToMultiple(ceiling, pack)
			if capped < qty {
				res.Adjustments = append(res.Adjustments, fmt.Sprintf("capped from %d to %d (max %d days of stock)", qty, capped, *in.MaxStockDays))
				res.Reasons = appendUnique(res.Reasons, ReasonCappedByMaxDays)
				qty = capped
			}
		}
	}
	res.PostCap = qty

	// Adjustments voided by the cap no longer explain the final quantity.
	if qty < moq {
		res.Reasons = removeCode(res.Reasons, ReasonMOQEnforced)
	}
	if qty == 0 {
		res.Reasons = removeCode(res.Reasons, ReasonPackRounded)
	}

	res.Quantity = qty
	return res
}

// maxStockCeiling is the largest order keeping (on_hand + incoming + qty) / velocity
// within maxDays. Never negative, never above maxOrderUnits.
func maxStockCeiling(maxDays int, velocity float64, onHand, incoming int) int {
	limit := float64(maxDays)*velocity - float64(onHand) - float64(incoming)
	if math.IsNaN(limit) || limit <= 0 {
		return 0
	}
	if limit >= maxOrderUnits {
		return maxOrderUnits
	}
	return int(math.Floor(roundFloat(limit, 6)))
}

// reasonContext is the state the post-resolution reason rules look at.
type reasonContext struct {
	Quantity         int
	OnHand           int
	ReorderPoint     int
	Incoming         int
	VelocityKnown    bool
	DaysCoverCurrent *float64
	LeadTimeDays     int
}

// trailingReasons applies the visibility rules that never change the quantity:
// reorder point breach, incoming coverage, missing velocity and lead-time risk.
func trailingReasons(ctx reasonContext) []string {
	reasons := make([]string, 0, 4)
	if ctx.OnHand <= ctx.ReorderPoint {
		reasons = append(reasons, ReasonBelowReorderPoint)
	}
	if ctx.Incoming > 0 {
		reasons = append(reasons, ReasonIncomingCoverage)
	}
	if !ctx.VelocityKnown {
		reasons = append(reasons, ReasonNoVelocity)
	}
	if ctx.DaysCoverCurrent != nil && *ctx.DaysCoverCurrent < float64(ctx.LeadTimeDays) {
		reasons = append(reasons, ReasonLeadTimeRisk)
	}
	return reasons
}
