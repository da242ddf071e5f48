package reorder

import "fmt"

// ExplanationTrace records how one suggestion was reached.
type ExplanationTrace struct {
	Inputs       map[string]interface{} `json:"inputs"`
	Calculations map[string]float64     `json:"calculations"`
	LogicPath    []string               `json:"logic_path"`
}

// Calculation keys written to ExplanationTrace.Calculations.
const (
	CalcHorizonDays      = "horizon_days"
	CalcIncoming         = "incoming_within_horizon"
	CalcDemandForecast   = "demand_forecast"
	CalcRawGap           = "raw_gap"
	CalcPostMOQ          = "post_moq"
	CalcPostPack         = "post_pack"
	CalcCapCeiling       = "cap_ceiling"
	CalcPostCap          = "post_cap"
	CalcDaysCoverCurrent = "days_cover_current"
	CalcDaysCoverAfter   = "days_cover_after"
)

// tracer accumulates an ExplanationTrace. A nil tracer discards everything, so
// callers never branch on whether explanation capture is enabled.
type tracer struct {
	trace ExplanationTrace
}

func newTracer(enabled bool) *tracer {
	if !enabled {
		return nil
	}
	return &tracer{trace: ExplanationTrace{
		Inputs:       make(map[string]interface{}),
		Calculations: make(map[string]float64),
		LogicPath:    make([]string, 0, 8),
	}}
}

func (t *tracer) input(key string, value interface{}) {
	if t == nil {
		return
	}
	t.trace.Inputs[key] = value
}

func (t *tracer) calc(key string, value float64) {
	if t == nil {
		return
	}
	t.trace.Calculations[key] = roundFloat(value, 4)
}

func (t *tracer) step(format string, args ...interface{}) {
	if t == nil {
		return
	}
	t.trace.LogicPath = append(t.trace.LogicPath, fmt.Sprintf(format, args...))
}

func (t *tracer) result() *ExplanationTrace {
	if t == nil {
		return nil
	}
	out := t.trace
	return &out
}

// recordInputs copies the raw values used for one evaluation into the trace.
func (t *tracer) recordInputs(item Item, params Params) {
	if t == nil {
		return
	}
	p := item.Product
	t.input("product_id", p.ProductID)
	t.input("sku", p.SKU)
	t.input("on_hand", p.OnHand)
	t.input("reorder_point", p.ReorderPoint)
	t.input("pack_size", p.PackSize)
	t.input("velocity_7d", p.Velocity7d)
	t.input("velocity_30d", p.Velocity30d)
	t.input("velocity_56d", p.Velocity56d)
	t.input("incoming", p.Incoming)
	t.input("safety_stock_days", p.SafetyStockDays)
	t.input("max_stock_days", p.MaxStockDays)
	t.input("strategy", string(params.Strategy))
	t.input("horizon_days_override", params.HorizonDaysOverride)
	t.input("include_zero_velocity", params.IncludeZeroVelocity)
	if s := item.Supplier; s != nil {
		t.input("supplier_id", s.ID)
		t.input("supplier_active", s.IsActive)
		t.input("lead_time_days", s.LeadTimeDays)
		t.input("supplier_moq", s.MinimumOrderQuantity)
	} else {
		t.input("supplier_id", nil)
	}
}
