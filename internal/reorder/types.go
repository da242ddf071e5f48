package reorder

import "github.com/shopspring/decimal"

// Strategy selects how a single demand rate is chosen from the windowed velocities.
type Strategy string

const (
	StrategyLatest       Strategy = "latest"
	StrategyConservative Strategy = "conservative"
)

// VelocitySource tags which window produced the chosen velocity.
type VelocitySource string

const (
	Source7d    VelocitySource = "7d"
	Source30d   VelocitySource = "30d"
	Source56d   VelocitySource = "56d"
	SourceNone  VelocitySource = "none"
	SourceMixed VelocitySource = "mixed"
)

// Defaults applied when product or supplier values are missing.
const (
	DefaultLeadTimeDays    = 7
	DefaultSafetyStockDays = 3
	DefaultMOQ             = 1
	MinHorizonDays         = 7
)

// IncomingBuckets holds open purchase order quantities expected within each horizon.
type IncomingBuckets struct {
	Within7  int `json:"within_7d" db:"incoming_7d"`
	Within14 int `json:"within_14d" db:"incoming_14d"`
	Within30 int `json:"within_30d" db:"incoming_30d"`
	Within60 int `json:"within_60d" db:"incoming_60d"`
}

// ProductReorderInput is an immutable per-product snapshot fetched for one computation.
type ProductReorderInput struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Category  string `json:"category,omitempty"`

	Cost  *decimal.Decimal `json:"cost,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`

	ReorderPoint    int  `json:"reorder_point"`
	SafetyStockDays *int `json:"safety_stock_days,omitempty"`
	PackSize        int  `json:"pack_size"`
	MaxStockDays    *int `json:"max_stock_days,omitempty"`

	SupplierID *int64 `json:"supplier_id,omitempty"`

	// OnHand may be negative when the stock ledger is out of sync.
	OnHand int `json:"on_hand"`

	Velocity7d  *float64 `json:"velocity_7d,omitempty"`
	Velocity30d *float64 `json:"velocity_30d,omitempty"`
	Velocity56d *float64 `json:"velocity_56d,omitempty"`

	Incoming IncomingBuckets `json:"incoming"`
}

// SupplierInfo carries the supplier attributes the engine needs.
type SupplierInfo struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	LeadTimeDays         *int   `json:"lead_time_days,omitempty"`
	MinimumOrderQuantity int    `json:"minimum_order_quantity"`
	PaymentTerms         string `json:"payment_terms,omitempty"`
	IsActive             bool   `json:"is_active"`
}

// Item pairs a product snapshot with its supplier. Supplier is nil when the product has none.
type Item struct {
	Product  ProductReorderInput `json:"product"`
	Supplier *SupplierInfo       `json:"supplier,omitempty"`
}

// VelocityDecision is the outcome of velocity selection.
type VelocityDecision struct {
	Velocity *float64       `json:"velocity"`
	Source   VelocitySource `json:"source"`
	Strategy Strategy       `json:"strategy"`
}

// Known returns true when a positive demand rate was selected.
func (d VelocityDecision) Known() bool {
	return d.Velocity != nil && *d.Velocity > 0
}

// Rate returns the chosen velocity, or 0 when none was selected.
func (d VelocityDecision) Rate() float64 {
	if d.Velocity == nil {
		return 0
	}
	return *d.Velocity
}

// Reason codes emitted on suggestions.
const (
	ReasonDemandGap            = "DEMAND_GAP"
	ReasonReorderPointFallback = "REORDER_POINT_FALLBACK"
	ReasonMOQEnforced          = "MOQ_ENFORCED"
	ReasonPackRounded          = "PACK_ROUNDED"
	ReasonCappedByMaxDays      = "CAPPED_BY_MAX_DAYS"
	ReasonBelowReorderPoint    = "BELOW_REORDER_POINT"
	ReasonIncomingCoverage     = "INCOMING_COVERAGE"
	ReasonNoVelocity           = "NO_VELOCITY"
	ReasonZeroVelocitySkipped  = "ZERO_VELOCITY_SKIPPED"
	ReasonLeadTimeRisk         = "LEAD_TIME_RISK"
)

// Data-quality flags. They never block a suggestion.
const (
	FlagMissingSupplier      = "missing_supplier"
	FlagNegativeOnHand       = "negative_on_hand"
	FlagNoVelocity           = "no_velocity"
	FlagHorizonBeyondBuckets = "horizon_beyond_buckets"
)

// ReorderSuggestion is the per-product output record.
type ReorderSuggestion struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Category  string `json:"category,omitempty"`

	SupplierID      *int64 `json:"supplier_id,omitempty"`
	SupplierName    string `json:"supplier_name,omitempty"`
	MissingSupplier bool   `json:"missing_supplier"`

	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
	PackSize int              `json:"pack_size"`

	OnHand                int             `json:"on_hand"`
	IncomingTotal         int             `json:"incoming_total"`
	Incoming              IncomingBuckets `json:"incoming"`
	IncomingWithinHorizon int             `json:"incoming_within_horizon"`

	DaysCoverCurrent *float64 `json:"days_cover_current"`
	DaysCoverAfter   *float64 `json:"days_cover_after"`

	RecommendedQuantity int            `json:"recommended_quantity"`
	ChosenVelocity      *float64       `json:"chosen_velocity"`
	VelocitySource      VelocitySource `json:"velocity_source"`
	HorizonDays         int            `json:"horizon_days"`
	DemandForecastUnits float64        `json:"demand_forecast_units"`

	Reasons     []string `json:"reasons"`
	Adjustments []string `json:"adjustments"`
	Flags       []string `json:"flags,omitempty"`
}

// HasReason reports whether code is among the suggestion's reasons.
func (s ReorderSuggestion) HasReason(code string) bool {
	for _, r := range s.Reasons {
		if r == code {
			return true
		}
	}
	return false
}

// HasFlag reports whether flag is among the suggestion's data-quality flags.
func (s ReorderSuggestion) HasFlag(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Diagnostic records a product that was excluded because its evaluation failed.
type Diagnostic struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Message   string `json:"message"`
}

// Skipped records a product that produced no suggestion and why.
type Skipped struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Reason    string `json:"reason"`
}

// Summary aggregates a suggestion batch.
type Summary struct {
	TotalSuggestions       int            `json:"total_suggestions"`
	TotalRecommendedQty    int            `json:"total_recommended_quantity"`
	DistinctSuppliers      int            `json:"distinct_suppliers"`
	ReasonCounts           map[string]int `json:"reason_counts"`
	SkippedCount           int            `json:"skipped_count"`
	DiagnosticCount        int            `json:"diagnostic_count"`
	MissingSupplierCount   int            `json:"missing_supplier_count"`
	ProductsEvaluatedCount int            `json:"products_evaluated"`
}

// Result is the output contract of a suggestion batch.
type Result struct {
	Suggestions []ReorderSuggestion `json:"suggestions"`
	Summary     Summary             `json:"summary"`
	Skipped     []Skipped           `json:"skipped,omitempty"`
	Diagnostics []Diagnostic        `json:"diagnostics,omitempty"`
}
