package reorder

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func scenarioItem() Item {
	sid := int64(7)
	return Item{
		Product: ProductReorderInput{
			ProductID:    1,
			SKU:          "SKU-001",
			Name:         "Widget",
			ReorderPoint: 20,
			PackSize:     5,
			SupplierID:   &sid,
			OnHand:       10,
			Velocity7d:   fp(2),
		},
		Supplier: &SupplierInfo{ID: sid, Name: "Acme", MinimumOrderQuantity: 12, IsActive: true},
	}
}

func mustSuggestOne(t *testing.T, item Item, params Params) ReorderSuggestion {
	t.Helper()
	res, err := NewEngine(WithWorkers(1)).Suggest([]Item{item}, params)
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if len(res.Suggestions) != 1 {
		t.Fatalf("Expected 1 suggestion, got %d (skipped %v, diagnostics %v)", len(res.Suggestions), res.Skipped, res.Diagnostics)
	}
	return res.Suggestions[0]
}

func TestSuggest_MOQAndPackScenario(t *testing.T) {
	s := mustSuggestOne(t, scenarioItem(), Params{})

	if s.HorizonDays != 10 {
		t.Errorf("Expected horizon 10, got %d", s.HorizonDays)
	}
	if s.DemandForecastUnits != 20 {
		t.Errorf("Expected demand forecast 20, got %v", s.DemandForecastUnits)
	}
	if s.RecommendedQuantity != 15 {
		t.Errorf("Expected recommended quantity 15, got %d", s.RecommendedQuantity)
	}
	for _, code := range []string{ReasonMOQEnforced, ReasonPackRounded, ReasonBelowReorderPoint} {
		if !s.HasReason(code) {
			t.Errorf("Expected reason %s in %v", code, s.Reasons)
		}
	}
	if s.DaysCoverCurrent == nil || *s.DaysCoverCurrent != 5 {
		t.Errorf("Expected days cover current 5, got %v", s.DaysCoverCurrent)
	}
	if s.DaysCoverAfter == nil || *s.DaysCoverAfter != 12.5 {
		t.Errorf("Expected days cover after 12.5, got %v", s.DaysCoverAfter)
	}
	if s.VelocitySource != Source7d {
		t.Errorf("Expected source 7d, got %s", s.VelocitySource)
	}
	if s.SupplierName != "Acme" || s.MissingSupplier {
		t.Errorf("Expected active supplier Acme, got %q missing=%v", s.SupplierName, s.MissingSupplier)
	}
}

func TestSuggest_MaxStockDaysScenario(t *testing.T) {
	item := scenarioItem()
	item.Product.MaxStockDays = ip(5)

	s := mustSuggestOne(t, item, Params{})

	if s.RecommendedQuantity != 0 {
		t.Errorf("Expected recommended quantity 0, got %d", s.RecommendedQuantity)
	}
	if !s.HasReason(ReasonCappedByMaxDays) {
		t.Errorf("Expected CAPPED_BY_MAX_DAYS in %v", s.Reasons)
	}
	if s.HasReason(ReasonMOQEnforced) {
		t.Errorf("Expected no MOQ_ENFORCED in %v", s.Reasons)
	}
}

func TestSuggest_ZeroVelocityFiltering(t *testing.T) {
	item := scenarioItem()
	item.Product.Velocity7d = nil
	item.Product.ReorderPoint = 500

	res, err := NewEngine().Suggest([]Item{item}, Params{IncludeZeroVelocity: false})
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if len(res.Suggestions) != 0 {
		t.Fatalf("Expected no suggestions, got %+v", res.Suggestions)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != SkipZeroVelocity {
		t.Errorf("Expected skip %s, got %+v", SkipZeroVelocity, res.Skipped)
	}

	t.Run("included through reorder point", func(t *testing.T) {
		s := mustSuggestOne(t, item, Params{IncludeZeroVelocity: true})
		// gap 490 from reorder point, rounded to pack 5
		if s.RecommendedQuantity != 490 {
			t.Errorf("Expected 490, got %d", s.RecommendedQuantity)
		}
		if !s.HasReason(ReasonNoVelocity) || !s.HasReason(ReasonReorderPointFallback) {
			t.Errorf("Expected NO_VELOCITY and REORDER_POINT_FALLBACK in %v", s.Reasons)
		}
		if s.DaysCoverCurrent != nil {
			t.Errorf("Expected unknown days cover, got %v", *s.DaysCoverCurrent)
		}
		if !s.HasFlag(FlagNoVelocity) {
			t.Errorf("Expected no_velocity flag in %v", s.Flags)
		}
	})

	t.Run("included but resolves to zero", func(t *testing.T) {
		quiet := item
		quiet.Product.ReorderPoint = 0
		res, err := NewEngine().Suggest([]Item{quiet}, Params{IncludeZeroVelocity: true})
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}
		if len(res.Suggestions) != 0 {
			t.Errorf("Expected no suggestion, got %+v", res.Suggestions)
		}
		if len(res.Skipped) != 1 || res.Skipped[0].Reason != ReasonZeroVelocitySkipped {
			t.Errorf("Expected skip %s, got %+v", ReasonZeroVelocitySkipped, res.Skipped)
		}
	})
}

func TestSuggest_DataQualityIsNeverFatal(t *testing.T) {
	item := scenarioItem()
	item.Supplier = nil
	item.Product.SupplierID = nil
	item.Product.OnHand = -4

	s := mustSuggestOne(t, item, Params{})
	if !s.MissingSupplier || !s.HasFlag(FlagMissingSupplier) || !s.HasFlag(FlagNegativeOnHand) {
		t.Errorf("Expected missing_supplier and negative_on_hand flags, got %v", s.Flags)
	}
	// gap = 20 - (-4) = 24, default MOQ 1, pack 5
	if s.RecommendedQuantity != 25 {
		t.Errorf("Expected 25, got %d", s.RecommendedQuantity)
	}

	res, err := NewEngine().Suggest([]Item{item}, Params{ExcludeNoSupplier: true})
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if len(res.Suggestions) != 0 || res.Skipped[0].Reason != SkipMissingSupplier {
		t.Errorf("Expected product dropped as %s, got %+v / %+v", SkipMissingSupplier, res.Suggestions, res.Skipped)
	}
}

func TestSuggest_InactiveSupplierIsMissing(t *testing.T) {
	item := scenarioItem()
	item.Supplier.IsActive = false

	s := mustSuggestOne(t, item, Params{})
	if !s.MissingSupplier {
		t.Error("Expected inactive supplier to be flagged missing")
	}
}

func TestSuggest_ReasonCodes(t *testing.T) {
	item := scenarioItem()
	item.Product.Incoming = IncomingBuckets{Within7: 0, Within14: 4, Within30: 4, Within60: 9}
	item.Supplier.LeadTimeDays = ip(14)

	s := mustSuggestOne(t, item, Params{})
	// horizon 17 selects the 30-day bucket
	if s.IncomingWithinHorizon != 4 || s.IncomingTotal != 9 {
		t.Errorf("Expected incoming 4 within horizon and 9 total, got %d / %d", s.IncomingWithinHorizon, s.IncomingTotal)
	}
	for _, code := range []string{ReasonDemandGap, ReasonIncomingCoverage, ReasonLeadTimeRisk} {
		if !s.HasReason(code) {
			t.Errorf("Expected reason %s in %v", code, s.Reasons)
		}
	}
}

func TestSuggest_DaysCoverFilterAndRanking(t *testing.T) {
	mk := func(id int64, sku string, onHand int, velocity *float64) Item {
		return Item{Product: ProductReorderInput{ProductID: id, SKU: sku, PackSize: 1, OnHand: onHand, Velocity7d: velocity, ReorderPoint: 50}}
	}
	items := []Item{
		mk(1, "C", 30, fp(1)),   // 30 days
		mk(2, "B", 10, fp(1)),   // 10 days
		mk(3, "A", 10, fp(1)),   // 10 days, earlier SKU
		mk(4, "D", 5, nil),      // unknown
		mk(5, "E", 100, fp(10)), // 10 days
	}

	res, err := NewEngine(WithWorkers(3)).Suggest(items, Params{IncludeZeroVelocity: true})
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	var got []string
	for _, s := range res.Suggestions {
		got = append(got, s.SKU)
	}
	want := []string{"A", "B", "E", "C", "D"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}

	res, err = NewEngine().Suggest(items, Params{IncludeZeroVelocity: true, MinDaysCover: fp(5), MaxDaysCover: fp(20)})
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	got = got[:0]
	for _, s := range res.Suggestions {
		got = append(got, s.SKU)
	}
	want = []string{"A", "B", "E"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected filtered order %v, got %v", want, got)
	}
	if res.Summary.SkippedCount != 2 {
		t.Errorf("Expected 2 skipped, got %d", res.Summary.SkippedCount)
	}
}

func TestSuggest_Summary(t *testing.T) {
	a := scenarioItem()
	b := scenarioItem()
	b.Product.ProductID = 2
	b.Product.SKU = "SKU-002"
	c := scenarioItem()
	c.Product.ProductID = 3
	c.Product.SKU = "SKU-003"
	c.Supplier = &SupplierInfo{ID: 9, Name: "Other", IsActive: true}

	res, err := NewEngine().Suggest([]Item{a, b, c}, Params{})
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if res.Summary.TotalSuggestions != 3 {
		t.Errorf("Expected 3 suggestions, got %d", res.Summary.TotalSuggestions)
	}
	// a, b: 15 each; c: gap 10, MOQ 1, pack 5 -> 10
	if res.Summary.TotalRecommendedQty != 40 {
		t.Errorf("Expected total 40, got %d", res.Summary.TotalRecommendedQty)
	}
	if res.Summary.DistinctSuppliers != 2 {
		t.Errorf("Expected 2 suppliers, got %d", res.Summary.DistinctSuppliers)
	}
	if res.Summary.ReasonCounts[ReasonMOQEnforced] != 2 {
		t.Errorf("Expected MOQ_ENFORCED count 2, got %d", res.Summary.ReasonCounts[ReasonMOQEnforced])
	}
}

func TestSuggest_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		field  string
	}{
		{"unknown strategy", Params{Strategy: "fastest"}, "strategy"},
		{"negative override", Params{HorizonDaysOverride: ip(-3)}, "horizon_days_override"},
		{"zero override", Params{HorizonDaysOverride: ip(0)}, "horizon_days_override"},
		{"negative min cover", Params{MinDaysCover: fp(-1)}, "min_days_cover"},
		{"min above max", Params{MinDaysCover: fp(10), MaxDaysCover: fp(5)}, "min_days_cover"},
		{"NaN min cover", Params{MinDaysCover: fp(math.NaN())}, "min_days_cover"},
		{"infinite max cover", Params{MaxDaysCover: fp(math.Inf(1))}, "max_days_cover"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine().Suggest([]Item{scenarioItem()}, tt.params)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, verr.Field)
			}
		})
	}
}

func TestSuggest_InternalFailureIsIsolated(t *testing.T) {
	bad := scenarioItem()
	bad.Product.ProductID = 99
	bad.Product.SKU = "BAD"
	bad.Product.Velocity7d = fp(1e308)
	bad.Product.Velocity30d = nil

	res, err := NewEngine().Suggest([]Item{scenarioItem(), bad}, Params{HorizonDaysOverride: ip(60)})
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	if len(res.Suggestions) != 1 || res.Suggestions[0].SKU != "SKU-001" {
		t.Errorf("Expected only the healthy product, got %+v", res.Suggestions)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].ProductID != 99 {
		t.Errorf("Expected one diagnostic for product 99, got %+v", res.Diagnostics)
	}
}

func TestSuggest_OversizedGapIsIsolated(t *testing.T) {
	huge := scenarioItem()
	huge.Product.ProductID = 98
	huge.Product.SKU = "HUGE"
	huge.Product.Velocity7d = fp(1e17)

	res, err := NewEngine().Suggest([]Item{scenarioItem(), huge}, Params{HorizonDaysOverride: ip(1000)})
	if err != nil {
		t.Fatalf("Suggest returned error: %v", err)
	}
	for _, s := range res.Suggestions {
		if s.ProductID == 98 {
			t.Errorf("Expected oversized product to be excluded, got quantity %d", s.RecommendedQuantity)
		}
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].ProductID != 98 {
		t.Errorf("Expected one diagnostic for product 98, got %+v", res.Diagnostics)
	}
}

func TestSuggest_ZeroReadingCarriesNoVelocityReason(t *testing.T) {
	item := scenarioItem()
	item.Product.Velocity7d = fp(0)

	s := mustSuggestOne(t, item, Params{IncludeZeroVelocity: true})
	if !s.HasFlag(FlagNoVelocity) || !s.HasReason(ReasonNoVelocity) {
		t.Errorf("Expected no_velocity flag and NO_VELOCITY reason, got flags %v reasons %v", s.Flags, s.Reasons)
	}
}

func randomItems(n int, seed int64) []Item {
	rng := rand.New(rand.NewSource(seed))
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		sid := int64(rng.Intn(5))
		p := ProductReorderInput{
			ProductID:    int64(i + 1),
			SKU:          fmt.Sprintf("SKU-%04d", rng.Intn(n*2)),
			ReorderPoint: rng.Intn(60),
			PackSize:     1 + rng.Intn(12),
			OnHand:       rng.Intn(150) - 10,
			SupplierID:   &sid,
			Incoming: IncomingBuckets{
				Within7:  rng.Intn(5),
				Within14: 5 + rng.Intn(5),
				Within30: 10 + rng.Intn(10),
				Within60: 20 + rng.Intn(20),
			},
		}
		if rng.Intn(4) != 0 {
			p.Velocity7d = fp(float64(rng.Intn(40)) / 4)
		}
		if rng.Intn(3) != 0 {
			p.Velocity30d = fp(float64(rng.Intn(40)) / 4)
		}
		if rng.Intn(2) == 0 {
			p.MaxStockDays = ip(5 + rng.Intn(60))
		}
		if rng.Intn(3) == 0 {
			p.SafetyStockDays = ip(rng.Intn(10))
		}
		if rng.Intn(2) == 0 {
			cost := decimal.NewFromFloat(float64(rng.Intn(1000)) / 10)
			p.Cost = &cost
		}
		var supplier *SupplierInfo
		if sid != 0 {
			supplier = &SupplierInfo{ID: sid, Name: fmt.Sprintf("S%d", sid), LeadTimeDays: ip(rng.Intn(30)), MinimumOrderQuantity: 1 + rng.Intn(40), IsActive: true}
		}
		items = append(items, Item{Product: p, Supplier: supplier})
	}
	return items
}

func TestSuggest_RandomBatchProperties(t *testing.T) {
	items := randomItems(400, 7)
	for _, strategy := range []Strategy{StrategyLatest, StrategyConservative} {
		res, err := NewEngine().Suggest(items, Params{Strategy: strategy, IncludeZeroVelocity: true})
		if err != nil {
			t.Fatalf("Suggest returned error: %v", err)
		}
		for _, s := range res.Suggestions {
			if s.RecommendedQuantity < 0 || s.RecommendedQuantity%s.PackSize != 0 {
				t.Errorf("%s: quantity %d not a multiple of pack %d", s.SKU, s.RecommendedQuantity, s.PackSize)
			}
			if s.RecommendedQuantity > 0 && len(s.Reasons) == 0 {
				t.Errorf("%s: positive quantity without reasons", s.SKU)
			}
			if s.RecommendedQuantity > 0 && s.DaysCoverCurrent != nil && *s.DaysCoverAfter < *s.DaysCoverCurrent {
				t.Errorf("%s: days cover after %v below current %v", s.SKU, *s.DaysCoverAfter, *s.DaysCoverCurrent)
			}
		}
		if len(res.Diagnostics) != 0 {
			t.Errorf("Expected no diagnostics, got %+v", res.Diagnostics)
		}
	}
}

func TestSuggest_ParallelMatchesSequential(t *testing.T) {
	items := randomItems(300, 11)
	params := Params{Strategy: StrategyConservative, IncludeZeroVelocity: true}

	seq, err := NewEngine(WithWorkers(1)).Suggest(items, params)
	if err != nil {
		t.Fatalf("sequential Suggest returned error: %v", err)
	}
	par, err := NewEngine(WithWorkers(8)).Suggest(items, params)
	if err != nil {
		t.Fatalf("parallel Suggest returned error: %v", err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Error("Expected parallel result to equal sequential result")
	}
}

func TestExplain(t *testing.T) {
	items := []Item{scenarioItem()}
	engine := NewEngine()

	exp, err := engine.Explain(items, 1, Params{})
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if exp.Skipped || exp.Suggestion == nil {
		t.Fatalf("Expected a suggestion, got %+v", exp)
	}
	calcs := exp.Trace.Calculations
	want := map[string]float64{
		CalcDemandForecast: 20,
		CalcRawGap:         10,
		CalcPostMOQ:        12,
		CalcPostPack:       15,
		CalcPostCap:        15,
	}
	for k, v := range want {
		if calcs[k] != v {
			t.Errorf("Expected %s=%v, got %v", k, v, calcs[k])
		}
	}
	if len(exp.Trace.LogicPath) == 0 {
		t.Error("Expected a non-empty logic path")
	}
	if exp.Trace.Inputs["on_hand"] != 10 {
		t.Errorf("Expected on_hand input 10, got %v", exp.Trace.Inputs["on_hand"])
	}

	// Trace capture must not change the numbers.
	plain := mustSuggestOne(t, scenarioItem(), Params{})
	if !reflect.DeepEqual(plain, *exp.Suggestion) {
		t.Errorf("Expected explain suggestion to match plain suggestion:\n%+v\n%+v", plain, *exp.Suggestion)
	}
}

func TestExplain_SkippedAndMissing(t *testing.T) {
	item := scenarioItem()
	item.Product.Velocity7d = nil

	exp, err := NewEngine().Explain([]Item{item}, 1, Params{})
	if err != nil {
		t.Fatalf("Explain returned error: %v", err)
	}
	if !exp.Skipped || exp.SkipReason != SkipZeroVelocity {
		t.Errorf("Expected skipped with %s, got %+v", SkipZeroVelocity, exp)
	}

	_, err = NewEngine().Explain([]Item{item}, 404, Params{})
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}
