package reorder

import "sort"

// Skip reasons reported when a product yields no suggestion.
const (
	SkipZeroVelocity     = "ZERO_VELOCITY_EXCLUDED"
	SkipMissingSupplier  = "MISSING_SUPPLIER_EXCLUDED"
	SkipBelowMinCover    = "BELOW_MIN_DAYS_COVER"
	SkipAboveMaxCover    = "ABOVE_MAX_DAYS_COVER"
	SkipUnknownDaysCover = "DAYS_COVER_UNKNOWN"
)

// admit applies the caller's inclusion filters to a finished suggestion and returns
// the skip reason, or "" when the suggestion is kept. Days-cover bounds are checked
// against days_cover_current; an unknown days cover never satisfies a bound.
func admit(s *ReorderSuggestion, params Params) string {
	if s.MissingSupplier && params.ExcludeNoSupplier {
		return SkipMissingSupplier
	}
	if params.MinDaysCover == nil && params.MaxDaysCover == nil {
		return ""
	}
	if s.DaysCoverCurrent == nil {
		return SkipUnknownDaysCover
	}
	cover := *s.DaysCoverCurrent
	if params.MinDaysCover != nil && cover < *params.MinDaysCover {
		return SkipBelowMinCover
	}
	if params.MaxDaysCover != nil && cover > *params.MaxDaysCover {
		return SkipAboveMaxCover
	}
	return ""
}

// Rank orders suggestions by ascending days_cover_current (unknown last), then SKU,
// then product id. The input slice is sorted in place.
func Rank(suggestions []ReorderSuggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		switch {
		case a.DaysCoverCurrent == nil && b.DaysCoverCurrent != nil:
			return false
		case a.DaysCoverCurrent != nil && b.DaysCoverCurrent == nil:
			return true
		case a.DaysCoverCurrent != nil && b.DaysCoverCurrent != nil && *a.DaysCoverCurrent != *b.DaysCoverCurrent:
			return *a.DaysCoverCurrent < *b.DaysCoverCurrent
		}
		if a.SKU != b.SKU {
			return a.SKU < b.SKU
		}
		return a.ProductID < b.ProductID
	})
}

// Summarize aggregates a ranked suggestion list.
func Summarize(suggestions []ReorderSuggestion) Summary {
	summary := Summary{
		TotalSuggestions: len(suggestions),
		ReasonCounts:     make(map[string]int),
	}
	suppliers := make(map[int64]struct{})
	for _, s := range suggestions {
		summary.TotalRecommendedQty += s.RecommendedQuantity
		for _, r := range s.Reasons {
			summary.ReasonCounts[r]++
		}
		if s.MissingSupplier {
			summary.MissingSupplierCount++
		}
		if s.SupplierID != nil && !s.MissingSupplier {
			suppliers[*s.SupplierID] = struct{}{}
		}
	}
	summary.DistinctSuppliers = len(suppliers)
	return summary
}
