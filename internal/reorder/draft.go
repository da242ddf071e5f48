package reorder

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Draft line failure reasons. A failure only affects its own line.
const (
	DraftFailureNotInBatch       = "not_in_batch"
	DraftFailureZeroQuantity     = "zero_quantity"
	DraftFailureSupplierNotFound = "supplier_not_found"
)

// DraftLine is one product on a draft purchase order.
type DraftLine struct {
	ProductID  int64             `json:"product_id"`
	SKU        string            `json:"sku"`
	Name       string            `json:"name"`
	Quantity   int               `json:"quantity"`
	UnitCost   *decimal.Decimal  `json:"unit_cost,omitempty"`
	LineTotal  *decimal.Decimal  `json:"line_total,omitempty"`
	Suggestion ReorderSuggestion `json:"suggestion"`
}

// DraftPurchaseOrder groups selected suggestions for one supplier.
type DraftPurchaseOrder struct {
	SupplierID           int64            `json:"supplier_id"`
	SupplierName         string           `json:"supplier_name"`
	PONumber             string           `json:"po_number"`
	Lines                []DraftLine      `json:"lines"`
	TotalItems           int              `json:"total_items"`
	TotalQuantity        int              `json:"total_quantity"`
	EstimatedTotal       *decimal.Decimal `json:"estimated_total,omitempty"`
	LeadTimeDays         int              `json:"lead_time_days"`
	MinimumOrderQuantity int              `json:"minimum_order_quantity"`
	PaymentTerms         string           `json:"payment_terms,omitempty"`
	BelowMOQ             bool             `json:"below_moq"`
}

// DraftFailure is a selected product that could not be placed on a draft.
type DraftFailure struct {
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku,omitempty"`
	Reason    string `json:"reason"`
}

// DraftSummary aggregates a grouping run.
type DraftSummary struct {
	DraftCount          int             `json:"draft_count"`
	LineCount           int             `json:"line_count"`
	UnassignedCount     int             `json:"unassigned_count"`
	FailureCount        int             `json:"failure_count"`
	TotalQuantity       int             `json:"total_quantity"`
	TotalEstimatedValue decimal.Decimal `json:"total_estimated_value"`
	EstimateComplete    bool            `json:"estimate_complete"`
	DistinctSuppliers   int             `json:"distinct_suppliers"`
	BelowMOQSuppliers   []int64         `json:"below_moq_suppliers,omitempty"`
}

// DraftResult is the draft PO contract output.
type DraftResult struct {
	Drafts     []DraftPurchaseOrder `json:"drafts"`
	Unassigned []DraftLine          `json:"unassigned"`
	Failures   []DraftFailure       `json:"failures,omitempty"`
	Summary    DraftSummary         `json:"summary"`
}

// PONumberFunc produces the PO number for the seq-th draft (1-based).
type PONumberFunc func(seq int, supplier SupplierInfo) string

// DraftOptions controls PO numbering.
type DraftOptions struct {
	AutoNumber bool
	Numberer   PONumberFunc
}

// PlaceholderPONumber is used when no numbering scheme applies.
func PlaceholderPONumber(seq int, _ SupplierInfo) string {
	return fmt.Sprintf("DRAFT-%03d", seq)
}

// GroupDrafts groups the selected products' suggestions into one draft per supplier.
// It never fails as a whole: unknown products, zero quantities and dangling supplier
// references are reported as failures; products without an active supplier land in
// Unassigned. Supplier groups below the supplier MOQ are emitted and flagged.
func GroupDrafts(suggestions []ReorderSuggestion, suppliers map[int64]SupplierInfo, productIDs []int64, opts DraftOptions) *DraftResult {
	byProduct := make(map[int64]ReorderSuggestion, len(suggestions))
	for _, s := range suggestions {
		byProduct[s.ProductID] = s
	}

	result := &DraftResult{
		Drafts:     make([]DraftPurchaseOrder, 0),
		Unassigned: make([]DraftLine, 0),
	}
	groups := make(map[int64][]DraftLine)
	seen := make(map[int64]struct{}, len(productIDs))

	for _, id := range productIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		s, ok := byProduct[id]
		if !ok {
			result.Failures = append(result.Failures, DraftFailure{ProductID: id, Reason: DraftFailureNotInBatch})
			continue
		}
		if s.RecommendedQuantity <= 0 {
			result.Failures = append(result.Failures, DraftFailure{ProductID: id, SKU: s.SKU, Reason: DraftFailureZeroQuantity})
			continue
		}

		line := newDraftLine(s)
		if s.SupplierID == nil {
			result.Unassigned = append(result.Unassigned, line)
			continue
		}
		_, known := suppliers[*s.SupplierID]
		switch {
		case known && !s.MissingSupplier:
			groups[*s.SupplierID] = append(groups[*s.SupplierID], line)
		case s.SupplierName != "":
			// Resolved but inactive supplier: nobody to send the order to.
			result.Unassigned = append(result.Unassigned, line)
		default:
			result.Failures = append(result.Failures, DraftFailure{ProductID: id, SKU: s.SKU, Reason: DraftFailureSupplierNotFound})
		}
	}

	supplierIDs := make([]int64, 0, len(groups))
	for sid := range groups {
		supplierIDs = append(supplierIDs, sid)
	}
	sort.Slice(supplierIDs, func(i, j int) bool {
		a, b := suppliers[supplierIDs[i]], suppliers[supplierIDs[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	numberer := PlaceholderPONumber
	if opts.AutoNumber && opts.Numberer != nil {
		numberer = opts.Numberer
	}

	result.Summary.EstimateComplete = true
	for i, sid := range supplierIDs {
		supplier := suppliers[sid]
		draft := buildDraft(supplier, groups[sid])
		draft.PONumber = numberer(i+1, supplier)

		if draft.BelowMOQ {
			result.Summary.BelowMOQSuppliers = append(result.Summary.BelowMOQSuppliers, sid)
		}
		if draft.EstimatedTotal != nil {
			result.Summary.TotalEstimatedValue = result.Summary.TotalEstimatedValue.Add(*draft.EstimatedTotal)
		} else {
			result.Summary.EstimateComplete = false
		}
		result.Summary.LineCount += draft.TotalItems
		result.Summary.TotalQuantity += draft.TotalQuantity
		result.Drafts = append(result.Drafts, draft)
	}

	sortLines(result.Unassigned)
	for _, line := range result.Unassigned {
		result.Summary.TotalQuantity += line.Quantity
	}
	result.Summary.DraftCount = len(result.Drafts)
	result.Summary.DistinctSuppliers = len(result.Drafts)
	result.Summary.UnassignedCount = len(result.Unassigned)
	result.Summary.FailureCount = len(result.Failures)

	return result
}

func newDraftLine(s ReorderSuggestion) DraftLine {
	line := DraftLine{
		ProductID:  s.ProductID,
		SKU:        s.SKU,
		Name:       s.Name,
		Quantity:   s.RecommendedQuantity,
		UnitCost:   s.UnitCost,
		Suggestion: s,
	}
	if s.UnitCost != nil {
		total := s.UnitCost.Mul(decimal.NewFromInt(int64(s.RecommendedQuantity)))
		line.LineTotal = &total
	}
	return line
}

func buildDraft(supplier SupplierInfo, lines []DraftLine) DraftPurchaseOrder {
	sortLines(lines)

	moq := supplier.MinimumOrderQuantity
	if moq < 1 {
		moq = DefaultMOQ
	}
	draft := DraftPurchaseOrder{
		SupplierID:           supplier.ID,
		SupplierName:         supplier.Name,
		Lines:                lines,
		TotalItems:           len(lines),
		LeadTimeDays:         leadTimeOrDefault(supplier.LeadTimeDays),
		MinimumOrderQuantity: moq,
		PaymentTerms:         supplier.PaymentTerms,
	}

	estimate := decimal.Zero
	complete := true
	for _, line := range lines {
		draft.TotalQuantity += line.Quantity
		if line.LineTotal == nil {
			complete = false
			continue
		}
		estimate = estimate.Add(*line.LineTotal)
	}
	if complete {
		draft.EstimatedTotal = &estimate
	}
	draft.BelowMOQ = draft.TotalQuantity < moq

	return draft
}

func sortLines(lines []DraftLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].SKU != lines[j].SKU {
			return lines[i].SKU < lines[j].SKU
		}
		return lines[i].ProductID < lines[j].ProductID
	})
}
