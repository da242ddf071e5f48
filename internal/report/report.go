// Package report renders suggestion and draft results as CSV or aligned text.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/shopspring/decimal"
)

var suggestionHeader = []string{
	"product_id", "sku", "name", "supplier_id", "supplier_name", "on_hand",
	"incoming_within_horizon", "velocity", "velocity_source", "horizon_days",
	"days_cover_current", "days_cover_after", "recommended_quantity", "reasons", "flags",
}

var draftHeader = []string{
	"po_number", "supplier_id", "supplier_name", "product_id", "sku", "name",
	"quantity", "unit_cost", "line_total", "below_moq",
}

// WriteSuggestionsCSV writes one row per suggestion in ranked order.
func WriteSuggestionsCSV(w io.Writer, suggestions []reorder.ReorderSuggestion) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(suggestionHeader); err != nil {
		return err
	}
	for _, s := range suggestions {
		if err := cw.Write(suggestionRecord(s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func suggestionRecord(s reorder.ReorderSuggestion) []string {
	return []string{
		strconv.FormatInt(s.ProductID, 10),
		s.SKU,
		s.Name,
		formatInt64Ptr(s.SupplierID),
		s.SupplierName,
		strconv.Itoa(s.OnHand),
		strconv.Itoa(s.IncomingWithinHorizon),
		formatFloatPtr(s.ChosenVelocity, 4),
		string(s.VelocitySource),
		strconv.Itoa(s.HorizonDays),
		formatFloatPtr(s.DaysCoverCurrent, 2),
		formatFloatPtr(s.DaysCoverAfter, 2),
		strconv.Itoa(s.RecommendedQuantity),
		strings.Join(s.Reasons, "|"),
		strings.Join(s.Flags, "|"),
	}
}

// WriteDraftsCSV writes one row per draft line. Unassigned lines are written with
// an empty po_number and supplier.
func WriteDraftsCSV(w io.Writer, result *reorder.DraftResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(draftHeader); err != nil {
		return err
	}
	for _, d := range result.Drafts {
		for _, line := range d.Lines {
			record := []string{
				d.PONumber,
				strconv.FormatInt(d.SupplierID, 10),
				d.SupplierName,
			}
			record = append(record, lineFields(line)...)
			record = append(record, strconv.FormatBool(d.BelowMOQ))
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	for _, line := range result.Unassigned {
		record := append([]string{"", "", ""}, lineFields(line)...)
		record = append(record, "false")
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func lineFields(line reorder.DraftLine) []string {
	return []string{
		strconv.FormatInt(line.ProductID, 10),
		line.SKU,
		line.Name,
		strconv.Itoa(line.Quantity),
		formatDecimalPtr(line.UnitCost),
		formatDecimalPtr(line.LineTotal),
	}
}

// SuggestionsCSV renders suggestions into a byte slice for upload.
func SuggestionsCSV(suggestions []reorder.ReorderSuggestion) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteSuggestionsCSV(&buf, suggestions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DraftsCSV renders a draft result into a byte slice for upload.
func DraftsCSV(result *reorder.DraftResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDraftsCSV(&buf, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSuggestionsTable prints an aligned table followed by the summary line.
func WriteSuggestionsTable(w io.Writer, result *reorder.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SKU\tSUPPLIER\tON HAND\tVELOCITY\tCOVER\tQTY\tREASONS")
	for _, s := range result.Suggestions {
		supplier := s.SupplierName
		if s.MissingSupplier && supplier == "" {
			supplier = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
			s.SKU,
			supplier,
			s.OnHand,
			formatFloatPtr(s.ChosenVelocity, 2),
			formatFloatPtr(s.DaysCoverCurrent, 1),
			s.RecommendedQuantity,
			strings.Join(s.Reasons, ","),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sum := result.Summary
	_, err := fmt.Fprintf(w, "\n%d suggestions, %d units, %d suppliers, %d skipped, %d diagnostics\n",
		sum.TotalSuggestions, sum.TotalRecommendedQty, sum.DistinctSuppliers, sum.SkippedCount, sum.DiagnosticCount)
	return err
}

// WriteDraftsTable prints each draft with its lines.
func WriteDraftsTable(w io.Writer, result *reorder.DraftResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, d := range result.Drafts {
		note := ""
		if d.BelowMOQ {
			note = fmt.Sprintf(" (below MOQ %d)", d.MinimumOrderQuantity)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d items\t%d units\t%s%s\n",
			d.PONumber, d.SupplierName, d.TotalItems, d.TotalQuantity, formatDecimalPtr(d.EstimatedTotal), note)
		for _, line := range d.Lines {
			fmt.Fprintf(tw, "\t%s\t%s\t%d\t%s\n", line.SKU, line.Name, line.Quantity, formatDecimalPtr(line.LineTotal))
		}
	}
	if len(result.Unassigned) > 0 {
		fmt.Fprintln(tw, "UNASSIGNED\t\t\t\t")
		for _, line := range result.Unassigned {
			fmt.Fprintf(tw, "\t%s\t%s\t%d\t%s\n", line.SKU, line.Name, line.Quantity, formatDecimalPtr(line.LineTotal))
		}
	}
	for _, f := range result.Failures {
		fmt.Fprintf(tw, "FAILED\t%d\t%s\t%s\t\n", f.ProductID, f.SKU, f.Reason)
	}
	return tw.Flush()
}

func formatInt64Ptr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatFloatPtr(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

func formatDecimalPtr(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.StringFixed(2)
}
