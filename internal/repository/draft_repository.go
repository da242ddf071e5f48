package repository

import (
	"context"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
)

// DraftRepository persists draft purchase orders produced by the grouper. The
// engine never writes; the service calls this after grouping.
type DraftRepository interface {
	SaveDrafts(ctx context.Context, batchID string, result *reorder.DraftResult) ([]SavedDraft, error)
}

// SavedDraft maps a persisted draft back to its PO number.
type SavedDraft struct {
	ID         int64  `json:"id" db:"id"`
	PONumber   string `json:"po_number" db:"po_number"`
	SupplierID int64  `json:"supplier_id" db:"supplier_id"`
}
