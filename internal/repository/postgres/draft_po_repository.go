package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/andresuchdata/autopo-reorder/internal/repository"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const draftStatus = "draft"

type draftPORepository struct {
	db *DB
}

func NewDraftPORepository(db *DB) repository.DraftRepository {
	return &draftPORepository{db: db}
}

// SaveDrafts writes every draft and its lines in one transaction. Unassigned lines
// and failures are not persisted.
func (r *draftPORepository) SaveDrafts(ctx context.Context, batchID string, result *reorder.DraftResult) ([]repository.SavedDraft, error) {
	if result == nil || len(result.Drafts) == 0 {
		return nil, nil
	}

	saved := make([]repository.SavedDraft, 0, len(result.Drafts))
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		headerQuery := `
			INSERT INTO draft_purchase_orders (
				batch_id, po_number, supplier_id, status, total_items,
				total_quantity, estimated_total, below_moq, payment_terms, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id
		`
		lineQuery := `
			INSERT INTO draft_purchase_order_lines (
				draft_purchase_order_id, product_id, sku, quantity,
				unit_cost, line_total, reasons, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

		lineStmt, err := tx.PrepareContext(ctx, lineQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare line statement: %w", err)
		}
		defer lineStmt.Close()

		now := time.Now()
		for _, draft := range result.Drafts {
			var id int64
			err := tx.QueryRowContext(ctx, headerQuery,
				batchID,
				draft.PONumber,
				draft.SupplierID,
				draftStatus,
				draft.TotalItems,
				draft.TotalQuantity,
				nullableDecimal(draft.EstimatedTotal),
				draft.BelowMOQ,
				draft.PaymentTerms,
				now,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("failed to insert draft %s: %w", draft.PONumber, err)
			}

			for _, line := range draft.Lines {
				_, err := lineStmt.ExecContext(ctx,
					id,
					line.ProductID,
					line.SKU,
					line.Quantity,
					nullableDecimal(line.UnitCost),
					nullableDecimal(line.LineTotal),
					pq.Array(line.Suggestion.Reasons),
					now,
				)
				if err != nil {
					return fmt.Errorf("failed to insert draft line for product %d: %w", line.ProductID, err)
				}
			}

			saved = append(saved, repository.SavedDraft{ID: id, PONumber: draft.PONumber, SupplierID: draft.SupplierID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

func nullableDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return *d
}
