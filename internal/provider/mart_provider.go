package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const martTable = "mart_reorder_inputs"

// MartProvider reads the precomputed reorder mart. Rows with a NULL location_id
// hold the organization-wide aggregate.
type MartProvider struct {
	db *sqlx.DB
}

func NewMartProvider(db *sqlx.DB) *MartProvider {
	return &MartProvider{db: db}
}

func (p *MartProvider) Name() string { return "mart" }

func (p *MartProvider) FetchInputs(ctx context.Context, scope Scope) ([]reorder.Item, error) {
	var exists bool
	if err := p.db.GetContext(ctx, &exists, `SELECT to_regclass($1) IS NOT NULL`, martTable); err != nil {
		return nil, fmt.Errorf("error checking reorder mart: %w", err)
	}
	if !exists {
		return nil, ErrMartUnavailable
	}

	var (
		rows      []inputRow
		suppliers map[int64]reorder.SupplierInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query, args := buildMartQuery(scope)
		if err := p.db.SelectContext(gctx, &rows, query, args...); err != nil {
			return fmt.Errorf("error getting reorder mart rows: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		suppliers, err = fetchSuppliers(gctx, p.db, scope.OrganizationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug().Str("provider", p.Name()).Int("rows", len(rows)).Int("suppliers", len(suppliers)).Msg("reorder: fetched inputs")
	return joinRows(rows, suppliers), nil
}

func buildMartQuery(scope Scope) (string, []interface{}) {
	query := `
        SELECT
            product_id, sku, name, category, cost, price,
            reorder_point, safety_stock_days, pack_size, max_stock_days,
            supplier_id, on_hand, velocity_7d, velocity_30d, velocity_56d,
            incoming_7d, incoming_14d, incoming_30d, incoming_60d
        FROM ` + martTable + `
        WHERE 1=1
    `

	var args []interface{}
	var conditions []string
	argCounter := 1

	if scope.OrganizationID != nil {
		conditions = append(conditions, fmt.Sprintf("organization_id = $%d", argCounter))
		args = append(args, *scope.OrganizationID)
		argCounter++
	}

	if scope.LocationID != nil {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", argCounter))
		args = append(args, *scope.LocationID)
		argCounter++
	} else {
		conditions = append(conditions, "location_id IS NULL")
	}

	if len(scope.ProductIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("product_id = ANY($%d::bigint[])", argCounter))
		args = append(args, pq.Array(scope.ProductIDs))
		argCounter++
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY product_id"

	return query, args
}

// fetchSuppliers loads every supplier visible to the organization, active or not.
// Inactive suppliers are still returned so the engine can flag them.
func fetchSuppliers(ctx context.Context, db *sqlx.DB, organizationID *int64) (map[int64]reorder.SupplierInfo, error) {
	query := `
        SELECT id, name, lead_time_days, minimum_order_quantity, payment_terms, is_active
        FROM suppliers
        WHERE 1=1
    `
	var args []interface{}
	if organizationID != nil {
		query += " AND organization_id = $1"
		args = append(args, *organizationID)
	}

	var rows []supplierRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting suppliers: %w", err)
	}

	out := make(map[int64]reorder.SupplierInfo, len(rows))
	for _, r := range rows {
		out[r.ID] = r.toSupplier()
	}
	return out, nil
}
