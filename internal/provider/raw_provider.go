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

// RawProvider computes the same snapshot as the mart directly from the operational
// tables. Velocities are average units per day over each window; a window with no
// sales lines yields NULL. Incoming buckets are cumulative and include overdue lines.
type RawProvider struct {
	db *sqlx.DB
}

func NewRawProvider(db *sqlx.DB) *RawProvider {
	return &RawProvider{db: db}
}

func (p *RawProvider) Name() string { return "raw" }

func (p *RawProvider) FetchInputs(ctx context.Context, scope Scope) ([]reorder.Item, error) {
	var (
		rows      []inputRow
		suppliers map[int64]reorder.SupplierInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query, args := buildRawQuery(scope)
		if err := p.db.SelectContext(gctx, &rows, query, args...); err != nil {
			return fmt.Errorf("error computing reorder inputs: %w", err)
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

	log.Debug().Str("provider", p.Name()).Int("rows", len(rows)).Msg("reorder: fetched inputs")
	return joinRows(rows, suppliers), nil
}

// buildRawQuery returns the aggregate query. Location conditions are repeated per
// CTE so every source table is narrowed before aggregation.
func buildRawQuery(scope Scope) (string, []interface{}) {
	var args []interface{}
	argCounter := 1

	locationCond := func(alias string) string { return "" }
	if scope.LocationID != nil {
		n := argCounter
		args = append(args, *scope.LocationID)
		argCounter++
		locationCond = func(alias string) string {
			return fmt.Sprintf(" AND %s.location_id = $%d", alias, n)
		}
	}

	var productConds []string
	if scope.OrganizationID != nil {
		productConds = append(productConds, fmt.Sprintf("p.organization_id = $%d", argCounter))
		args = append(args, *scope.OrganizationID)
		argCounter++
	}
	if len(scope.ProductIDs) > 0 {
		productConds = append(productConds, fmt.Sprintf("p.id = ANY($%d::bigint[])", argCounter))
		args = append(args, pq.Array(scope.ProductIDs))
		argCounter++
	}

	query := `
        WITH stock AS (
            SELECT il.product_id, SUM(il.quantity_on_hand) AS on_hand
            FROM inventory_levels il
            WHERE 1=1` + locationCond("il") + `
            GROUP BY il.product_id
        ),
        sales AS (
            SELECT
                sol.product_id,
                SUM(sol.quantity) FILTER (WHERE so.order_date >= CURRENT_DATE - 7)::float / 7 AS velocity_7d,
                SUM(sol.quantity) FILTER (WHERE so.order_date >= CURRENT_DATE - 30)::float / 30 AS velocity_30d,
                SUM(sol.quantity)::float / 56 AS velocity_56d
            FROM sales_order_lines sol
            JOIN sales_orders so ON so.id = sol.sales_order_id
            WHERE so.status <> 'cancelled'
            AND so.order_date >= CURRENT_DATE - 56` + locationCond("so") + `
            GROUP BY sol.product_id
        ),
        incoming AS (
            SELECT
                pol.product_id,
                COALESCE(SUM(pol.quantity - pol.received_quantity) FILTER (WHERE po.expected_date <= CURRENT_DATE + 7), 0) AS incoming_7d,
                COALESCE(SUM(pol.quantity - pol.received_quantity) FILTER (WHERE po.expected_date <= CURRENT_DATE + 14), 0) AS incoming_14d,
                COALESCE(SUM(pol.quantity - pol.received_quantity) FILTER (WHERE po.expected_date <= CURRENT_DATE + 30), 0) AS incoming_30d,
                COALESCE(SUM(pol.quantity - pol.received_quantity) FILTER (WHERE po.expected_date <= CURRENT_DATE + 60), 0) AS incoming_60d
            FROM purchase_order_lines pol
            JOIN purchase_orders po ON po.id = pol.purchase_order_id
            WHERE po.status IN ('sent', 'confirmed', 'partially_received')
            AND pol.quantity > pol.received_quantity` + locationCond("po") + `
            GROUP BY pol.product_id
        )
        SELECT
            p.id AS product_id, p.sku, p.name, p.category, p.cost, p.price,
            p.reorder_point, p.safety_stock_days, p.pack_size, p.max_stock_days,
            p.supplier_id,
            COALESCE(st.on_hand, 0)::bigint AS on_hand,
            s.velocity_7d, s.velocity_30d, s.velocity_56d,
            COALESCE(i.incoming_7d, 0)::bigint AS incoming_7d,
            COALESCE(i.incoming_14d, 0)::bigint AS incoming_14d,
            COALESCE(i.incoming_30d, 0)::bigint AS incoming_30d,
            COALESCE(i.incoming_60d, 0)::bigint AS incoming_60d
        FROM products p
        LEFT JOIN stock st ON st.product_id = p.id
        LEFT JOIN sales s ON s.product_id = p.id
        LEFT JOIN incoming i ON i.product_id = p.id
        WHERE p.is_active = TRUE
    `

	if len(productConds) > 0 {
		query += " AND " + strings.Join(productConds, " AND ")
	}
	query += " ORDER BY p.id"

	return query, args
}
