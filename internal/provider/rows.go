package provider

import (
	"database/sql"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/shopspring/decimal"
)

// inputRow is the column set shared by the mart table and the raw-table query.
type inputRow struct {
	ProductID       int64               `db:"product_id"`
	SKU             string              `db:"sku"`
	Name            string              `db:"name"`
	Category        sql.NullString      `db:"category"`
	Cost            decimal.NullDecimal `db:"cost"`
	Price           decimal.NullDecimal `db:"price"`
	ReorderPoint    sql.NullInt64       `db:"reorder_point"`
	SafetyStockDays sql.NullInt64       `db:"safety_stock_days"`
	PackSize        sql.NullInt64       `db:"pack_size"`
	MaxStockDays    sql.NullInt64       `db:"max_stock_days"`
	SupplierID      sql.NullInt64       `db:"supplier_id"`
	OnHand          int64               `db:"on_hand"`
	Velocity7d      sql.NullFloat64     `db:"velocity_7d"`
	Velocity30d     sql.NullFloat64     `db:"velocity_30d"`
	Velocity56d     sql.NullFloat64     `db:"velocity_56d"`
	Incoming7d      int64               `db:"incoming_7d"`
	Incoming14d     int64               `db:"incoming_14d"`
	Incoming30d     int64               `db:"incoming_30d"`
	Incoming60d     int64               `db:"incoming_60d"`
}

type supplierRow struct {
	ID                   int64          `db:"id"`
	Name                 string         `db:"name"`
	LeadTimeDays         sql.NullInt64  `db:"lead_time_days"`
	MinimumOrderQuantity sql.NullInt64  `db:"minimum_order_quantity"`
	PaymentTerms         sql.NullString `db:"payment_terms"`
	IsActive             bool           `db:"is_active"`
}

func (r supplierRow) toSupplier() reorder.SupplierInfo {
	s := reorder.SupplierInfo{
		ID:           r.ID,
		Name:         r.Name,
		LeadTimeDays: nullIntPtr(r.LeadTimeDays),
		PaymentTerms: r.PaymentTerms.String,
		IsActive:     r.IsActive,
	}
	if r.MinimumOrderQuantity.Valid {
		s.MinimumOrderQuantity = int(r.MinimumOrderQuantity.Int64)
	}
	return s
}

// joinRows pairs product rows with their suppliers. A supplier id that does not
// resolve leaves Supplier nil, which the engine flags as missing_supplier.
func joinRows(rows []inputRow, suppliers map[int64]reorder.SupplierInfo) []reorder.Item {
	items := make([]reorder.Item, 0, len(rows))
	for _, r := range rows {
		p := reorder.ProductReorderInput{
			ProductID:       r.ProductID,
			SKU:             r.SKU,
			Name:            r.Name,
			Category:        r.Category.String,
			Cost:            nullDecimalPtr(r.Cost),
			Price:           nullDecimalPtr(r.Price),
			ReorderPoint:    int(r.ReorderPoint.Int64),
			SafetyStockDays: nullIntPtr(r.SafetyStockDays),
			PackSize:        1,
			MaxStockDays:    nullIntPtr(r.MaxStockDays),
			OnHand:          int(r.OnHand),
			Velocity7d:      nullFloatPtr(r.Velocity7d),
			Velocity30d:     nullFloatPtr(r.Velocity30d),
			Velocity56d:     nullFloatPtr(r.Velocity56d),
			Incoming: reorder.IncomingBuckets{
				Within7:  int(r.Incoming7d),
				Within14: int(r.Incoming14d),
				Within30: int(r.Incoming30d),
				Within60: int(r.Incoming60d),
			},
		}
		if r.PackSize.Valid && r.PackSize.Int64 > 0 {
			p.PackSize = int(r.PackSize.Int64)
		}

		item := reorder.Item{Product: p}
		if r.SupplierID.Valid {
			id := r.SupplierID.Int64
			item.Product.SupplierID = &id
			if s, ok := suppliers[id]; ok {
				s := s
				item.Supplier = &s
			}
		}
		items = append(items, item)
	}
	return items
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullDecimalPtr(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}
