package provider

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/andresuchdata/autopo-reorder/internal/reorder"
	"github.com/shopspring/decimal"
)

// CSVProvider reads a snapshot export from disk on every fetch.
type CSVProvider struct {
	path string
}

func NewCSVProvider(path string) *CSVProvider {
	return &CSVProvider{path: path}
}

func (p *CSVProvider) Name() string { return "csv" }

func (p *CSVProvider) FetchInputs(ctx context.Context, scope Scope) ([]reorder.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(p.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	items, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.path, err)
	}
	return filterByProducts(items, scope.ProductIDs), nil
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// ParseCSV reads a snapshot export. Header matching ignores case, spaces, dots and
// underscores, and accepts the legacy stock-report names (stok, hpp, min order).
// Blank velocity cells are absent readings; blank supplier_id means no supplier.
func ParseCSV(r io.Reader) ([]reorder.Item, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	colIndex := func(names ...string) int {
		targets := make(map[string]struct{}, len(names))
		for _, name := range names {
			targets[normalizeColumnName(name)] = struct{}{}
		}
		for i, h := range header {
			if _, ok := targets[normalizeColumnName(h)]; ok {
				return i
			}
		}
		return -1
	}

	idxProductID := colIndex("product_id", "id")
	if idxProductID < 0 {
		return nil, errors.New("missing required column product_id")
	}
	idxSKU := colIndex("sku")
	idxName := colIndex("name", "nama", "product name")
	idxCategory := colIndex("category", "kategori", "brand")
	idxCost := colIndex("cost", "hpp", "unit_cost")
	idxPrice := colIndex("price", "harga")
	idxReorderPoint := colIndex("reorder_point", "rop")
	idxSafetyDays := colIndex("safety_stock_days", "safety days")
	idxPackSize := colIndex("pack_size", "pack", "case pack")
	idxMaxDays := colIndex("max_stock_days", "max stock days")
	idxSupplierID := colIndex("supplier_id")
	idxSupplierName := colIndex("supplier_name", "supplier", "nama supplier")
	idxLeadTime := colIndex("lead_time_days", "lead_time", "lead time")
	idxMOQ := colIndex("moq", "minimum_order_quantity", "min_order", "min. order")
	idxPaymentTerms := colIndex("payment_terms")
	idxSupplierActive := colIndex("supplier_active", "supplier_is_active")
	idxOnHand := colIndex("on_hand", "stock", "stok")
	idxV7 := colIndex("velocity_7d", "daily_sales_7d")
	idxV30 := colIndex("velocity_30d", "daily_sales", "daily sales")
	idxV56 := colIndex("velocity_56d", "daily_sales_56d")
	idxIn7 := colIndex("incoming_7d")
	idxIn14 := colIndex("incoming_14d")
	idxIn30 := colIndex("incoming_30d")
	idxIn60 := colIndex("incoming_60d", "sedang_po", "sedang po")

	suppliers := make(map[int64]*reorder.SupplierInfo)
	items := make([]reorder.Item, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		c := csvRow{record: record, line: line, header: header}
		p := reorder.ProductReorderInput{
			SKU:      c.get(idxSKU),
			Name:     c.get(idxName),
			Category: c.get(idxCategory),
			PackSize: 1,
		}
		if p.ProductID, err = c.requiredInt64(idxProductID); err != nil {
			return nil, err
		}
		if p.Cost, err = c.decimal(idxCost); err != nil {
			return nil, err
		}
		if p.Price, err = c.decimal(idxPrice); err != nil {
			return nil, err
		}
		if p.ReorderPoint, err = c.intOr(idxReorderPoint, 0); err != nil {
			return nil, err
		}
		if p.SafetyStockDays, err = c.optionalInt(idxSafetyDays); err != nil {
			return nil, err
		}
		if p.PackSize, err = c.intOr(idxPackSize, 1); err != nil {
			return nil, err
		}
		if p.MaxStockDays, err = c.optionalInt(idxMaxDays); err != nil {
			return nil, err
		}
		if p.OnHand, err = c.intOr(idxOnHand, 0); err != nil {
			return nil, err
		}
		if p.Velocity7d, err = c.optionalFloat(idxV7); err != nil {
			return nil, err
		}
		if p.Velocity30d, err = c.optionalFloat(idxV30); err != nil {
			return nil, err
		}
		if p.Velocity56d, err = c.optionalFloat(idxV56); err != nil {
			return nil, err
		}
		for _, bucket := range []struct {
			idx int
			dst *int
		}{
			{idxIn7, &p.Incoming.Within7},
			{idxIn14, &p.Incoming.Within14},
			{idxIn30, &p.Incoming.Within30},
			{idxIn60, &p.Incoming.Within60},
		} {
			if *bucket.dst, err = c.intOr(bucket.idx, 0); err != nil {
				return nil, err
			}
		}

		item := reorder.Item{Product: p}

		supplierID, err := c.optionalInt64(idxSupplierID)
		if err != nil {
			return nil, err
		}
		if supplierID != nil {
			item.Product.SupplierID = supplierID
			s, ok := suppliers[*supplierID]
			if !ok {
				if s, err = c.supplier(*supplierID, idxSupplierName, idxLeadTime, idxMOQ, idxPaymentTerms, idxSupplierActive); err != nil {
					return nil, err
				}
				suppliers[*supplierID] = s
			}
			sup := *s
			item.Supplier = &sup
		}

		items = append(items, item)
	}

	return items, nil
}

type csvRow struct {
	record []string
	header []string
	line   int
}

func (c csvRow) get(idx int) string {
	if idx < 0 || idx >= len(c.record) {
		return ""
	}
	return strings.TrimSpace(c.record[idx])
}

func (c csvRow) fail(idx int, err error) error {
	return fmt.Errorf("line %d column %q: %w", c.line, c.header[idx], err)
}

func cleanNumber(v string) string {
	return strings.ReplaceAll(v, ",", "")
}

func (c csvRow) requiredInt64(idx int) (int64, error) {
	v := c.get(idx)
	if v == "" {
		return 0, c.fail(idx, errors.New("value is required"))
	}
	n, err := strconv.ParseInt(cleanNumber(v), 10, 64)
	if err != nil {
		return 0, c.fail(idx, err)
	}
	return n, nil
}

func (c csvRow) optionalInt64(idx int) (*int64, error) {
	v := c.get(idx)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(cleanNumber(v), 10, 64)
	if err != nil {
		return nil, c.fail(idx, err)
	}
	return &n, nil
}

// optionalInt accepts whole-number floats such as "12.0" from spreadsheet exports.
func (c csvRow) optionalInt(idx int) (*int, error) {
	v := c.get(idx)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(cleanNumber(v), 64)
	if err != nil {
		return nil, c.fail(idx, err)
	}
	n := int(f)
	if float64(n) != f {
		return nil, c.fail(idx, fmt.Errorf("%q is not a whole number", v))
	}
	return &n, nil
}

func (c csvRow) intOr(idx int, fallback int) (int, error) {
	n, err := c.optionalInt(idx)
	if err != nil || n == nil {
		return fallback, err
	}
	return *n, nil
}

func (c csvRow) optionalFloat(idx int) (*float64, error) {
	v := c.get(idx)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(cleanNumber(v), 64)
	if err != nil {
		return nil, c.fail(idx, err)
	}
	return &f, nil
}

func (c csvRow) decimal(idx int) (*decimal.Decimal, error) {
	v := c.get(idx)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(cleanNumber(v))
	if err != nil {
		return nil, c.fail(idx, err)
	}
	return &d, nil
}

func (c csvRow) supplier(id int64, idxName, idxLead, idxMOQ, idxTerms, idxActive int) (*reorder.SupplierInfo, error) {
	s := &reorder.SupplierInfo{
		ID:           id,
		Name:         c.get(idxName),
		PaymentTerms: c.get(idxTerms),
		IsActive:     true,
	}
	var err error
	if s.LeadTimeDays, err = c.optionalInt(idxLead); err != nil {
		return nil, err
	}
	if s.MinimumOrderQuantity, err = c.intOr(idxMOQ, 0); err != nil {
		return nil, err
	}
	if v := c.get(idxActive); v != "" {
		active, err := strconv.ParseBool(strings.ToLower(v))
		if err != nil {
			return nil, c.fail(idxActive, err)
		}
		s.IsActive = active
	}
	if s.Name == "" {
		s.Name = fmt.Sprintf("Supplier %d", id)
	}
	return s, nil
}
