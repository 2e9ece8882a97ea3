package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
)

// ErrNotFound indicates a missing stock record.
var ErrNotFound = errors.New("stock: not found")

// Repository persists stock movements and lookups.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// IsStockItem reports whether an item participates in inventory.
func (r *Repository) IsStockItem(ctx context.Context, itemCode string) (bool, error) {
	var isStock bool
	err := r.q.QueryRow(ctx,
		`SELECT is_stock_item FROM items WHERE code = $1`, itemCode).Scan(&isStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, err
	}
	return isStock, nil
}

// UOMMustBeWhole reports whether a unit of measure only admits integer
// quantities. Unknown units admit fractions.
func (r *Repository) UOMMustBeWhole(ctx context.Context, uom string) (bool, error) {
	var whole bool
	err := r.q.QueryRow(ctx,
		`SELECT must_be_whole_number FROM uoms WHERE name = $1`, uom).Scan(&whole)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return whole, err
}

// BinQty returns actual and projected quantity for an item in a warehouse;
// zeroes when no bin exists yet.
func (r *Repository) BinQty(ctx context.Context, itemCode, warehouse string) (actual, projected float64, err error) {
	err = r.q.QueryRow(ctx,
		`SELECT actual_qty, projected_qty FROM bins WHERE item_code = $1 AND warehouse = $2`,
		itemCode, warehouse).Scan(&actual, &projected)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, nil
	}
	return actual, projected, err
}

// InsertLedgerEntry writes one stock movement and folds it into the bin.
func (r *Repository) InsertLedgerEntry(ctx context.Context, e LedgerEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_ledger_entries (item_code, warehouse, posting_date, actual_qty, voucher_type, voucher_no, is_cancelled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ItemCode, e.Warehouse, e.PostingDate, e.ActualQty, e.VoucherType, e.VoucherNo, e.IsCancelled)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO bins (item_code, warehouse, actual_qty, reserved_qty, projected_qty)
		VALUES ($1, $2, $3, 0, $3)
		ON CONFLICT (item_code, warehouse)
		DO UPDATE SET actual_qty = bins.actual_qty + EXCLUDED.actual_qty,
		              projected_qty = bins.projected_qty + EXCLUDED.actual_qty,
		              updated_at = NOW()`,
		e.ItemCode, e.Warehouse, e.ActualQty)
	return err
}

// LedgerEntriesByVoucher returns the active movements of one voucher.
func (r *Repository) LedgerEntriesByVoucher(ctx context.Context, voucherType, voucherNo string) ([]LedgerEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, item_code, warehouse, posting_date, actual_qty, voucher_type, voucher_no, is_cancelled
		FROM stock_ledger_entries
		WHERE voucher_type = $1 AND voucher_no = $2 AND NOT is_cancelled
		ORDER BY id`, voucherType, voucherNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.ItemCode, &e.Warehouse, &e.PostingDate, &e.ActualQty,
			&e.VoucherType, &e.VoucherNo, &e.IsCancelled); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetSerial loads one serial number record.
func (r *Repository) GetSerial(ctx context.Context, serialNo string) (*SerialNo, error) {
	var sn SerialNo
	err := r.q.QueryRow(ctx, `
		SELECT id, serial_no, item_code, warehouse, COALESCE(delivery_note, ''), COALESCE(sales_invoice, '')
		FROM serial_nos WHERE serial_no = $1`, serialNo).Scan(
		&sn.ID, &sn.SerialNo, &sn.ItemCode, &sn.Warehouse, &sn.DeliveryNote, &sn.SalesInvoice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sn, nil
}

// SetSerialInvoice points a serial number at an invoice; empty detaches.
func (r *Repository) SetSerialInvoice(ctx context.Context, serialNo, invoiceNumber string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE serial_nos SET sales_invoice = NULLIF($2, ''), updated_at = NOW() WHERE serial_no = $1`,
		serialNo, invoiceNumber)
	return err
}

// SerialsForDNLine returns the serial numbers recorded on a delivery note line.
func (r *Repository) SerialsForDNLine(ctx context.Context, dnDetail int64) ([]string, error) {
	var serials []string
	err := r.q.QueryRow(ctx,
		`SELECT serial_nos FROM delivery_note_items WHERE id = $1`, dnDetail).Scan(&serials)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return serials, nil
}

// SerialInvoiceRef reports the invoice a serial number is attached to, empty
// when free or unknown.
func (r *Repository) SerialInvoiceRef(ctx context.Context, serialNo string) (string, error) {
	var invoice string
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(sales_invoice, '') FROM serial_nos WHERE serial_no = $1`, serialNo).Scan(&invoice)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return invoice, err
}

// BundleComponents expands a product bundle; empty for plain items.
func (r *Repository) BundleComponents(ctx context.Context, parentItem string) ([]BundleComponent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT parent_item, item_code, qty, COALESCE(warehouse, '')
		FROM product_bundle_items WHERE parent_item = $1 ORDER BY id`, parentItem)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var components []BundleComponent
	for rows.Next() {
		var c BundleComponent
		if err := rows.Scan(&c.ParentItem, &c.ItemCode, &c.Qty, &c.Warehouse); err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, rows.Err()
}
