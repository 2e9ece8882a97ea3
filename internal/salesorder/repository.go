package salesorder

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
)

// ErrNotFound indicates the order or line does not exist.
var ErrNotFound = errors.New("salesorder: not found")

// Repository reads orders and resolves invoice side lookups.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// GetByNumber loads an order header without child rows.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*SalesOrder, error) {
	const query = `
		SELECT id, number, customer, company, project, currency, docstatus, is_closed,
		       grand_total, per_billed, per_delivered, billing_status, delivery_status,
		       created_at, updated_at
		FROM sales_orders WHERE number = $1`
	var so SalesOrder
	err := r.q.QueryRow(ctx, query, number).Scan(
		&so.ID, &so.Number, &so.Customer, &so.Company, &so.Project, &so.Currency,
		&so.Docstatus, &so.IsClosed, &so.GrandTotal, &so.PerBilled, &so.PerDelivered,
		&so.BillingStatus, &so.DeliveryStatus, &so.CreatedAt, &so.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &so, nil
}

// GetLine loads one order line.
func (r *Repository) GetLine(ctx context.Context, lineID int64) (*Line, error) {
	const query = `
		SELECT id, sales_order_id, row_no, item_code, qty, uom, conversion_factor,
		       rate, amount, warehouse, billed_amount, delivered_qty, returned_qty,
		       delivered_by_supplier
		FROM sales_order_items WHERE id = $1`
	var line Line
	err := r.q.QueryRow(ctx, query, lineID).Scan(
		&line.ID, &line.SalesOrderID, &line.RowNo, &line.ItemCode, &line.Qty, &line.UOM,
		&line.ConversionFactor, &line.Rate, &line.Amount, &line.Warehouse,
		&line.BilledAmount, &line.DeliveredQty, &line.ReturnedQty, &line.DeliveredBySupplier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// FindLineByItem resolves the submitted order line carrying an item code,
// used to backfill a missing line reference on invoice items. The newest
// matching line wins.
func (r *Repository) FindLineByItem(ctx context.Context, orderNumber, itemCode string) (int64, error) {
	const query = `
		SELECT l.id
		FROM sales_order_items l
		JOIN sales_orders o ON o.id = l.sales_order_id
		WHERE o.number = $1 AND o.docstatus = 1 AND l.item_code = $2
		ORDER BY l.id DESC
		LIMIT 1`
	var id int64
	err := r.q.QueryRow(ctx, query, orderNumber, itemCode).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// ActualTaxTotals sums the Actual-type tax rows of an order per account head.
func (r *Repository) ActualTaxTotals(ctx context.Context, orderNumber string) (map[string]float64, error) {
	const query = `
		SELECT t.account_head, SUM(t.tax_amount)
		FROM sales_order_taxes t
		JOIN sales_orders o ON o.id = t.sales_order_id
		WHERE o.number = $1 AND t.charge_type = 'Actual'
		GROUP BY t.account_head`
	rows, err := r.q.Query(ctx, query, orderNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var account string
		var amount float64
		if err := rows.Scan(&account, &amount); err != nil {
			return nil, err
		}
		totals[account] = amount
	}
	return totals, rows.Err()
}

// InvoicedActualTax sums the Actual-type tax already booked by other invoices
// that bill the given order, per account head. Submitted invoices only when
// submittedOnly, otherwise all non-cancelled drafts count too.
func (r *Repository) InvoicedActualTax(ctx context.Context, orderNumber, excludeInvoice string, submittedOnly bool) (map[string]float64, error) {
	query := `
		SELECT t.account_head, SUM(t.tax_amount)
		FROM sales_invoice_taxes t
		JOIN sales_invoices si ON si.id = t.sales_invoice_id
		WHERE t.charge_type = 'Actual' AND si.number != $2
		  AND EXISTS (
			SELECT 1 FROM sales_invoice_items i
			WHERE i.sales_invoice_id = si.id AND i.sales_order = $1
		  )`
	if submittedOnly {
		query += ` AND si.docstatus = 1`
	} else {
		query += ` AND si.docstatus < 2`
	}
	query += ` GROUP BY t.account_head`

	rows, err := r.q.Query(ctx, query, orderNumber, excludeInvoice)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var account string
		var amount float64
		if err := rows.Scan(&account, &amount); err != nil {
			return nil, err
		}
		totals[account] = amount
	}
	return totals, rows.Err()
}

// InvoicedQty sums the not-cancelled, non-return invoiced quantity against an
// order line, excluding one invoice.
func (r *Repository) InvoicedQty(ctx context.Context, soDetail int64, excludeInvoice string) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(i.qty), 0)
		FROM sales_invoice_items i
		JOIN sales_invoices si ON si.id = i.sales_invoice_id
		WHERE i.so_detail = $1 AND si.docstatus < 2 AND NOT si.is_return AND si.number != $2`
	var qty float64
	if err := r.q.QueryRow(ctx, query, soDetail, excludeInvoice).Scan(&qty); err != nil {
		return 0, err
	}
	return qty, nil
}

// UpdateReservedForDelivery refreshes warehouse reservations from the order
// book: reserved = ordered minus delivered over submitted, open orders.
func (r *Repository) UpdateReservedForDelivery(ctx context.Context, itemCode, warehouse string) error {
	const query = `
		UPDATE bins b SET reserved_qty = sub.reserved, updated_at = NOW()
		FROM (
			SELECT COALESCE(SUM(GREATEST(l.qty - l.delivered_qty, 0) * l.conversion_factor), 0) AS reserved
			FROM sales_order_items l
			JOIN sales_orders o ON o.id = l.sales_order_id
			WHERE o.docstatus = 1 AND NOT o.is_closed
			  AND l.item_code = $1 AND l.warehouse = $2
		) sub
		WHERE b.item_code = $1 AND b.warehouse = $2`
	_, err := r.q.Exec(ctx, query, itemCode, warehouse)
	return err
}
