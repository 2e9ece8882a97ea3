package deliverynote

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
)

// ErrNotFound indicates the note or line does not exist.
var ErrNotFound = errors.New("deliverynote: not found")

// Repository reads delivery notes and maintains their billing columns.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// GetByNumber loads a note header.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*DeliveryNote, error) {
	const query = `
		SELECT id, number, customer, company, project, currency, docstatus,
		       per_billed, billing_status, created_at, updated_at
		FROM delivery_notes WHERE number = $1`
	var dn DeliveryNote
	err := r.q.QueryRow(ctx, query, number).Scan(
		&dn.ID, &dn.Number, &dn.Customer, &dn.Company, &dn.Project, &dn.Currency,
		&dn.Docstatus, &dn.PerBilled, &dn.BillingStatus, &dn.CreatedAt, &dn.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &dn, nil
}

// GetLine loads one delivery note line with its parent number.
func (r *Repository) GetLine(ctx context.Context, lineID int64) (*Line, string, error) {
	const query = `
		SELECT l.id, l.delivery_note_id, l.row_no, l.item_code, l.qty, l.uom,
		       l.conversion_factor, l.rate, l.amount, l.warehouse,
		       l.sales_order, l.so_detail, l.serial_nos, l.billed_amount, n.number
		FROM delivery_note_items l
		JOIN delivery_notes n ON n.id = l.delivery_note_id
		WHERE l.id = $1`
	var line Line
	var parent string
	err := r.q.QueryRow(ctx, query, lineID).Scan(
		&line.ID, &line.DeliveryNoteID, &line.RowNo, &line.ItemCode, &line.Qty, &line.UOM,
		&line.ConversionFactor, &line.Rate, &line.Amount, &line.Warehouse,
		&line.SalesOrder, &line.SODetail, &line.SerialNos, &line.BilledAmount, &parent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return &line, parent, nil
}

// LinesForSODetail returns the submitted delivery note lines that deliver an
// order line, oldest first, with their parent note numbers.
func (r *Repository) LinesForSODetail(ctx context.Context, soDetail int64) ([]Line, []string, error) {
	const query = `
		SELECT l.id, l.delivery_note_id, l.amount, l.billed_amount, n.number
		FROM delivery_note_items l
		JOIN delivery_notes n ON n.id = l.delivery_note_id
		WHERE l.so_detail = $1 AND n.docstatus = 1
		ORDER BY l.id`
	rows, err := r.q.Query(ctx, query, soDetail)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var lines []Line
	var parents []string
	for rows.Next() {
		var line Line
		var parent string
		if err := rows.Scan(&line.ID, &line.DeliveryNoteID, &line.Amount, &line.BilledAmount, &parent); err != nil {
			return nil, nil, err
		}
		lines = append(lines, line)
		parents = append(parents, parent)
	}
	return lines, parents, rows.Err()
}

// InvoicedAmountForDNLine sums the submitted invoice item amounts billed
// directly against a delivery note line.
func (r *Repository) InvoicedAmountForDNLine(ctx context.Context, dnDetail int64) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(i.amount), 0)
		FROM sales_invoice_items i
		JOIN sales_invoices si ON si.id = i.sales_invoice_id
		WHERE i.dn_detail = $1 AND si.docstatus = 1`
	var amount float64
	if err := r.q.QueryRow(ctx, query, dnDetail).Scan(&amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// InvoicedAmountForSODetail sums submitted invoice item amounts billed
// against an order line without a direct delivery note reference.
func (r *Repository) InvoicedAmountForSODetail(ctx context.Context, soDetail int64) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(i.amount), 0)
		FROM sales_invoice_items i
		JOIN sales_invoices si ON si.id = i.sales_invoice_id
		WHERE i.so_detail = $1 AND (i.dn_detail = 0 OR i.dn_detail IS NULL) AND si.docstatus = 1`
	var amount float64
	if err := r.q.QueryRow(ctx, query, soDetail).Scan(&amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// SetLineBilledAmount writes the recomputed billed amount on a line.
func (r *Repository) SetLineBilledAmount(ctx context.Context, lineID int64, amount float64) error {
	_, err := r.q.Exec(ctx,
		`UPDATE delivery_note_items SET billed_amount = $2, updated_at = NOW() WHERE id = $1`,
		lineID, amount)
	return err
}

// LineBillingTotals returns amount/billed pairs of every line of a note.
func (r *Repository) LineBillingTotals(ctx context.Context, noteNumber string) ([]Line, error) {
	const query = `
		SELECT l.id, l.amount, l.billed_amount
		FROM delivery_note_items l
		JOIN delivery_notes n ON n.id = l.delivery_note_id
		WHERE n.number = $1`
	rows, err := r.q.Query(ctx, query, noteNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.Amount, &line.BilledAmount); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// SetBillingPercent persists the rolled up billing percentage and status.
func (r *Repository) SetBillingPercent(ctx context.Context, noteNumber string, percent float64, status string) error {
	_, err := r.q.Exec(ctx,
		`UPDATE delivery_notes SET per_billed = $2, billing_status = $3, updated_at = NOW() WHERE number = $1`,
		noteNumber, percent, status)
	return err
}
