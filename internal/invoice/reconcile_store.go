package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/reconcile"
)

// reconcileStore executes propagation descriptors against the invoice tables.
// Table and column names are interpolated from descriptor constants declared
// in this module, never from request input.
type reconcileStore struct {
	q db.Querier
}

// parentKeys maps a target line table to its parent foreign key column.
var parentKeys = map[string]string{
	"sales_order_items": "sales_order_id",
}

func (s *reconcileStore) sourceExpr(d reconcile.Descriptor) (string, error) {
	switch d.Source {
	case reconcile.SourceAmount:
		return "i.amount", nil
	case reconcile.SourceQty:
		return "i.qty", nil
	case reconcile.SourceNegatedQty:
		return "-i.qty", nil
	}
	return "", fmt.Errorf("reconcile store: unknown source expression %q", d.Source)
}

// SumSiblings recomputes the aggregate from every submitted invoice line
// referencing the target line, plus the second source table when the
// descriptor names one.
func (s *reconcileStore) SumSiblings(ctx context.Context, d reconcile.Descriptor, joinKey int64) (float64, error) {
	expr, err := s.sourceExpr(d)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(%s), 0)
		FROM sales_invoice_items i
		JOIN sales_invoices si ON si.id = i.sales_invoice_id
		WHERE i.%s = $1 AND si.docstatus = 1`, expr, d.JoinField)
	if d.RequireUpdateStock {
		query += ` AND si.update_stock`
	}
	if d.RequireReturn {
		query += ` AND si.is_return`
	}
	var total float64
	if err := s.q.QueryRow(ctx, query, joinKey).Scan(&total); err != nil {
		return 0, err
	}

	if d.SecondSourceTable != "" {
		second := fmt.Sprintf(`
			SELECT COALESCE(SUM(c.qty), 0)
			FROM %s c
			JOIN delivery_notes p ON p.id = c.delivery_note_id
			WHERE c.%s = $1 AND p.docstatus = 1`, d.SecondSourceTable, d.SecondJoinField)
		var fromSecond float64
		if err := s.q.QueryRow(ctx, second, joinKey).Scan(&fromSecond); err != nil {
			return 0, err
		}
		total += fromSecond
	}
	return total, nil
}

func (s *reconcileStore) TargetLineForUpdate(ctx context.Context, d reconcile.Descriptor, joinKey int64) (reconcile.TargetLine, error) {
	fk, ok := parentKeys[d.TargetTable]
	if !ok {
		return reconcile.TargetLine{}, fmt.Errorf("reconcile store: no parent key for table %s", d.TargetTable)
	}
	refExpr := "0"
	if d.TargetRefField != "" {
		refExpr = d.TargetRefField
	}
	query := fmt.Sprintf(`SELECT id, %s, %s FROM %s WHERE id = $1 FOR UPDATE`,
		fk, refExpr, d.TargetTable)
	var line reconcile.TargetLine
	err := s.q.QueryRow(ctx, query, joinKey).Scan(&line.ID, &line.ParentID, &line.RefValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return line, fmt.Errorf("%w: %s row %d", ErrConsistency, d.TargetTable, joinKey)
		}
		return line, err
	}
	return line, nil
}

func (s *reconcileStore) SetTargetValue(ctx context.Context, d reconcile.Descriptor, lineID int64, value float64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE id = $1`, d.TargetTable, d.TargetField)
	_, err := s.q.Exec(ctx, query, lineID, value)
	return err
}

func (s *reconcileStore) ParentLineTotals(ctx context.Context, d reconcile.Descriptor, parentID int64) ([]reconcile.ParentLineTotal, error) {
	fk := parentKeys[d.TargetTable]
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s = $1`,
		d.TargetRefField, d.TargetField, d.TargetTable, fk)
	rows, err := s.q.Query(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []reconcile.ParentLineTotal
	for rows.Next() {
		var t reconcile.ParentLineTotal
		if err := rows.Scan(&t.RefValue, &t.TargetValue); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (s *reconcileStore) SetParentPercent(ctx context.Context, d reconcile.Descriptor, parentID int64, percent float64, status string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3, updated_at = NOW() WHERE id = $1`,
		d.ParentTable, d.PercentField, d.StatusField)
	_, err := s.q.Exec(ctx, query, parentID, percent, status)
	return err
}
