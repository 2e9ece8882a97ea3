package reports

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Service executes report queries against the pool.
type Service struct {
	q db.Querier
}

// NewService builds the report service.
func NewService(q db.Querier) *Service {
	return &Service{q: q}
}

// CustomerStatement lists submitted invoices for a customer over a period.
func (s *Service) CustomerStatement(ctx context.Context, filter StatementFilter) ([]StatementRow, error) {
	query := `
		SELECT posting_date, number, customer, grand_total, outstanding_amount, due_date
		FROM sales_invoices
		WHERE docstatus = 1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Company != "" {
		query += ` AND company = ` + arg(filter.Company)
	}
	if filter.Customer != "" {
		query += ` AND customer = ` + arg(filter.Customer)
	}
	if !filter.From.IsZero() {
		query += ` AND posting_date >= ` + arg(filter.From)
	}
	if !filter.To.IsZero() {
		query += ` AND posting_date <= ` + arg(filter.To)
	}
	if filter.UnpaidOnly {
		query += ` AND outstanding_amount > 0`
	}
	query += ` ORDER BY posting_date, number`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatementRow
	for rows.Next() {
		var r StatementRow
		if err := rows.Scan(&r.PostingDate, &r.Number, &r.Customer, &r.GrandTotal, &r.Outstanding, &r.DueDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OutstandingInvoices reports every invoice still open at the given date,
// with the paid portion derived from the ledger trail rather than the stored
// outstanding column, so the report holds even for historical dates.
func (s *Service) OutstandingInvoices(ctx context.Context, filter OutstandingFilter) ([]OutstandingRow, error) {
	asOf := filter.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	query := `
		SELECT si.number, si.customer, si.posting_date, si.base_grand_total,
		       COALESCE(pay.paid, 0)
		FROM sales_invoices si
		LEFT JOIN (
			SELECT against_voucher, SUM(credit - debit) AS paid
			FROM gl_entries
			WHERE party_type = 'Customer'
			  AND against_voucher_type = 'Sales Invoice'
			  AND voucher_no != against_voucher
			  AND posting_date <= $1
			GROUP BY against_voucher
		) pay ON pay.against_voucher = si.number
		WHERE si.docstatus = 1 AND si.posting_date <= $1`
	args := []any{asOf}
	if filter.Company != "" {
		query += ` AND si.company = $2`
		args = append(args, filter.Company)
	}
	query += ` ORDER BY si.posting_date, si.number`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutstandingRow
	for rows.Next() {
		var r OutstandingRow
		if err := rows.Scan(&r.Number, &r.Customer, &r.PostingDate, &r.GrandTotal, &r.Paid); err != nil {
			return nil, err
		}
		r.Outstanding = shared.Round(r.GrandTotal-r.Paid, 2)
		if r.Outstanding <= 0 {
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MonthlyPeriods splits [from, to] into calendar months.
func MonthlyPeriods(from, to time.Time) []Period {
	var periods []Period
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(to) {
		next := cursor.AddDate(0, 1, 0)
		end := next.AddDate(0, 0, -1)
		if end.After(to) {
			end = to
		}
		start := cursor
		if start.Before(from) {
			start = from
		}
		periods = append(periods, Period{
			Label: cursor.Format("Jan 2006"),
			From:  start,
			To:    end,
		})
		cursor = next
	}
	return periods
}

// ProfitAndLossByCostCenter sums ledger movement of profit and loss accounts
// per (account, cost center) over each period. Periods run concurrently;
// income naturally reports negative under debit minus credit, so income rows
// are sign flipped to read as earned amounts.
func (s *Service) ProfitAndLossByCostCenter(ctx context.Context, filter PLFilter) ([]Period, []PLRow, error) {
	periods := MonthlyPeriods(filter.From, filter.To)
	if len(periods) == 0 {
		return nil, nil, fmt.Errorf("reports: empty period range")
	}

	type cell struct {
		account    string
		costCenter string
		reportType string
		amount     float64
	}
	results := make([][]cell, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for i, p := range periods {
		g.Go(func() error {
			query := `
				SELECT g.account, COALESCE(g.cost_center, ''), a.root_type,
				       SUM(g.debit - g.credit)
				FROM gl_entries g
				JOIN accounts a ON a.name = g.account
				WHERE a.report_type = 'Profit and Loss'
				  AND NOT g.is_cancelled
				  AND g.posting_date >= $1 AND g.posting_date <= $2`
			args := []any{p.From, p.To}
			if filter.Company != "" {
				query += ` AND g.company = $3`
				args = append(args, filter.Company)
			}
			query += ` GROUP BY g.account, g.cost_center, a.root_type`

			rows, err := s.q.Query(gctx, query, args...)
			if err != nil {
				return err
			}
			defer rows.Close()

			var cells []cell
			for rows.Next() {
				var c cell
				if err := rows.Scan(&c.account, &c.costCenter, &c.reportType, &c.amount); err != nil {
					return err
				}
				if c.reportType == "Income" {
					c.amount = -c.amount
				}
				cells = append(cells, c)
			}
			if err := rows.Err(); err != nil {
				return err
			}
			mu.Lock()
			results[i] = cells
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	type key struct{ account, costCenter string }
	rowIndex := make(map[key]*PLRow)
	for i, cells := range results {
		for _, c := range cells {
			k := key{c.account, c.costCenter}
			row, ok := rowIndex[k]
			if !ok {
				row = &PLRow{
					Account:    c.account,
					CostCenter: c.costCenter,
					ReportType: c.reportType,
					Amounts:    make([]float64, len(periods)),
				}
				rowIndex[k] = row
			}
			row.Amounts[i] = shared.Round(c.amount, 2)
			row.Total = shared.Round(row.Total+c.amount, 2)
		}
	}

	out := make([]PLRow, 0, len(rowIndex))
	for _, row := range rowIndex {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		return out[i].CostCenter < out[j].CostCenter
	})
	return periods, out, nil
}
