package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/invoice"
	"github.com/atlas-erp/atlas-erp/internal/ledger"
)

// OutstandingRefresher recomputes invoice outstanding amounts from the ledger
// trail. Payments land as entries against the invoice voucher, so a periodic
// sweep keeps the stored amount honest even when a payment was recorded
// outside the invoice flow.
type OutstandingRefresher struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewOutstandingRefresher constructs the refresher.
func NewOutstandingRefresher(pool *pgxpool.Pool, logger *slog.Logger) *OutstandingRefresher {
	return &OutstandingRefresher{pool: pool, logger: logger}
}

// HandleTask processes TaskOutstandingRefresh tasks.
func (s *OutstandingRefresher) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload OutstandingRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	query := `
		SELECT number, debit_to, customer
		FROM sales_invoices
		WHERE docstatus = 1 AND outstanding_amount <> 0`
	args := []any{}
	if payload.Invoice != "" {
		query = `
		SELECT number, debit_to, customer
		FROM sales_invoices
		WHERE docstatus = 1 AND number = $1`
		args = append(args, payload.Invoice)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	type target struct {
		number, debitTo, customer string
	}
	var targets []target
	for rows.Next() {
		var tg target
		if err := rows.Scan(&tg.number, &tg.debitTo, &tg.customer); err != nil {
			rows.Close()
			return err
		}
		targets = append(targets, tg)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	svc := ledger.NewService(ledger.NewRepository(s.pool))
	for _, tg := range targets {
		ref := ledger.VoucherRef{
			Account:     tg.debitTo,
			PartyType:   "Customer",
			Party:       tg.customer,
			VoucherType: invoice.VoucherType,
			VoucherNo:   tg.number,
		}
		if _, err := svc.RecomputeOutstanding(ctx, ref); err != nil {
			return err
		}
	}
	s.logger.Info("outstanding refresh done", slog.Int("invoices", len(targets)))
	return nil
}
