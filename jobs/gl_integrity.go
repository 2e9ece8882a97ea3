package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-erp/atlas-erp/internal/observability"
)

// GLIntegrityScanner verifies that every posted voucher still balances.
// Postings are validated before they are written, so a hit here means a
// migration or manual fix corrupted the ledger.
type GLIntegrityScanner struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewGLIntegrityScanner constructs the scanner.
func NewGLIntegrityScanner(pool *pgxpool.Pool, metrics *observability.Metrics, logger *slog.Logger) *GLIntegrityScanner {
	return &GLIntegrityScanner{pool: pool, metrics: metrics, logger: logger}
}

// HandleTask processes TaskGLIntegrityScan tasks.
func (s *GLIntegrityScanner) HandleTask(ctx context.Context, t *asynq.Task) error {
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	query := `
		SELECT voucher_type, voucher_no, SUM(debit) - SUM(credit) AS gap
		FROM gl_entries
		WHERE NOT is_cancelled`
	args := []any{}
	if payload.Company != "" {
		query += ` AND company = $1`
		args = append(args, payload.Company)
	}
	query += `
		GROUP BY voucher_type, voucher_no
		HAVING ABS(SUM(debit) - SUM(credit)) > 0.005
		ORDER BY voucher_type, voucher_no`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	flagged := 0
	for rows.Next() {
		var voucherType, voucherNo string
		var gap float64
		if err := rows.Scan(&voucherType, &voucherNo, &gap); err != nil {
			return err
		}
		flagged++
		s.metrics.UnbalancedVoucher()
		s.logger.Error("unbalanced voucher",
			slog.String("voucher_type", voucherType),
			slog.String("voucher_no", voucherNo),
			slog.Float64("gap", gap))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if flagged == 0 {
		s.logger.Info("ledger integrity scan clean", slog.String("company", payload.Company))
	}
	return nil
}
