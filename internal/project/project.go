// Package project maintains the billed amount aggregate a project carries
// across the invoices referencing it.
package project

import (
	"context"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
)

// Repository recomputes project billing aggregates.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// UpdateBilledAmount refreshes the project's billed total from its submitted
// invoices. A full recompute, so submit and cancel share the call.
func (r *Repository) UpdateBilledAmount(ctx context.Context, projectName string) error {
	const query = `
		UPDATE projects p
		SET total_billed_amount = COALESCE(sub.total, 0), updated_at = NOW()
		FROM (
			SELECT COALESCE(SUM(base_grand_total), 0) AS total
			FROM sales_invoices
			WHERE project = $1 AND docstatus = 1
		) sub
		WHERE p.name = $1`
	_, err := r.q.Exec(ctx, query, projectName)
	return err
}
