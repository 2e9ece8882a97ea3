package deliverynote

import (
	"context"

	"github.com/atlas-erp/atlas-erp/internal/reconcile"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// billingStore is the slice of the repository the billing recomputation needs.
type billingStore interface {
	GetLine(ctx context.Context, lineID int64) (*Line, string, error)
	LinesForSODetail(ctx context.Context, soDetail int64) ([]Line, []string, error)
	InvoicedAmountForDNLine(ctx context.Context, dnDetail int64) (float64, error)
	InvoicedAmountForSODetail(ctx context.Context, soDetail int64) (float64, error)
	SetLineBilledAmount(ctx context.Context, lineID int64, amount float64) error
	LineBillingTotals(ctx context.Context, noteNumber string) ([]Line, error)
	SetBillingPercent(ctx context.Context, noteNumber string, percent float64, status string) error
}

// BillingService recomputes the billed amount bookkeeping of delivery notes
// from the current set of submitted invoices.
type BillingService struct {
	repo      billingStore
	precision int
}

// NewBillingService builds the service.
func NewBillingService(repo billingStore, precision int) *BillingService {
	if precision <= 0 {
		precision = 2
	}
	return &BillingService{repo: repo, precision: precision}
}

// UpdateForDNLine recomputes the billed amount of one directly referenced
// line and returns the parent note number for the percentage rollup.
func (s *BillingService) UpdateForDNLine(ctx context.Context, dnDetail int64) (string, error) {
	line, parent, err := s.repo.GetLine(ctx, dnDetail)
	if err != nil {
		return "", err
	}
	billed, err := s.repo.InvoicedAmountForDNLine(ctx, line.ID)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetLineBilledAmount(ctx, line.ID, shared.Round(billed, s.precision)); err != nil {
		return "", err
	}
	return parent, nil
}

// UpdateBasedOnSO allocates amounts billed against an order line (without a
// direct delivery note reference) across the delivery note lines that
// delivered it, oldest first, after the directly billed amounts are settled.
// Returns the touched note numbers.
func (s *BillingService) UpdateBasedOnSO(ctx context.Context, soDetail int64) ([]string, error) {
	lines, parents, err := s.repo.LinesForSODetail(ctx, soDetail)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	unallocated, err := s.repo.InvoicedAmountForSODetail(ctx, soDetail)
	if err != nil {
		return nil, err
	}

	touched := make([]string, 0, len(parents))
	for i, line := range lines {
		direct, err := s.repo.InvoicedAmountForDNLine(ctx, line.ID)
		if err != nil {
			return nil, err
		}
		billed := direct
		pending := line.Amount - direct
		if unallocated > 0 && pending > 0 {
			if pending >= unallocated {
				billed += unallocated
				unallocated = 0
			} else {
				billed += pending
				unallocated -= pending
			}
		}
		if err := s.repo.SetLineBilledAmount(ctx, line.ID, shared.Round(billed, s.precision)); err != nil {
			return nil, err
		}
		touched = append(touched, parents[i])
	}
	return touched, nil
}

// UpdateBillingPercent rolls the per-line billed amounts up to the note
// header, capping each line at its own amount.
func (s *BillingService) UpdateBillingPercent(ctx context.Context, noteNumber string) error {
	lines, err := s.repo.LineBillingTotals(ctx, noteNumber)
	if err != nil {
		return err
	}
	var amount, billed float64
	for _, line := range lines {
		amount += line.Amount
		billed += min(line.BilledAmount, line.Amount)
	}
	percent := 0.0
	if amount > 0 {
		percent = shared.Round(billed/amount*100, 2)
	}
	status := reconcile.StatusFor(reconcile.KeywordBilled, percent)
	return s.repo.SetBillingPercent(ctx, noteNumber, percent, status)
}
