package salesorder

import (
	"context"
	"fmt"
)

// Service exposes the order side helpers invoicing needs.
type Service struct {
	repo *Repository
}

// NewService builds the service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ErrClosed rejects transactions against closed orders.
var ErrClosed = fmt.Errorf("salesorder: order is closed")

// EnsureOpen rejects the transaction when the order is closed.
func (s *Service) EnsureOpen(ctx context.Context, number string) error {
	so, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return err
	}
	if so.IsClosed {
		return fmt.Errorf("%w: %s", ErrClosed, number)
	}
	return nil
}

// QtySync is the correction suggested for one invoice line when syncing its
// quantity with what remains open on the order.
type QtySync struct {
	SODetail int64
	Rate     float64
	Qty      *float64
}

// SyncInvoiceQty caps a proposed invoice quantity at what remains uninvoiced
// on the order line and resolves a missing line reference by item code.
// Duplicate item codes after the first get quantity zero, mirroring how a
// cashier's repeated scan should consolidate rather than double bill.
func (s *Service) SyncInvoiceQty(ctx context.Context, invoiceNumber, orderNumber, itemCode string, soDetail int64, proposedQty float64, seenItem bool) (QtySync, error) {
	var out QtySync
	if soDetail == 0 {
		id, err := s.repo.FindLineByItem(ctx, orderNumber, itemCode)
		if err != nil {
			return out, fmt.Errorf("item %s not found in sales order %s: %w", itemCode, orderNumber, err)
		}
		soDetail = id
	}
	out.SODetail = soDetail

	line, err := s.repo.GetLine(ctx, soDetail)
	if err != nil {
		return out, err
	}
	out.Rate = line.Rate

	if seenItem {
		zero := 0.0
		out.Qty = &zero
		return out, nil
	}

	invoiced, err := s.repo.InvoicedQty(ctx, soDetail, invoiceNumber)
	if err != nil {
		return out, err
	}
	remaining := line.Qty - invoiced
	if remaining < 0 {
		remaining = 0
	}
	if remaining < proposedQty {
		out.Qty = &remaining
	}
	return out, nil
}
