package stock

import (
	"context"
	"time"
)

// Movement is one requested stock change from a voucher line.
type Movement struct {
	ItemCode  string
	Warehouse string
	// Qty in stock UOM, positive as entered on the document.
	Qty float64
}

// Service drives inventory updates for vouchers.
type Service struct {
	repo *Repository
}

// NewService builds the service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ApplyVoucher writes outgoing movements for a submitted voucher: a sale
// removes stock, a return adds it back.
func (s *Service) ApplyVoucher(ctx context.Context, voucherType, voucherNo string, postingDate time.Time, isReturn bool, movements []Movement) error {
	sign := -1.0
	if isReturn {
		sign = 1.0
	}
	for _, m := range movements {
		if m.Qty == 0 {
			continue
		}
		entry := LedgerEntry{
			ItemCode:    m.ItemCode,
			Warehouse:   m.Warehouse,
			PostingDate: postingDate,
			ActualQty:   sign * m.Qty,
			VoucherType: voucherType,
			VoucherNo:   voucherNo,
		}
		if err := s.repo.InsertLedgerEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// CancelVoucher writes compensating movements for every active entry of the
// voucher, restoring bin quantities exactly.
func (s *Service) CancelVoucher(ctx context.Context, voucherType, voucherNo string, postingDate time.Time) error {
	entries, err := s.repo.LedgerEntriesByVoucher(ctx, voucherType, voucherNo)
	if err != nil {
		return err
	}
	for _, e := range entries {
		reversal := LedgerEntry{
			ItemCode:    e.ItemCode,
			Warehouse:   e.Warehouse,
			PostingDate: postingDate,
			ActualQty:   -e.ActualQty,
			VoucherType: voucherType,
			VoucherNo:   voucherNo,
			IsCancelled: true,
		}
		if err := s.repo.InsertLedgerEntry(ctx, reversal); err != nil {
			return err
		}
	}
	return nil
}

// PackedLine is one expanded bundle component for a voucher line.
type PackedLine struct {
	ParentItem string
	ItemCode   string
	Qty        float64
	Warehouse  string
}

// ExpandPackingList regenerates bundle components for the given lines.
// Items without a bundle contribute nothing.
func (s *Service) ExpandPackingList(ctx context.Context, lines []Movement) ([]PackedLine, error) {
	var packed []PackedLine
	for _, line := range lines {
		components, err := s.repo.BundleComponents(ctx, line.ItemCode)
		if err != nil {
			return nil, err
		}
		for _, c := range components {
			warehouse := c.Warehouse
			if warehouse == "" {
				warehouse = line.Warehouse
			}
			packed = append(packed, PackedLine{
				ParentItem: line.ItemCode,
				ItemCode:   c.ItemCode,
				Qty:        c.Qty * line.Qty,
				Warehouse:  warehouse,
			})
		}
	}
	return packed, nil
}
