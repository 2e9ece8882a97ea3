package invoice

import (
	"fmt"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// AllocatePayments recomputes the payment side of the invoice: zero amount
// rows are pruned, each remaining row gets its company currency amount at the
// invoice conversion rate, and the paid totals are refreshed.
func AllocatePayments(inv *Invoice) {
	kept := inv.Payments[:0]
	for _, p := range inv.Payments {
		if p.Amount == 0 {
			continue
		}
		p.BaseAmount = shared.Round(p.Amount*inv.ConversionRate, inv.Precision)
		kept = append(kept, p)
	}
	inv.Payments = kept

	var paid, basePaid float64
	for _, p := range inv.Payments {
		paid += p.Amount
		basePaid += p.BaseAmount
	}
	inv.PaidAmount = shared.Round(paid, inv.Precision)
	inv.BasePaidAmount = shared.Round(basePaid, inv.Precision)
}

// validatePOS enforces the point of sale payment rules that hold at any
// docstatus. The payment-presence rule is checked at submit time separately
// because drafts may be saved without payments.
func (inv *Invoice) validatePOS() error {
	if !inv.IsPOS {
		return nil
	}
	if inv.IsReturn {
		// All three figures are negative on a return, so the raw
		// comparison rejects a refund plus write off that falls short of
		// the credited total by more than one order of magnitude below
		// the display precision.
		excess := inv.PaidAmount + inv.WriteOffAmount - inv.GrandTotal
		if excess >= shared.RoundingEpsilon(inv.Precision) {
			return fmt.Errorf("%w: paid amount plus write off amount cannot exceed grand total", ErrValidation)
		}
		return nil
	}
	for _, p := range inv.Payments {
		if p.Amount < 0 {
			return fmt.Errorf("%w: payment row %d: amount must be positive", ErrValidation, p.RowNo)
		}
	}
	return nil
}

// validatePOSPayments runs at submit: a POS invoice cannot be submitted
// without at least one mode of payment.
func (inv *Invoice) validatePOSPayments() error {
	if inv.IsPOS && len(inv.Payments) == 0 {
		return ErrPaymentRequired
	}
	return nil
}

// PaymentShortfall is grand total minus paid and change; POS invoices should
// close at zero within rounding tolerance.
func (inv *Invoice) PaymentShortfall() float64 {
	return shared.Round(inv.GrandTotal-(inv.PaidAmount-inv.ChangeAmount), inv.Precision)
}
