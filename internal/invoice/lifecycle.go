package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/ledger"
	"github.com/atlas-erp/atlas-erp/internal/shared"
	"github.com/atlas-erp/atlas-erp/internal/stock"
)

// Lifecycle drives the submit and cancel transitions of sales invoices.
// Every transition runs inside one repository transaction so that the
// document, its ledger trail and its ancestor bookkeeping move together.
type Lifecycle struct {
	repo Repository
	log  *slog.Logger
}

// NewLifecycle builds the lifecycle service.
func NewLifecycle(repo Repository, log *slog.Logger) *Lifecycle {
	return &Lifecycle{repo: repo, log: log}
}

// Submit validates the invoice, finalizes it and applies every side effect:
// ancestor status propagation, delivery note billing, stock movements or
// reserved quantity, the ledger posting, the credit check, serial number
// claims and the project billing aggregate.
func (l *Lifecycle) Submit(ctx context.Context, number string, userID int64) (*Invoice, error) {
	var out *Invoice
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		inv, err := tx.Invoices.GetForUpdate(ctx, number)
		if err != nil {
			return err
		}
		if inv.Docstatus != StatusDraft {
			return fmt.Errorf("%w: cannot submit invoice in docstatus %d", ErrInvalidStatus, inv.Docstatus)
		}

		defaults, err := tx.Accounts.CompanyDefaults(ctx, inv.Company)
		if err != nil {
			return err
		}
		if err := validate(ctx, tx, inv, defaults); err != nil {
			return err
		}
		if err := inv.validatePOSPayments(); err != nil {
			return err
		}

		// Persist the submitted state first so that the recomputing
		// aggregates below see this invoice's own rows.
		inv.Docstatus = StatusSubmitted
		if err := tx.Invoices.Save(ctx, inv); err != nil {
			return err
		}

		if err := validateTaxCeiling(ctx, tx.Ancestors, inv); err != nil {
			return err
		}
		if err := checkWarehouseAccess(ctx, tx.Warehouse, inv, userID); err != nil {
			return err
		}
		if err := checkAncestorDocstatus(ctx, tx.Ancestors, inv); err != nil {
			return err
		}

		if err := tx.Reconcile.Apply(ctx, statusDescriptors(inv), sourceRows(inv)); err != nil {
			return err
		}
		if err := updateDeliveryNoteBilling(ctx, tx.DNBilling, inv); err != nil {
			return err
		}

		if inv.UpdateStock {
			if err := applyStock(ctx, tx.Stock, inv); err != nil {
				return err
			}
		} else {
			if err := refreshReservedQty(ctx, tx, inv); err != nil {
				return err
			}
		}

		if err := postLedger(ctx, tx, inv, defaults, false); err != nil {
			return err
		}

		if err := checkCreditLimit(ctx, tx.Credit, inv); err != nil {
			return err
		}
		if err := attachSerials(ctx, tx.Stock, inv); err != nil {
			return err
		}
		if err := markAssetsSold(ctx, tx.Assets, inv, true); err != nil {
			return err
		}
		if inv.Project != "" {
			if err := tx.Projects.UpdateBilledAmount(ctx, inv.Project); err != nil {
				return err
			}
		}

		if err := tx.Invoices.Save(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("invoice submitted",
		slog.String("number", out.Number),
		slog.String("customer", out.Customer),
		slog.Float64("grand_total", out.GrandTotal),
		slog.Bool("is_pos", out.IsPOS),
		slog.Bool("is_return", out.IsReturn))
	return out, nil
}

// Cancel reverses a submitted invoice: compensating ledger and stock entries
// are written, ancestor aggregates recompute without it, serial number claims
// release, and the outstanding amount of the reconciled voucher refreshes.
func (l *Lifecycle) Cancel(ctx context.Context, number string) (*Invoice, error) {
	var out *Invoice
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		inv, err := tx.Invoices.GetForUpdate(ctx, number)
		if err != nil {
			return err
		}
		if inv.Docstatus != StatusSubmitted {
			return fmt.Errorf("%w: cannot cancel invoice in docstatus %d", ErrInvalidStatus, inv.Docstatus)
		}
		hasReturns, err := tx.Invoices.HasActiveReturns(ctx, inv.Number)
		if err != nil {
			return err
		}
		if hasReturns {
			return fmt.Errorf("%w: credit notes exist against invoice %s", ErrInvalidStatus, inv.Number)
		}
		if err := checkClosedOrders(ctx, tx.Ancestors, inv); err != nil {
			return err
		}

		defaults, err := tx.Accounts.CompanyDefaults(ctx, inv.Company)
		if err != nil {
			return err
		}

		inv.Docstatus = StatusCancelled
		if err := tx.Invoices.SetDocstatus(ctx, inv.Number, StatusCancelled); err != nil {
			return err
		}

		if err := tx.Reconcile.Apply(ctx, statusDescriptors(inv), sourceRows(inv)); err != nil {
			return err
		}
		if err := updateDeliveryNoteBilling(ctx, tx.DNBilling, inv); err != nil {
			return err
		}

		if inv.UpdateStock {
			if err := tx.Stock.CancelVoucher(ctx, VoucherType, inv.Number, inv.PostingDate); err != nil {
				return err
			}
		} else {
			if err := refreshReservedQty(ctx, tx, inv); err != nil {
				return err
			}
		}

		if err := postLedger(ctx, tx, inv, defaults, true); err != nil {
			return err
		}
		if err := releaseSerials(ctx, tx.Stock, inv); err != nil {
			return err
		}
		if err := markAssetsSold(ctx, tx.Assets, inv, false); err != nil {
			return err
		}
		if inv.Project != "" {
			if err := tx.Projects.UpdateBilledAmount(ctx, inv.Project); err != nil {
				return err
			}
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Info("invoice cancelled", slog.String("number", out.Number))
	return out, nil
}

// validate runs every draft-time rule and fills posting defaults. The same
// rules run again on submit so that a stale draft cannot slip through.
func validate(ctx context.Context, tx *Tx, inv *Invoice, defaults *CompanyDefaults) error {
	if inv.Precision <= 0 {
		inv.Precision = defaults.Precision
	}
	if inv.Precision <= 0 {
		inv.Precision = 2
	}
	inv.CompanyCurrency = defaults.Currency
	if inv.Currency == "" {
		inv.Currency = defaults.Currency
	}
	if inv.ConversionRate == 0 {
		if inv.Currency != inv.CompanyCurrency {
			return fmt.Errorf("%w: conversion rate is required for currency %s", ErrValidation, inv.Currency)
		}
		inv.ConversionRate = 1
	}
	if !inv.SetPostingTime || inv.PostingDate.IsZero() {
		inv.PostingDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if !inv.DueDate.IsZero() && inv.DueDate.Before(inv.PostingDate) {
		return fmt.Errorf("%w: due date cannot precede posting date", ErrValidation)
	}
	if len(inv.Items) == 0 {
		return fmt.Errorf("%w: invoice has no items", ErrValidation)
	}
	if inv.IsReturn && inv.ReturnAgainst == "" {
		return fmt.Errorf("%w: return invoice requires the invoice it returns against", ErrValidation)
	}

	if err := validateDebitTo(ctx, tx.Accounts, inv); err != nil {
		return err
	}
	if err := validateItems(ctx, tx, inv, defaults); err != nil {
		return err
	}
	if err := validateReferencePolicy(ctx, tx.Stock, inv, defaults); err != nil {
		return err
	}

	applyWriteOffDefaults(inv, defaults)
	if inv.IsPOS {
		if err := defaultPaymentAccounts(ctx, tx.Accounts, inv, defaults); err != nil {
			return err
		}
		AllocatePayments(inv)
	}
	computeTotals(inv)
	if err := inv.validatePOS(); err != nil {
		return err
	}

	if inv.UpdateStock {
		if err := expandPackingList(ctx, tx.Stock, inv); err != nil {
			return err
		}
		if err := inv.validateSerialNumbers(serialAdapter{ctx: ctx, stock: tx.Stock}); err != nil {
			return err
		}
	}
	setAgainstIncome(inv)
	return nil
}

// validateDebitTo requires a balance sheet receivable account and captures
// its currency for the dual currency posting legs.
func validateDebitTo(ctx context.Context, accounts AccountsPort, inv *Invoice) error {
	if inv.DebitTo == "" {
		return fmt.Errorf("%w: debit to account is required", ErrValidation)
	}
	acc, err := accounts.Account(ctx, inv.DebitTo)
	if err != nil {
		return err
	}
	if acc.ReportType != "Balance Sheet" {
		return fmt.Errorf("%w: debit to account %s must be a balance sheet account", ErrValidation, inv.DebitTo)
	}
	if acc.AccountType != "Receivable" {
		return fmt.Errorf("%w: debit to account %s must be of type Receivable", ErrValidation, inv.DebitTo)
	}
	inv.PartyAccountCurrency = acc.Currency
	if inv.PartyAccountCurrency == "" {
		inv.PartyAccountCurrency = inv.CompanyCurrency
	}
	return nil
}

func validateItems(ctx context.Context, tx *Tx, inv *Invoice, defaults *CompanyDefaults) error {
	for i := range inv.Items {
		item := &inv.Items[i]
		if item.Qty == 0 && !inv.IsReturn {
			return fmt.Errorf("%w: row %d: quantity is required", ErrValidation, item.RowNo)
		}
		if inv.IsReturn && item.Qty > 0 {
			return fmt.Errorf("%w: row %d: return invoice requires negative quantities", ErrValidation, item.RowNo)
		}
		if item.ConversionFactor == 0 {
			item.ConversionFactor = 1
		}
		item.StockQty = item.Qty * item.ConversionFactor

		whole, err := tx.Stock.UOMMustBeWhole(ctx, item.UOM)
		if err != nil {
			return err
		}
		if whole && item.Qty != float64(int64(item.Qty)) {
			return fmt.Errorf("%w: row %d: quantity must be a whole number for UOM %s", ErrValidation, item.RowNo, item.UOM)
		}

		if item.IsFixedAsset {
			if item.Asset == "" {
				return fmt.Errorf("%w: row %d: fixed asset item %s requires an asset reference", ErrValidation, item.RowNo, item.ItemCode)
			}
			if defaults.DisposalAccount == "" {
				return fmt.Errorf("%w: disposal account for company %s", ErrConfiguration, inv.Company)
			}
			// Fixed asset income always books through the disposal
			// account; whatever the line carried is overwritten.
			item.IncomeAccount = defaults.DisposalAccount
			if item.CostCenter == "" {
				item.CostCenter = defaults.DepreciationCostCenter
			}
		}
		if item.IncomeAccount == "" {
			return fmt.Errorf("%w: row %d: income account is required", ErrValidation, item.RowNo)
		}
		if item.CostCenter == "" {
			item.CostCenter = defaults.DefaultCostCenter
		}

		if inv.UpdateStock {
			isStock, err := tx.Stock.IsStockItem(ctx, item.ItemCode)
			if err != nil {
				return err
			}
			if isStock && item.Warehouse == "" {
				return fmt.Errorf("%w: row %d: warehouse is required for stock item %s", ErrValidation, item.RowNo, item.ItemCode)
			}
			if isStock {
				actual, _, err := tx.Stock.BinQty(ctx, item.ItemCode, item.Warehouse)
				if err != nil {
					return err
				}
				item.ActualQty = actual
			}
			if item.DeliveryNote != "" {
				return fmt.Errorf("%w: row %d: stock cannot be updated against delivery note %s",
					ErrValidation, item.RowNo, item.DeliveryNote)
			}
		}
	}
	return nil
}

// validateReferencePolicy enforces the company policy requiring a sales order
// or delivery note behind every invoiced stock item.
func validateReferencePolicy(ctx context.Context, st StockPort, inv *Invoice, defaults *CompanyDefaults) error {
	if inv.IsReturn || (!defaults.SalesOrderRequired && !defaults.DeliveryNoteRequired) {
		return nil
	}
	for _, item := range inv.Items {
		isStock, err := st.IsStockItem(ctx, item.ItemCode)
		if err != nil {
			return err
		}
		if !isStock {
			continue
		}
		if defaults.SalesOrderRequired && item.SalesOrder == "" {
			return fmt.Errorf("%w: row %d: sales order is required for item %s", ErrValidation, item.RowNo, item.ItemCode)
		}
		if defaults.DeliveryNoteRequired && !inv.UpdateStock && item.DeliveryNote == "" {
			return fmt.Errorf("%w: row %d: delivery note is required for item %s", ErrValidation, item.RowNo, item.ItemCode)
		}
	}
	return nil
}

func applyWriteOffDefaults(inv *Invoice, defaults *CompanyDefaults) {
	if inv.WriteOffAmount == 0 {
		return
	}
	if inv.WriteOffAccount == "" {
		inv.WriteOffAccount = defaults.WriteOffAccount
	}
	if inv.WriteOffCostCenter == "" {
		inv.WriteOffCostCenter = defaults.DefaultCostCenter
	}
}

func defaultPaymentAccounts(ctx context.Context, accounts AccountsPort, inv *Invoice, defaults *CompanyDefaults) error {
	for i := range inv.Payments {
		p := &inv.Payments[i]
		if p.Account != "" || p.Amount == 0 {
			continue
		}
		account, err := accounts.ModeOfPaymentAccount(ctx, p.ModeOfPayment, inv.Company)
		if err != nil {
			return err
		}
		if account == "" {
			return fmt.Errorf("%w: default account for mode of payment %s", ErrConfiguration, p.ModeOfPayment)
		}
		p.Account = account
	}
	if inv.ChangeAmount != 0 && inv.AccountForChangeAmount == "" {
		inv.AccountForChangeAmount = defaults.DefaultCashAccount
	}
	return nil
}

// computeTotals refreshes the derived money fields from the item and tax
// rows. Amounts in company currency round at the invoice precision.
func computeTotals(inv *Invoice) {
	var net, baseNet float64
	for i := range inv.Items {
		item := &inv.Items[i]
		if item.Amount == 0 {
			item.Amount = shared.Round(item.Qty*item.Rate, inv.Precision)
		}
		if item.NetAmount == 0 {
			item.NetAmount = item.Amount
		}
		item.BaseNetAmount = shared.Round(item.NetAmount*inv.ConversionRate, inv.Precision)
		net += item.NetAmount
		baseNet += item.BaseNetAmount
	}
	inv.NetTotal = shared.Round(net, inv.Precision)

	var tax float64
	for i := range inv.Taxes {
		t := &inv.Taxes[i]
		if t.ChargeType == ChargeTypeOnNetTotal && t.TaxAmount == 0 {
			t.TaxAmount = shared.Round(inv.NetTotal*t.Rate/100, inv.Precision)
		}
		if t.TaxAmountAfterDiscount == 0 {
			t.TaxAmountAfterDiscount = t.TaxAmount
		}
		t.BaseTaxAmountAfterDiscount = shared.Round(t.TaxAmountAfterDiscount*inv.ConversionRate, inv.Precision)
		tax += t.TaxAmountAfterDiscount
	}

	inv.GrandTotal = shared.Round(inv.NetTotal+tax, inv.Precision)
	inv.BaseGrandTotal = shared.Round(inv.GrandTotal*inv.ConversionRate, inv.Precision)
	inv.RoundedTotal = shared.Round(inv.GrandTotal, 0)
	inv.RoundingAdjustment = shared.Round(inv.RoundedTotal-inv.GrandTotal, inv.Precision)
	inv.BaseRoundingAdjustment = shared.Round(inv.RoundingAdjustment*inv.ConversionRate, inv.Precision)
	if inv.RoundingAdjustment == 0 {
		inv.RoundedTotal = 0
	}
	inv.BaseWriteOffAmount = shared.Round(inv.WriteOffAmount*inv.ConversionRate, inv.Precision)
	inv.BaseChangeAmount = shared.Round(inv.ChangeAmount*inv.ConversionRate, inv.Precision)

	// Outstanding is held in the receivable account currency. When that
	// differs from the document currency every term switches to the
	// company currency amounts so a fully paid invoice closes at zero.
	total := inv.EffectiveGrandTotal()
	paid := inv.PaidAmount - inv.ChangeAmount
	writeOff := inv.WriteOffAmount
	if inv.PartyAccountCurrency != "" && inv.PartyAccountCurrency != inv.Currency {
		total = shared.Round(total*inv.ConversionRate, inv.Precision)
		paid = inv.BasePaidAmount - inv.BaseChangeAmount
		writeOff = inv.BaseWriteOffAmount
	}
	inv.OutstandingAmount = shared.Round(total-paid-writeOff, inv.Precision)
}

// setAgainstIncome records the distinct income accounts for the customer
// entry's against column.
func setAgainstIncome(inv *Invoice) {
	seen := make(map[string]struct{})
	var accounts []string
	for _, item := range inv.Items {
		if _, ok := seen[item.IncomeAccount]; ok {
			continue
		}
		seen[item.IncomeAccount] = struct{}{}
		accounts = append(accounts, item.IncomeAccount)
	}
	inv.AgainstIncomeAccount = strings.Join(accounts, ", ")
}

func expandPackingList(ctx context.Context, st StockPort, inv *Invoice) error {
	lines := make([]stock.Movement, 0, len(inv.Items))
	for _, item := range inv.Items {
		lines = append(lines, stock.Movement{
			ItemCode:  item.ItemCode,
			Warehouse: item.Warehouse,
			Qty:       item.StockQty,
		})
	}
	packed, err := st.ExpandPackingList(ctx, lines)
	if err != nil {
		return err
	}
	inv.PackedItems = inv.PackedItems[:0]
	for _, p := range packed {
		actual, projected, err := st.BinQty(ctx, p.ItemCode, p.Warehouse)
		if err != nil {
			return err
		}
		inv.PackedItems = append(inv.PackedItems, PackedItem{
			ParentItem:   p.ParentItem,
			ItemCode:     p.ItemCode,
			Qty:          p.Qty,
			Warehouse:    p.Warehouse,
			ActualQty:    actual,
			ProjectedQty: projected,
		})
	}
	return nil
}

// checkWarehouseAccess verifies every posting warehouse against the grants of
// the submitting user. The substitution policy applies everywhere except a
// return that lacks breakage approval, which requires an exact grant.
func checkWarehouseAccess(ctx context.Context, auth WarehouseAuthPort, inv *Invoice, userID int64) error {
	if !inv.UpdateStock {
		return nil
	}
	strict := inv.IsReturn && !inv.ReceiveInBreakage
	seen := make(map[string]struct{})
	for _, item := range inv.Items {
		if item.Warehouse == "" {
			continue
		}
		if _, ok := seen[item.Warehouse]; ok {
			continue
		}
		seen[item.Warehouse] = struct{}{}
		allowed, err := auth.MayPostInWarehouse(ctx, userID, item.Warehouse, strict)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: warehouse %s", ErrNotAuthorized, item.Warehouse)
		}
	}
	return nil
}

// checkClosedOrders rejects the transition when any referenced sales order
// has been closed. A cancelled invoice would reopen billed quantity on an
// order the operator already shut.
func checkClosedOrders(ctx context.Context, ancestors AncestorPort, inv *Invoice) error {
	seen := make(map[string]struct{})
	for _, item := range inv.Items {
		if item.SalesOrder == "" {
			continue
		}
		if _, ok := seen[item.SalesOrder]; ok {
			continue
		}
		seen[item.SalesOrder] = struct{}{}
		_, closed, err := ancestors.OrderState(ctx, item.SalesOrder)
		if err != nil {
			return err
		}
		if closed {
			return fmt.Errorf("%w: sales order %s is closed", ErrConsistency, item.SalesOrder)
		}
	}
	return nil
}

// checkAncestorDocstatus rejects invoices against draft or cancelled orders
// and notes, and against closed orders.
func checkAncestorDocstatus(ctx context.Context, ancestors AncestorPort, inv *Invoice) error {
	seenSO := make(map[string]struct{})
	seenDN := make(map[string]struct{})
	for _, item := range inv.Items {
		if item.SalesOrder != "" {
			if _, ok := seenSO[item.SalesOrder]; !ok {
				seenSO[item.SalesOrder] = struct{}{}
				docstatus, closed, err := ancestors.OrderState(ctx, item.SalesOrder)
				if err != nil {
					return err
				}
				if docstatus != int(StatusSubmitted) {
					return fmt.Errorf("%w: sales order %s is not submitted", ErrConsistency, item.SalesOrder)
				}
				if closed {
					return fmt.Errorf("%w: sales order %s is closed", ErrConsistency, item.SalesOrder)
				}
			}
		}
		if item.DeliveryNote != "" {
			if _, ok := seenDN[item.DeliveryNote]; !ok {
				seenDN[item.DeliveryNote] = struct{}{}
				docstatus, err := ancestors.NoteDocstatus(ctx, item.DeliveryNote)
				if err != nil {
					return err
				}
				if docstatus != int(StatusSubmitted) {
					return fmt.Errorf("%w: delivery note %s is not submitted", ErrConsistency, item.DeliveryNote)
				}
			}
		}
	}
	return nil
}

// updateDeliveryNoteBilling refreshes delivery note billed amounts for every
// referenced line: directly billed lines recompute in place, order-only lines
// allocate across the notes that delivered them.
func updateDeliveryNoteBilling(ctx context.Context, billing DNBillingPort, inv *Invoice) error {
	touched := make(map[string]struct{})
	for _, item := range inv.Items {
		switch {
		case item.DNDetail != 0:
			note, err := billing.UpdateForDNLine(ctx, item.DNDetail)
			if err != nil {
				return err
			}
			touched[note] = struct{}{}
		case item.SODetail != 0:
			notes, err := billing.UpdateBasedOnSO(ctx, item.SODetail)
			if err != nil {
				return err
			}
			for _, n := range notes {
				touched[n] = struct{}{}
			}
		}
	}
	for note := range touched {
		if err := billing.UpdateBillingPercent(ctx, note); err != nil {
			return err
		}
	}
	return nil
}

// applyStock writes the stock ledger for an update-stock invoice. Bundle
// parents move through their packed components, plain items directly.
func applyStock(ctx context.Context, st StockPort, inv *Invoice) error {
	bundleParents := make(map[string]struct{})
	for _, p := range inv.PackedItems {
		bundleParents[p.ParentItem] = struct{}{}
	}

	var movements []stock.Movement
	for _, item := range inv.Items {
		if _, isBundle := bundleParents[item.ItemCode]; isBundle {
			continue
		}
		isStock, err := st.IsStockItem(ctx, item.ItemCode)
		if err != nil {
			return err
		}
		if !isStock {
			continue
		}
		qty := item.StockQty
		if qty < 0 {
			qty = -qty
		}
		movements = append(movements, stock.Movement{ItemCode: item.ItemCode, Warehouse: item.Warehouse, Qty: qty})
	}
	for _, p := range inv.PackedItems {
		qty := p.Qty
		if qty < 0 {
			qty = -qty
		}
		movements = append(movements, stock.Movement{ItemCode: p.ItemCode, Warehouse: p.Warehouse, Qty: qty})
	}
	return st.ApplyVoucher(ctx, VoucherType, inv.Number, inv.PostingDate, inv.IsReturn, movements)
}

// refreshReservedQty recomputes bin reservations for order-backed lines when
// the invoice does not itself move stock.
func refreshReservedQty(ctx context.Context, tx *Tx, inv *Invoice) error {
	type key struct{ item, warehouse string }
	seen := make(map[key]struct{})
	for _, item := range inv.Items {
		if item.SODetail == 0 || item.Warehouse == "" {
			continue
		}
		supplied, err := tx.Ancestors.LineDeliveredBySupplier(ctx, item.SODetail)
		if err != nil {
			return err
		}
		if supplied {
			continue
		}
		k := key{item.ItemCode, item.Warehouse}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if err := tx.Ancestors.UpdateReservedQty(ctx, item.ItemCode, item.Warehouse); err != nil {
			return err
		}
	}
	return nil
}

// postLedger builds and writes the posting batch. When the invoice carries
// payments or a write off, outstanding recomputation is deferred until after
// the batch is in, so the stored amount reflects every leg.
func postLedger(ctx context.Context, tx *Tx, inv *Invoice, defaults *CompanyDefaults, cancel bool) error {
	if cancel {
		if err := tx.Ledger.ReverseVoucher(ctx, VoucherType, inv.Number, ledger.PostOptions{
			UpdateOutstanding: true,
			Precision:         inv.Precision,
		}); err != nil {
			if errors.Is(err, ledger.ErrNothingPosted) {
				return nil
			}
			return err
		}
		return nil
	}

	cfg := BuilderConfig{
		RoundOffAccount:    defaults.RoundOffAccount,
		RoundOffCostCenter: defaults.RoundOffCostCenter,
		DefaultCostCenter:  defaults.DefaultCostCenter,
		AccountCurrency: func(account string) (string, error) {
			acc, err := tx.Accounts.Account(ctx, account)
			if err != nil {
				return "", err
			}
			return acc.Currency, nil
		},
		AssetDisposal: func(asset string, amount float64) ([]DisposalEntry, error) {
			return tx.Assets.DisposalEntries(ctx, asset, amount)
		},
	}
	entries, err := BuildGLEntries(inv, cfg)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	deferOutstanding := inv.IsPOS || inv.WriteOffAmount != 0
	if err := tx.Ledger.Post(ctx, entries, ledger.PostOptions{
		UpdateOutstanding: !deferOutstanding,
		Precision:         inv.Precision,
	}); err != nil {
		return err
	}
	if deferOutstanding {
		ref := ledger.VoucherRef{
			Account:     inv.DebitTo,
			PartyType:   "Customer",
			Party:       inv.Customer,
			VoucherType: VoucherType,
			VoucherNo:   inv.AgainstVoucher(),
		}
		balance, err := tx.Ledger.RecomputeOutstanding(ctx, ref)
		if err != nil {
			return err
		}
		// Carry the trail-derived figure on the header so the save that
		// follows does not put the pre-posting amount back. A return
		// recomputes the original invoice, not itself.
		if ref.VoucherNo == inv.Number {
			inv.OutstandingAmount = balance
		}
	}
	return nil
}

// checkCreditLimit runs the customer credit check. Lines backed by a sales
// order or delivery note were already checked when those documents were
// submitted, unless the customer defers the check to invoicing time.
func checkCreditLimit(ctx context.Context, credit CreditPort, inv *Invoice) error {
	if inv.IsReturn {
		return nil
	}
	bypass, err := credit.BypassAtSalesOrder(ctx, inv.Customer)
	if err != nil {
		return err
	}
	allBacked := true
	for _, item := range inv.Items {
		if item.SalesOrder == "" && item.DeliveryNote == "" {
			allBacked = false
			break
		}
	}
	if allBacked && !bypass {
		return nil
	}
	return credit.CheckCreditLimit(ctx, inv.Customer, inv.Company, bypass)
}

func attachSerials(ctx context.Context, st StockPort, inv *Invoice) error {
	for _, item := range inv.Items {
		for _, sn := range item.SerialNos {
			if err := st.SetSerialInvoice(ctx, sn, inv.Number); err != nil {
				return err
			}
		}
	}
	return nil
}

// releaseSerials detaches this invoice from its serial numbers. Cancelling a
// credit note reattaches the serials to the invoice it returned against.
func releaseSerials(ctx context.Context, st StockPort, inv *Invoice) error {
	reattach := ""
	if inv.IsReturn {
		reattach = inv.ReturnAgainst
	}
	for _, item := range inv.Items {
		for _, sn := range item.SerialNos {
			if err := st.SetSerialInvoice(ctx, sn, reattach); err != nil {
				return err
			}
		}
	}
	return nil
}

func markAssetsSold(ctx context.Context, assets AssetsPort, inv *Invoice, sold bool) error {
	for _, item := range inv.Items {
		if !item.IsFixedAsset || item.Asset == "" {
			continue
		}
		if err := assets.SetDisposal(ctx, item.Asset, sold, inv.PostingDate); err != nil {
			return err
		}
	}
	return nil
}

// serialAdapter lets the document level serial validation read through the
// transaction's stock port.
type serialAdapter struct {
	ctx   context.Context
	stock StockPort
}

func (a serialAdapter) DeliveryNoteSerials(dnDetail int64) ([]string, error) {
	return a.stock.SerialsForDNLine(a.ctx, dnDetail)
}

func (a serialAdapter) InvoiceFor(serialNo string) (string, error) {
	return a.stock.SerialInvoiceRef(a.ctx, serialNo)
}
