package invoice

import (
	"fmt"

	"github.com/atlas-erp/atlas-erp/internal/ledger"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// DisposalEntry is one ledger line produced by the fixed asset disposal
// routine (asset cost credit, accumulated depreciation debit, gain or loss).
type DisposalEntry struct {
	Account    string
	Debit      float64
	Credit     float64
	CostCenter string
}

// BuilderConfig carries the master data the builder may read. Lookups are
// read only; the builder itself never writes.
type BuilderConfig struct {
	RoundOffAccount    string
	RoundOffCostCenter string
	DefaultCostCenter  string

	// AccountCurrency resolves the currency an account is denominated in.
	AccountCurrency func(account string) (string, error)

	// AssetDisposal returns the disposal posting skeleton for a fixed asset
	// sold at the given company currency amount.
	AssetDisposal func(asset string, amount float64) ([]DisposalEntry, error)
}

// BuildGLEntries derives the balanced posting batch for a finalized invoice.
// It is a pure function of the invoice and the config lookups: debits and
// credits in the returned list always net to zero, and a zero grand total
// produces no entries at all.
func BuildGLEntries(inv *Invoice, cfg BuilderConfig) ([]ledger.Entry, error) {
	if inv.GrandTotal == 0 {
		return nil, nil
	}

	var entries []ledger.Entry

	entries = appendCustomerEntry(inv, entries)

	var err error
	if entries, err = appendTaxEntries(inv, cfg, entries); err != nil {
		return nil, err
	}
	if entries, err = appendItemEntries(inv, cfg, entries); err != nil {
		return nil, err
	}

	// Merge before the payment side entries are added: POS, write off and
	// rounding rows reference the receivable account again and must not be
	// folded into the customer entry.
	entries = ledger.MergeSimilar(entries)

	entries = appendPOSEntries(inv, cfg, entries)
	if entries, err = appendChangeAmountEntries(inv, entries); err != nil {
		return nil, err
	}
	if entries, err = appendWriteOffEntries(inv, cfg, entries); err != nil {
		return nil, err
	}
	entries = appendRoundingEntries(inv, cfg, entries)

	return entries, nil
}

// newEntry seeds an entry with the fields every invoice posting shares.
func newEntry(inv *Invoice, accountCurrency string) ledger.Entry {
	if accountCurrency == "" {
		accountCurrency = inv.CompanyCurrency
	}
	return ledger.Entry{
		AccountCurrency: accountCurrency,
		VoucherType:     VoucherType,
		VoucherNo:       inv.Number,
		Company:         inv.Company,
		PostingDate:     inv.PostingDate,
		Remarks:         inv.Remarks,
	}
}

func appendCustomerEntry(inv *Invoice, entries []ledger.Entry) []ledger.Entry {
	grandTotal := inv.EffectiveGrandTotal()
	if grandTotal == 0 {
		return entries
	}
	// The rounded total is converted directly so that conversion rounding
	// loss lands in the rounding adjustment entry, not here.
	baseGrandTotal := shared.Round(grandTotal*inv.ConversionRate, inv.Precision)

	e := newEntry(inv, inv.PartyAccountCurrency)
	e.Account = inv.DebitTo
	e.PartyType = "Customer"
	e.Party = inv.Customer
	e.Against = inv.AgainstIncomeAccount
	e.Debit = baseGrandTotal
	e.DebitInAccount = dualAmount(inv, inv.PartyAccountCurrency, baseGrandTotal, grandTotal)
	e.AgainstVoucherType = VoucherType
	e.AgainstVoucher = inv.AgainstVoucher()
	return append(entries, e)
}

func appendTaxEntries(inv *Invoice, cfg BuilderConfig, entries []ledger.Entry) ([]ledger.Entry, error) {
	for _, tax := range inv.Taxes {
		if tax.BaseTaxAmountAfterDiscount == 0 {
			continue
		}
		currency, err := cfg.AccountCurrency(tax.AccountHead)
		if err != nil {
			return nil, fmt.Errorf("tax account %s: %w", tax.AccountHead, err)
		}
		e := newEntry(inv, currency)
		e.Account = tax.AccountHead
		e.Against = inv.Customer
		e.CostCenter = tax.CostCenter
		e.Credit = tax.BaseTaxAmountAfterDiscount
		e.CreditInAccount = dualAmount(inv, currency, tax.BaseTaxAmountAfterDiscount, tax.TaxAmountAfterDiscount)
		entries = append(entries, e)
	}
	return entries, nil
}

func appendItemEntries(inv *Invoice, cfg BuilderConfig, entries []ledger.Entry) ([]ledger.Entry, error) {
	for _, item := range inv.Items {
		if item.BaseNetAmount == 0 {
			continue
		}
		if item.IsFixedAsset {
			if cfg.AssetDisposal == nil {
				return nil, fmt.Errorf("%w: asset disposal accounts for %s", ErrConfiguration, item.Asset)
			}
			disposal, err := cfg.AssetDisposal(item.Asset, item.BaseNetAmount)
			if err != nil {
				return nil, err
			}
			for _, d := range disposal {
				e := newEntry(inv, inv.CompanyCurrency)
				e.Account = d.Account
				e.Against = inv.Customer
				e.CostCenter = d.CostCenter
				e.Debit = d.Debit
				e.Credit = d.Credit
				entries = append(entries, e)
			}
			continue
		}

		currency, err := cfg.AccountCurrency(item.IncomeAccount)
		if err != nil {
			return nil, fmt.Errorf("income account %s: %w", item.IncomeAccount, err)
		}
		e := newEntry(inv, currency)
		e.Account = item.IncomeAccount
		e.Against = inv.Customer
		e.CostCenter = item.CostCenter
		e.Credit = item.BaseNetAmount
		e.CreditInAccount = dualAmount(inv, currency, item.BaseNetAmount, item.NetAmount)
		entries = append(entries, e)
	}
	return entries, nil
}

func appendPOSEntries(inv *Invoice, cfg BuilderConfig, entries []ledger.Entry) []ledger.Entry {
	if !inv.IsPOS {
		return entries
	}
	for _, payment := range inv.Payments {
		if payment.Amount == 0 {
			continue
		}
		receivable := newEntry(inv, inv.PartyAccountCurrency)
		receivable.Account = inv.DebitTo
		receivable.PartyType = "Customer"
		receivable.Party = inv.Customer
		receivable.Against = payment.Account
		receivable.Credit = payment.BaseAmount
		receivable.CreditInAccount = dualAmount(inv, inv.PartyAccountCurrency, payment.BaseAmount, payment.Amount)
		receivable.AgainstVoucherType = VoucherType
		receivable.AgainstVoucher = inv.AgainstVoucher()
		entries = append(entries, receivable)

		modeCurrency := inv.CompanyCurrency
		if cfg.AccountCurrency != nil {
			if c, err := cfg.AccountCurrency(payment.Account); err == nil && c != "" {
				modeCurrency = c
			}
		}
		mode := newEntry(inv, modeCurrency)
		mode.Account = payment.Account
		mode.Against = inv.Customer
		mode.Debit = payment.BaseAmount
		mode.DebitInAccount = dualAmount(inv, modeCurrency, payment.BaseAmount, payment.Amount)
		entries = append(entries, mode)
	}
	return entries
}

func appendChangeAmountEntries(inv *Invoice, entries []ledger.Entry) ([]ledger.Entry, error) {
	if !inv.IsPOS || inv.ChangeAmount == 0 {
		return entries, nil
	}
	if inv.AccountForChangeAmount == "" {
		return nil, fmt.Errorf("%w: account for change amount", ErrConfiguration)
	}

	receivable := newEntry(inv, inv.PartyAccountCurrency)
	receivable.Account = inv.DebitTo
	receivable.PartyType = "Customer"
	receivable.Party = inv.Customer
	receivable.Against = inv.AccountForChangeAmount
	receivable.Debit = inv.BaseChangeAmount
	receivable.DebitInAccount = dualAmount(inv, inv.PartyAccountCurrency, inv.BaseChangeAmount, inv.ChangeAmount)
	receivable.AgainstVoucherType = VoucherType
	receivable.AgainstVoucher = inv.AgainstVoucher()
	entries = append(entries, receivable)

	changeAcc := newEntry(inv, inv.CompanyCurrency)
	changeAcc.Account = inv.AccountForChangeAmount
	changeAcc.Against = inv.Customer
	changeAcc.Credit = inv.BaseChangeAmount
	entries = append(entries, changeAcc)
	return entries, nil
}

func appendWriteOffEntries(inv *Invoice, cfg BuilderConfig, entries []ledger.Entry) ([]ledger.Entry, error) {
	if inv.WriteOffAccount == "" || inv.WriteOffAmount == 0 {
		return entries, nil
	}
	currency := inv.CompanyCurrency
	if cfg.AccountCurrency != nil {
		if c, err := cfg.AccountCurrency(inv.WriteOffAccount); err == nil && c != "" {
			currency = c
		}
	}

	receivable := newEntry(inv, inv.PartyAccountCurrency)
	receivable.Account = inv.DebitTo
	receivable.PartyType = "Customer"
	receivable.Party = inv.Customer
	receivable.Against = inv.WriteOffAccount
	receivable.Credit = inv.BaseWriteOffAmount
	receivable.CreditInAccount = dualAmount(inv, inv.PartyAccountCurrency, inv.BaseWriteOffAmount, inv.WriteOffAmount)
	receivable.AgainstVoucherType = VoucherType
	receivable.AgainstVoucher = inv.AgainstVoucher()
	entries = append(entries, receivable)

	costCenter := inv.WriteOffCostCenter
	if costCenter == "" {
		costCenter = cfg.DefaultCostCenter
	}
	writeOff := newEntry(inv, currency)
	writeOff.Account = inv.WriteOffAccount
	writeOff.Against = inv.Customer
	writeOff.CostCenter = costCenter
	writeOff.Debit = inv.BaseWriteOffAmount
	writeOff.DebitInAccount = dualAmount(inv, currency, inv.BaseWriteOffAmount, inv.WriteOffAmount)
	entries = append(entries, writeOff)
	return entries, nil
}

func appendRoundingEntries(inv *Invoice, cfg BuilderConfig, entries []ledger.Entry) []ledger.Entry {
	if inv.RoundingAdjustment == 0 {
		return entries
	}
	e := newEntry(inv, inv.CompanyCurrency)
	e.Account = cfg.RoundOffAccount
	e.Against = inv.Customer
	e.CostCenter = cfg.RoundOffCostCenter
	e.Credit = inv.BaseRoundingAdjustment
	e.CreditInAccount = inv.RoundingAdjustment
	return append(entries, e)
}

// dualAmount returns the account currency leg of an amount: the document
// currency figure when the account is foreign, otherwise the company currency
// figure so both legs agree.
func dualAmount(inv *Invoice, accountCurrency string, baseAmount, docAmount float64) float64 {
	if accountCurrency == inv.CompanyCurrency || accountCurrency == "" {
		return baseAmount
	}
	return docAmount
}
