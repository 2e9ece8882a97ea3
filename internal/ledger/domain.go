// Package ledger implements double entry general ledger postings.
// Every business voucher (sales invoice, payment, write off) is persisted as a
// batch of ledger entries that must net to zero in company currency.
package ledger

import (
	"errors"
	"time"
)

// Entry is one row of a double entry posting.
type Entry struct {
	ID         int64
	Account    string
	PartyType  string
	Party      string
	Against    string
	CostCenter string

	// Amounts in company currency.
	Debit  float64
	Credit float64

	// Amounts denominated in AccountCurrency. They equal the company
	// currency amounts when the account is not foreign.
	AccountCurrency string
	DebitInAccount  float64
	CreditInAccount float64

	VoucherType        string
	VoucherNo          string
	AgainstVoucherType string
	AgainstVoucher     string

	Company     string
	PostingDate time.Time
	IsCancelled bool
	Remarks     string

	// BatchID groups the rows written by one posting call.
	BatchID string
}

// PostOptions controls how a batch of entries is persisted.
type PostOptions struct {
	// Cancel marks the batch as a reversal of a prior posting.
	Cancel bool
	// UpdateOutstanding recomputes the against-voucher outstanding amount
	// after the batch is written. Callers that post partial batches (POS,
	// write off) defer the recompute and run it once at the end.
	UpdateOutstanding bool
	// MergeEntries coalesces rows sharing the same account key before
	// insertion.
	MergeEntries bool
	// Precision used for the balance check, company currency decimals.
	Precision int
}

var (
	// ErrUnbalanced is returned when debits and credits do not net to zero.
	ErrUnbalanced = errors.New("ledger: debit and credit totals do not match")
	// ErrNothingPosted indicates no stored entries exist for a voucher.
	ErrNothingPosted = errors.New("ledger: no entries posted for voucher")
)

// Reverse returns a debit/credit swapped copy of the entries. Reversal works
// on stored rows, never on a recompute, so a cancellation offsets the original
// posting exactly even if master data changed since submission.
func Reverse(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		r := e
		r.ID = 0
		r.Debit, r.Credit = e.Credit, e.Debit
		r.DebitInAccount, r.CreditInAccount = e.CreditInAccount, e.DebitInAccount
		r.IsCancelled = true
		out = append(out, r)
	}
	return out
}
