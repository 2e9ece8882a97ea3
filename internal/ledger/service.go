package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// Store is the persistence port of the posting service. *Repository satisfies
// it; tests substitute an in-memory implementation.
type Store interface {
	InsertEntries(ctx context.Context, entries []Entry) error
	ListByVoucher(ctx context.Context, voucherType, voucherNo string) ([]Entry, error)
	VoucherBalance(ctx context.Context, account, partyType, party, againstVoucherType, againstVoucher string) (float64, error)
	UpdateInvoiceOutstanding(ctx context.Context, voucherNo string, outstanding float64) error
}

// Service validates and persists posting batches.
type Service struct {
	store Store
}

// NewService builds a posting service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Post writes a batch of entries after enforcing the balance invariant.
// An empty batch is a no-op.
func (s *Service) Post(ctx context.Context, entries []Entry, opts PostOptions) error {
	if len(entries) == 0 {
		return nil
	}
	if opts.MergeEntries {
		entries = MergeSimilar(entries)
	}
	if opts.Cancel {
		entries = Reverse(entries)
	}

	if err := ValidateBalanced(entries, opts.Precision); err != nil {
		return err
	}
	batchID := uuid.NewString()
	for i := range entries {
		entries[i].BatchID = batchID
	}
	if err := s.store.InsertEntries(ctx, entries); err != nil {
		return fmt.Errorf("ledger: insert entries: %w", err)
	}

	if opts.UpdateOutstanding {
		for _, ref := range voucherRefs(entries) {
			if _, err := s.RecomputeOutstanding(ctx, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReverseVoucher loads the stored entries of a voucher and posts their
// debit/credit swapped mirror.
func (s *Service) ReverseVoucher(ctx context.Context, voucherType, voucherNo string, opts PostOptions) error {
	stored, err := s.store.ListByVoucher(ctx, voucherType, voucherNo)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return ErrNothingPosted
	}
	opts.Cancel = false // entries are reversed explicitly below
	return s.Post(ctx, Reverse(stored), opts)
}

// VoucherRef identifies the document a set of entries reconciles against.
type VoucherRef struct {
	Account     string
	PartyType   string
	Party       string
	VoucherType string
	VoucherNo   string
}

// RecomputeOutstanding derives the open balance of the referenced voucher from
// its ledger trail, stores it on the voucher row and returns it.
func (s *Service) RecomputeOutstanding(ctx context.Context, ref VoucherRef) (float64, error) {
	balance, err := s.store.VoucherBalance(ctx, ref.Account, ref.PartyType, ref.Party, ref.VoucherType, ref.VoucherNo)
	if err != nil {
		return 0, err
	}
	balance = shared.Round(balance, 2)
	return balance, s.store.UpdateInvoiceOutstanding(ctx, ref.VoucherNo, balance)
}

// ValidateBalanced enforces sum(debit) == sum(credit) at the given precision.
func ValidateBalanced(entries []Entry, precision int) error {
	if precision <= 0 {
		precision = 2
	}
	var debit, credit float64
	for _, e := range entries {
		debit += e.Debit
		credit += e.Credit
	}
	if shared.Round(debit-credit, precision) != 0 {
		return fmt.Errorf("%w: debit %.6f credit %.6f", ErrUnbalanced, debit, credit)
	}
	return nil
}

func voucherRefs(entries []Entry) []VoucherRef {
	seen := make(map[VoucherRef]struct{})
	var refs []VoucherRef
	for _, e := range entries {
		if e.AgainstVoucher == "" || e.Party == "" {
			continue
		}
		ref := VoucherRef{
			Account:     e.Account,
			PartyType:   e.PartyType,
			Party:       e.Party,
			VoucherType: e.AgainstVoucherType,
			VoucherNo:   e.AgainstVoucher,
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
