package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/atlas-erp/atlas-erp/internal/platform/db"
)

// Repository persists ledger entries.
type Repository struct {
	q db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const entryColumns = `account, party_type, party, against, cost_center,
	debit, credit, account_currency, debit_in_account_currency, credit_in_account_currency,
	voucher_type, voucher_no, against_voucher_type, against_voucher,
	company, posting_date, is_cancelled, remarks, batch_id`

// InsertEntries writes a batch of entries.
func (r *Repository) InsertEntries(ctx context.Context, entries []Entry) error {
	const query = `
		INSERT INTO gl_entries (` + entryColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`
	for _, e := range entries {
		_, err := r.q.Exec(ctx, query,
			e.Account, e.PartyType, e.Party, e.Against, e.CostCenter,
			e.Debit, e.Credit, e.AccountCurrency, e.DebitInAccount, e.CreditInAccount,
			e.VoucherType, e.VoucherNo, e.AgainstVoucherType, e.AgainstVoucher,
			e.Company, e.PostingDate, e.IsCancelled, e.Remarks, e.BatchID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListByVoucher returns the stored entries of one voucher, posting order.
func (r *Repository) ListByVoucher(ctx context.Context, voucherType, voucherNo string) ([]Entry, error) {
	const query = `
		SELECT id, ` + entryColumns + `
		FROM gl_entries
		WHERE voucher_type = $1 AND voucher_no = $2 AND NOT is_cancelled
		ORDER BY id`
	rows, err := r.q.Query(ctx, query, voucherType, voucherNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(&e.ID,
			&e.Account, &e.PartyType, &e.Party, &e.Against, &e.CostCenter,
			&e.Debit, &e.Credit, &e.AccountCurrency, &e.DebitInAccount, &e.CreditInAccount,
			&e.VoucherType, &e.VoucherNo, &e.AgainstVoucherType, &e.AgainstVoucher,
			&e.Company, &e.PostingDate, &e.IsCancelled, &e.Remarks, &e.BatchID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// VoucherBalance sums debit minus credit on the party account for entries
// reconciling against the given voucher. This is the outstanding amount,
// held in the account currency: rows with a recorded account currency carry
// their amounts in the in-account columns, the rest in company currency.
func (r *Repository) VoucherBalance(ctx context.Context, account, partyType, party, againstVoucherType, againstVoucher string) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(CASE
			WHEN account_currency <> ''
			THEN debit_in_account_currency - credit_in_account_currency
			ELSE debit - credit
		END), 0)
		FROM gl_entries
		WHERE account = $1 AND party_type = $2 AND party = $3
		  AND against_voucher_type = $4 AND against_voucher = $5`
	var balance float64
	err := r.q.QueryRow(ctx, query, account, partyType, party, againstVoucherType, againstVoucher).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// UpdateInvoiceOutstanding persists the recomputed outstanding amount on the
// voucher row itself.
func (r *Repository) UpdateInvoiceOutstanding(ctx context.Context, voucherNo string, outstanding float64) error {
	_, err := r.q.Exec(ctx,
		`UPDATE sales_invoices SET outstanding_amount = $2, updated_at = NOW() WHERE number = $1`,
		voucherNo, outstanding)
	return err
}

// AccountCurrency looks up the currency of an account.
func (r *Repository) AccountCurrency(ctx context.Context, account string) (string, error) {
	var currency string
	err := r.q.QueryRow(ctx,
		`SELECT account_currency FROM accounts WHERE name = $1`, account).Scan(&currency)
	if err != nil {
		return "", err
	}
	return currency, nil
}
