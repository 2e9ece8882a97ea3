package ledger

import "github.com/atlas-erp/atlas-erp/internal/shared"

type mergeKey struct {
	Account         string
	CostCenter      string
	PartyType       string
	Party           string
	AccountCurrency string
}

// MergeSimilar coalesces entries sharing the same account key by summing their
// debit and credit amounts, preserving first-seen order. Rows that net to zero
// on both sides after merging are dropped.
func MergeSimilar(entries []Entry) []Entry {
	merged := make([]Entry, 0, len(entries))
	index := make(map[mergeKey]int, len(entries))

	for _, e := range entries {
		key := mergeKey{
			Account:         e.Account,
			CostCenter:      e.CostCenter,
			PartyType:       e.PartyType,
			Party:           e.Party,
			AccountCurrency: e.AccountCurrency,
		}
		if i, ok := index[key]; ok {
			merged[i].Debit += e.Debit
			merged[i].Credit += e.Credit
			merged[i].DebitInAccount += e.DebitInAccount
			merged[i].CreditInAccount += e.CreditInAccount
			continue
		}
		index[key] = len(merged)
		merged = append(merged, e)
	}

	out := merged[:0]
	for _, e := range merged {
		if shared.AlmostEqual(e.Debit, 0, 2) && shared.AlmostEqual(e.Credit, 0, 2) {
			continue
		}
		out = append(out, e)
	}
	return out
}
