package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/ledger"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

func builderConfig() BuilderConfig {
	return BuilderConfig{
		RoundOffAccount:    "Round Off - ATC",
		RoundOffCostCenter: "Main - ATC",
		DefaultCostCenter:  "Main - ATC",
		AccountCurrency: func(account string) (string, error) {
			return "USD", nil
		},
	}
}

func baseInvoice() *Invoice {
	return &Invoice{
		Number:               "SINV-000001",
		Customer:             "Acme Retail",
		Company:              "Atlas Trading Co",
		Currency:             "USD",
		CompanyCurrency:      "USD",
		PartyAccountCurrency: "USD",
		ConversionRate:       1,
		Precision:            2,
		PostingDate:          time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		DebitTo:              "Debtors - ATC",
		AgainstIncomeAccount: "Sales - ATC",
		NetTotal:             200,
		GrandTotal:           210,
		Items: []Item{{
			RowNo:         1,
			ItemCode:      "WDG-100",
			Qty:           8,
			Rate:          25,
			NetAmount:     200,
			BaseNetAmount: 200,
			IncomeAccount: "Sales - ATC",
			CostCenter:    "Main - ATC",
		}},
		Taxes: []TaxRow{{
			RowNo:                      1,
			ChargeType:                 ChargeTypeOnNetTotal,
			AccountHead:                "VAT - ATC",
			Rate:                       5,
			TaxAmountAfterDiscount:     10,
			BaseTaxAmountAfterDiscount: 10,
			CostCenter:                 "Main - ATC",
		}},
	}
}

func assertBalanced(t *testing.T, entries []ledger.Entry) {
	t.Helper()
	var debit, credit float64
	for _, e := range entries {
		debit += e.Debit
		credit += e.Credit
	}
	assert.InDelta(t, 0, shared.Round(debit-credit, 2), 1e-9, "debit %.4f credit %.4f", debit, credit)
}

func TestBuildGLEntriesPlainInvoice(t *testing.T) {
	inv := baseInvoice()

	entries, err := BuildGLEntries(inv, builderConfig())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assertBalanced(t, entries)

	customer := entries[0]
	assert.Equal(t, "Debtors - ATC", customer.Account)
	assert.Equal(t, "Customer", customer.PartyType)
	assert.Equal(t, "Acme Retail", customer.Party)
	assert.Equal(t, 210.0, customer.Debit)
	assert.Equal(t, VoucherType, customer.AgainstVoucherType)
	assert.Equal(t, "SINV-000001", customer.AgainstVoucher)

	tax := entries[1]
	assert.Equal(t, "VAT - ATC", tax.Account)
	assert.Equal(t, 10.0, tax.Credit)

	income := entries[2]
	assert.Equal(t, "Sales - ATC", income.Account)
	assert.Equal(t, 200.0, income.Credit)
}

func TestBuildGLEntriesZeroGrandTotal(t *testing.T) {
	inv := baseInvoice()
	inv.GrandTotal = 0

	entries, err := BuildGLEntries(inv, builderConfig())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBuildGLEntriesMergesIncomeLines(t *testing.T) {
	inv := baseInvoice()
	inv.Taxes = nil
	inv.GrandTotal = 300
	inv.Items = []Item{
		{RowNo: 1, ItemCode: "WDG-100", NetAmount: 120, BaseNetAmount: 120, IncomeAccount: "Sales - ATC", CostCenter: "Main - ATC"},
		{RowNo: 2, ItemCode: "GDT-200", NetAmount: 180, BaseNetAmount: 180, IncomeAccount: "Sales - ATC", CostCenter: "Main - ATC"},
	}

	entries, err := BuildGLEntries(inv, builderConfig())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assertBalanced(t, entries)
	assert.Equal(t, 300.0, entries[1].Credit)
}

func TestBuildGLEntriesPOSWithChange(t *testing.T) {
	inv := baseInvoice()
	inv.IsPOS = true
	inv.Payments = []PaymentRow{{
		RowNo: 1, ModeOfPayment: "Cash", Account: "Cash - ATC", Amount: 250, BaseAmount: 250,
	}}
	inv.PaidAmount = 250
	inv.BasePaidAmount = 250
	inv.ChangeAmount = 40
	inv.BaseChangeAmount = 40
	inv.AccountForChangeAmount = "Cash - ATC"

	entries, err := BuildGLEntries(inv, builderConfig())
	require.NoError(t, err)
	assertBalanced(t, entries)

	// Payment credits the receivable and debits the cash account; the change
	// amount debits the receivable back and credits cash.
	var receivableCredit, cashDebit, receivableDebit float64
	for _, e := range entries {
		if e.Account == "Debtors - ATC" && e.Credit > 0 {
			receivableCredit += e.Credit
		}
		if e.Account == "Debtors - ATC" && e.Debit > 0 && e.Against == "Cash - ATC" {
			receivableDebit += e.Debit
		}
		if e.Account == "Cash - ATC" && e.Debit > 0 {
			cashDebit += e.Debit
		}
	}
	assert.Equal(t, 250.0, receivableCredit)
	assert.Equal(t, 250.0, cashDebit)
	assert.Equal(t, 40.0, receivableDebit)
}

func TestBuildGLEntriesWriteOff(t *testing.T) {
	inv := baseInvoice()
	inv.WriteOffAccount = "Write Off - ATC"
	inv.WriteOffAmount = 10
	inv.BaseWriteOffAmount = 10
	inv.WriteOffCostCenter = ""

	entries, err := BuildGLEntries(inv, builderConfig())
	require.NoError(t, err)
	assertBalanced(t, entries)

	var writeOff *ledger.Entry
	for i := range entries {
		if entries[i].Account == "Write Off - ATC" {
			writeOff = &entries[i]
		}
	}
	require.NotNil(t, writeOff)
	assert.Equal(t, 10.0, writeOff.Debit)
	assert.Equal(t, "Main - ATC", writeOff.CostCenter)
}

func TestBuildGLEntriesRoundingAdjustment(t *testing.T) {
	inv := baseInvoice()
	inv.GrandTotal = 209.56
	inv.RoundedTotal = 210
	inv.RoundingAdjustment = 0.44
	inv.BaseRoundingAdjustment = 0.44
	inv.Taxes[0].TaxAmountAfterDiscount = 9.56
	inv.Taxes[0].BaseTaxAmountAfterDiscount = 9.56

	entries, err := BuildGLEntries(inv, builderConfig())
	require.NoError(t, err)
	assertBalanced(t, entries)

	last := entries[len(entries)-1]
	assert.Equal(t, "Round Off - ATC", last.Account)
	assert.Equal(t, 0.44, last.Credit)

	// The customer entry carries the rounded total.
	assert.Equal(t, 210.0, entries[0].Debit)
}

func TestBuildGLEntriesForeignCurrency(t *testing.T) {
	inv := baseInvoice()
	inv.Currency = "EUR"
	inv.PartyAccountCurrency = "EUR"
	inv.ConversionRate = 1.1
	inv.Items[0].NetAmount = 200
	inv.Items[0].BaseNetAmount = 220
	inv.Taxes[0].TaxAmountAfterDiscount = 10
	inv.Taxes[0].BaseTaxAmountAfterDiscount = 11
	inv.NetTotal = 200
	inv.GrandTotal = 210

	entries, err := BuildGLEntries(inv, builderConfig())
	require.NoError(t, err)
	assertBalanced(t, entries)

	customer := entries[0]
	assert.Equal(t, 231.0, customer.Debit)
	// The receivable account is denominated in EUR, so the account currency
	// leg carries the document amount.
	assert.Equal(t, 210.0, customer.DebitInAccount)
}

func TestBuildGLEntriesReturnPostsAgainstOriginal(t *testing.T) {
	inv := baseInvoice()
	inv.IsReturn = true
	inv.ReturnAgainst = "SINV-000900"
	inv.GrandTotal = -210
	inv.NetTotal = -200
	inv.Items[0].NetAmount = -200
	inv.Items[0].BaseNetAmount = -200
	inv.Taxes[0].TaxAmountAfterDiscount = -10
	inv.Taxes[0].BaseTaxAmountAfterDiscount = -10

	entries, err := BuildGLEntries(inv, builderConfig())
	require.NoError(t, err)
	assertBalanced(t, entries)
	assert.Equal(t, "SINV-000900", entries[0].AgainstVoucher)
	assert.Equal(t, -210.0, entries[0].Debit)
}

func TestBuildGLEntriesAssetDisposal(t *testing.T) {
	inv := baseInvoice()
	inv.Taxes = nil
	inv.GrandTotal = 5000
	inv.Items = []Item{{
		RowNo:         1,
		ItemCode:      "TRUCK-01",
		IsFixedAsset:  true,
		Asset:         "AST-0007",
		NetAmount:     5000,
		BaseNetAmount: 5000,
		IncomeAccount: "Gain/Loss on Asset Disposal - ATC",
	}}

	cfg := builderConfig()
	cfg.AssetDisposal = func(asset string, amount float64) ([]DisposalEntry, error) {
		// Gross cost 8000, accumulated depreciation 3500: selling at 5000
		// books a 500 gain.
		return []DisposalEntry{
			{Account: "Fixed Assets - ATC", Credit: 8000},
			{Account: "Accumulated Depreciation - ATC", Debit: 3500},
			{Account: "Gain/Loss on Asset Disposal - ATC", Credit: 500, CostCenter: "Depreciation - ATC"},
		}, nil
	}

	entries, err := BuildGLEntries(inv, cfg)
	require.NoError(t, err)
	assertBalanced(t, entries)

	var assetCredit, depDebit float64
	for _, e := range entries {
		switch e.Account {
		case "Fixed Assets - ATC":
			assetCredit = e.Credit
		case "Accumulated Depreciation - ATC":
			depDebit = e.Debit
		}
	}
	assert.Equal(t, 8000.0, assetCredit)
	assert.Equal(t, 3500.0, depDebit)
}

func TestBuildGLEntriesAssetDisposalRequiresConfig(t *testing.T) {
	inv := baseInvoice()
	inv.Items[0].IsFixedAsset = true
	inv.Items[0].Asset = "AST-0007"

	cfg := builderConfig()
	cfg.AssetDisposal = nil

	_, err := BuildGLEntries(inv, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}
