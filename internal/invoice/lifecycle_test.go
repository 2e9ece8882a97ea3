package invoice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-erp/atlas-erp/internal/ledger"
	"github.com/atlas-erp/atlas-erp/internal/reconcile"
	"github.com/atlas-erp/atlas-erp/internal/stock"
)

type mockInvoiceStore struct {
	invoices    map[string]*Invoice
	saves       int
	docstatuses map[string]Docstatus
	hasReturns  map[string]bool
}

func (m *mockInvoiceStore) GetForUpdate(ctx context.Context, number string) (*Invoice, error) {
	inv, ok := m.invoices[number]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (m *mockInvoiceStore) Save(ctx context.Context, inv *Invoice) error {
	m.saves++
	m.invoices[inv.Number] = inv
	return nil
}

func (m *mockInvoiceStore) SetDocstatus(ctx context.Context, number string, status Docstatus) error {
	m.docstatuses[number] = status
	return nil
}

func (m *mockInvoiceStore) HasActiveReturns(ctx context.Context, number string) (bool, error) {
	return m.hasReturns[number], nil
}

type mockAccounts struct {
	accounts map[string]*Account
	defaults *CompanyDefaults
	mop      map[string]string
}

func (m *mockAccounts) Account(ctx context.Context, name string) (*Account, error) {
	acc, ok := m.accounts[name]
	if !ok {
		return nil, ErrNotFound
	}
	return acc, nil
}

func (m *mockAccounts) CompanyDefaults(ctx context.Context, company string) (*CompanyDefaults, error) {
	return m.defaults, nil
}

func (m *mockAccounts) ModeOfPaymentAccount(ctx context.Context, mode, company string) (string, error) {
	return m.mop[mode], nil
}

type mockStock struct {
	stockItems map[string]bool
	wholeUOMs  map[string]bool
	bins       map[string][2]float64

	applied   []stock.Movement
	cancelled []string
	serials   map[string]string
	dnSerials map[int64][]string
}

func (m *mockStock) IsStockItem(ctx context.Context, itemCode string) (bool, error) {
	return m.stockItems[itemCode], nil
}

func (m *mockStock) UOMMustBeWhole(ctx context.Context, uom string) (bool, error) {
	return m.wholeUOMs[uom], nil
}

func (m *mockStock) BinQty(ctx context.Context, itemCode, warehouse string) (float64, float64, error) {
	b := m.bins[itemCode+"@"+warehouse]
	return b[0], b[1], nil
}

func (m *mockStock) ApplyVoucher(ctx context.Context, voucherType, voucherNo string, postingDate time.Time, isReturn bool, movements []stock.Movement) error {
	m.applied = append(m.applied, movements...)
	return nil
}

func (m *mockStock) CancelVoucher(ctx context.Context, voucherType, voucherNo string, postingDate time.Time) error {
	m.cancelled = append(m.cancelled, voucherNo)
	return nil
}

func (m *mockStock) ExpandPackingList(ctx context.Context, lines []stock.Movement) ([]stock.PackedLine, error) {
	return nil, nil
}

func (m *mockStock) SerialsForDNLine(ctx context.Context, dnDetail int64) ([]string, error) {
	return m.dnSerials[dnDetail], nil
}

func (m *mockStock) SerialInvoiceRef(ctx context.Context, serialNo string) (string, error) {
	return m.serials[serialNo], nil
}

func (m *mockStock) SetSerialInvoice(ctx context.Context, serialNo, invoiceNumber string) error {
	m.serials[serialNo] = invoiceNumber
	return nil
}

type mockAssets struct {
	disposals map[string]bool
}

func (m *mockAssets) DisposalEntries(ctx context.Context, asset string, amount float64) ([]DisposalEntry, error) {
	return []DisposalEntry{{Account: "Fixed Assets - ATC", Credit: amount}}, nil
}

func (m *mockAssets) SetDisposal(ctx context.Context, asset string, sold bool, date time.Time) error {
	m.disposals[asset] = sold
	return nil
}

type mockLedger struct {
	posted     [][]ledger.Entry
	postOpts   []ledger.PostOptions
	reversed   []string
	reverseErr error
	recomputed []ledger.VoucherRef
	balance    float64
}

func (m *mockLedger) Post(ctx context.Context, entries []ledger.Entry, opts ledger.PostOptions) error {
	m.posted = append(m.posted, entries)
	m.postOpts = append(m.postOpts, opts)
	return nil
}

func (m *mockLedger) ReverseVoucher(ctx context.Context, voucherType, voucherNo string, opts ledger.PostOptions) error {
	if m.reverseErr != nil {
		return m.reverseErr
	}
	m.reversed = append(m.reversed, voucherNo)
	return nil
}

func (m *mockLedger) RecomputeOutstanding(ctx context.Context, ref ledger.VoucherRef) (float64, error) {
	m.recomputed = append(m.recomputed, ref)
	return m.balance, nil
}

type mockReconcile struct {
	applied [][]reconcile.Descriptor
}

func (m *mockReconcile) Apply(ctx context.Context, descriptors []reconcile.Descriptor, rows []reconcile.SourceRow) error {
	m.applied = append(m.applied, descriptors)
	return nil
}

type mockDNBilling struct {
	dnLineCalls []int64
	soLineCalls []int64
	percents    []string
}

func (m *mockDNBilling) UpdateForDNLine(ctx context.Context, dnDetail int64) (string, error) {
	m.dnLineCalls = append(m.dnLineCalls, dnDetail)
	return "DN-000001", nil
}

func (m *mockDNBilling) UpdateBasedOnSO(ctx context.Context, soDetail int64) ([]string, error) {
	m.soLineCalls = append(m.soLineCalls, soDetail)
	return []string{"DN-000001"}, nil
}

func (m *mockDNBilling) UpdateBillingPercent(ctx context.Context, noteNumber string) error {
	m.percents = append(m.percents, noteNumber)
	return nil
}

type mockProjects struct {
	updated []string
}

func (m *mockProjects) UpdateBilledAmount(ctx context.Context, projectName string) error {
	m.updated = append(m.updated, projectName)
	return nil
}

type mockCredit struct {
	bypass     bool
	checked    bool
	checkedArg bool
	checkErr   error
}

func (m *mockCredit) BypassAtSalesOrder(ctx context.Context, customer string) (bool, error) {
	return m.bypass, nil
}

func (m *mockCredit) CheckCreditLimit(ctx context.Context, customer, company string, bypassAtSalesOrder bool) error {
	m.checked = true
	m.checkedArg = bypassAtSalesOrder
	return m.checkErr
}

type mockWarehouseAuth struct {
	granted map[string]bool
	strict  []bool
}

func (m *mockWarehouseAuth) MayPostInWarehouse(ctx context.Context, userID int64, warehouse string, strict bool) (bool, error) {
	m.strict = append(m.strict, strict)
	return m.granted[warehouse], nil
}

// mockRepo satisfies Repository over an in-memory Tx bundle.
type mockRepo struct {
	tx *Tx
}

func (m *mockRepo) Get(ctx context.Context, number string) (*Invoice, error) {
	return m.tx.Invoices.GetForUpdate(ctx, number)
}

func (m *mockRepo) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return nil, nil
}

func (m *mockRepo) Create(ctx context.Context, inv *Invoice) (*Invoice, error) {
	if inv.Number == "" {
		inv.Number = "SINV-000100"
	}
	if store, ok := m.tx.Invoices.(*mockInvoiceStore); ok {
		store.invoices[inv.Number] = inv
	}
	return inv, nil
}

func (m *mockRepo) Update(ctx context.Context, inv *Invoice) error {
	return nil
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return fn(ctx, m.tx)
}

type lifecycleFixture struct {
	store     *mockInvoiceStore
	accounts  *mockAccounts
	ancestors *mockAncestors
	stock     *mockStock
	assets    *mockAssets
	ledger    *mockLedger
	reconcile *mockReconcile
	billing   *mockDNBilling
	projects  *mockProjects
	credit    *mockCredit
	warehouse *mockWarehouseAuth
	lifecycle *Lifecycle
}

func newLifecycleFixture() *lifecycleFixture {
	f := &lifecycleFixture{
		store: &mockInvoiceStore{
			invoices:    make(map[string]*Invoice),
			docstatuses: make(map[string]Docstatus),
			hasReturns:  make(map[string]bool),
		},
		accounts: &mockAccounts{
			accounts: map[string]*Account{
				"Debtors - ATC": {Name: "Debtors - ATC", AccountType: "Receivable", ReportType: "Balance Sheet", Currency: "USD"},
				"Sales - ATC":   {Name: "Sales - ATC", AccountType: "Income Account", ReportType: "Profit and Loss", Currency: "USD"},
				"Cash - ATC":    {Name: "Cash - ATC", AccountType: "Cash", ReportType: "Balance Sheet", Currency: "USD"},
			},
			defaults: &CompanyDefaults{
				Name:               "Atlas Trading Co",
				Currency:           "USD",
				Precision:          2,
				DefaultCostCenter:  "Main - ATC",
				WriteOffAccount:    "Write Off - ATC",
				RoundOffAccount:    "Round Off - ATC",
				RoundOffCostCenter: "Main - ATC",
				DefaultCashAccount: "Cash - ATC",
			},
			mop: map[string]string{"Cash": "Cash - ATC"},
		},
		ancestors: &mockAncestors{
			orderDocstatus: map[string]int{"SO-000001": 1},
			orderClosed:    map[string]bool{},
			noteDocstatus:  map[string]int{"DN-000001": 1},
			supplierLines:  map[int64]bool{},
		},
		stock: &mockStock{
			stockItems: map[string]bool{"WDG-100": true},
			wholeUOMs:  map[string]bool{"Nos": true},
			bins:       map[string][2]float64{"WDG-100@Main Depot - Normal": {100, 100}},
			serials:    make(map[string]string),
			dnSerials:  make(map[int64][]string),
		},
		assets:    &mockAssets{disposals: make(map[string]bool)},
		ledger:    &mockLedger{},
		reconcile: &mockReconcile{},
		billing:   &mockDNBilling{},
		projects:  &mockProjects{},
		credit:    &mockCredit{},
		warehouse: &mockWarehouseAuth{granted: map[string]bool{"Main Depot - Normal": true}},
	}
	tx := &Tx{
		Invoices:  f.store,
		Accounts:  f.accounts,
		Ancestors: f.ancestors,
		Stock:     f.stock,
		Assets:    f.assets,
		Ledger:    f.ledger,
		Reconcile: f.reconcile,
		DNBilling: f.billing,
		Projects:  f.projects,
		Credit:    f.credit,
		Warehouse: f.warehouse,
	}
	f.lifecycle = NewLifecycle(&mockRepo{tx: tx}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func draftInvoice() *Invoice {
	return &Invoice{
		Number:    "SINV-000001",
		Customer:  "Acme Retail",
		Company:   "Atlas Trading Co",
		Currency:  "USD",
		Precision: 2,
		DebitTo:   "Debtors - ATC",
		Docstatus: StatusDraft,
		Items: []Item{{
			RowNo:         1,
			ItemCode:      "WDG-100",
			Qty:           4,
			UOM:           "Nos",
			Rate:          25,
			Warehouse:     "Main Depot - Normal",
			IncomeAccount: "Sales - ATC",
			SalesOrder:    "SO-000001",
			SODetail:      10,
		}},
	}
}

func TestSubmitPostsBalancedLedgerAndPropagates(t *testing.T) {
	f := newLifecycleFixture()
	f.store.invoices["SINV-000001"] = draftInvoice()

	out, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)

	assert.Equal(t, StatusSubmitted, out.Docstatus)
	assert.Equal(t, 100.0, out.GrandTotal)

	require.Len(t, f.ledger.posted, 1)
	var debit, credit float64
	for _, e := range f.ledger.posted[0] {
		debit += e.Debit
		credit += e.Credit
	}
	assert.Equal(t, debit, credit)
	assert.True(t, f.ledger.postOpts[0].UpdateOutstanding)

	require.Len(t, f.reconcile.applied, 1)
	require.Len(t, f.reconcile.applied[0], 1)
	assert.Equal(t, "billed_amount", f.reconcile.applied[0][0].TargetField)

	// The order backed line refreshes its bin reservation.
	assert.Equal(t, []string{"WDG-100@Main Depot - Normal"}, f.ancestors.reservedCalls)

	// All lines are order backed and the customer does not defer the check.
	assert.False(t, f.credit.checked)
}

func TestSubmitRejectsNonDraft(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.Docstatus = StatusSubmitted
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSubmitRequiresPOSPayments(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.IsPOS = true
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPaymentRequired)
}

func TestSubmitPOSDefersOutstandingRecompute(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.IsPOS = true
	inv.Payments = []PaymentRow{{RowNo: 1, ModeOfPayment: "Cash", Amount: 100}}
	f.store.invoices["SINV-000001"] = inv

	out, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)

	assert.Equal(t, "Cash - ATC", out.Payments[0].Account)
	require.Len(t, f.ledger.postOpts, 1)
	assert.False(t, f.ledger.postOpts[0].UpdateOutstanding)
	require.Len(t, f.ledger.recomputed, 1)
	assert.Equal(t, "SINV-000001", f.ledger.recomputed[0].VoucherNo)
	assert.Equal(t, 0.0, out.OutstandingAmount)
}

func TestSubmitStoresTrailDerivedOutstanding(t *testing.T) {
	f := newLifecycleFixture()
	f.ledger.balance = 12.5
	inv := draftInvoice()
	inv.IsPOS = true
	inv.Payments = []PaymentRow{{RowNo: 1, ModeOfPayment: "Cash", Amount: 100}}
	f.store.invoices["SINV-000001"] = inv

	out, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)

	// The recomputed ledger balance wins over the header arithmetic, and
	// the final save carries it.
	assert.Equal(t, 12.5, out.OutstandingAmount)
	assert.Equal(t, 12.5, f.store.invoices["SINV-000001"].OutstandingAmount)
}

func TestSubmitReturnKeepsOwnOutstanding(t *testing.T) {
	f := newLifecycleFixture()
	f.ledger.balance = 77
	inv := draftInvoice()
	inv.IsPOS = true
	inv.IsReturn = true
	inv.ReturnAgainst = "SINV-000900"
	inv.Items[0].Qty = -4
	inv.Payments = []PaymentRow{{RowNo: 1, ModeOfPayment: "Cash", Amount: -100}}
	f.store.invoices["SINV-000001"] = inv

	out, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)

	// The recompute targets the returned-against invoice, so the balance
	// it yields never lands on the return itself.
	require.Len(t, f.ledger.recomputed, 1)
	assert.Equal(t, "SINV-000900", f.ledger.recomputed[0].VoucherNo)
	assert.Equal(t, 0.0, out.OutstandingAmount)
}

func TestSubmitChecksWarehouseAccessWhenUpdatingStock(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.UpdateStock = true
	inv.Items[0].Warehouse = "North Depot - Normal"
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAuthorized)
	// An ordinary sale goes through the substitution policy, so a granted
	// Normal zone can post into the sibling Breakage zone.
	require.NotEmpty(t, f.warehouse.strict)
	assert.False(t, f.warehouse.strict[0])
}

func TestSubmitRequiresExactGrantForUnapprovedReturn(t *testing.T) {
	f := newLifecycleFixture()
	f.warehouse.granted["Main Depot - Breakage"] = true
	inv := draftInvoice()
	inv.UpdateStock = true
	inv.IsReturn = true
	inv.ReturnAgainst = "SINV-000900"
	inv.Items[0].Qty = -4
	inv.Items[0].Warehouse = "Main Depot - Breakage"
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)
	require.NotEmpty(t, f.warehouse.strict)
	assert.True(t, f.warehouse.strict[0])
}

func TestSubmitRelaxesWarehouseCheckForBreakageReturns(t *testing.T) {
	f := newLifecycleFixture()
	f.warehouse.granted["Main Depot - Breakage"] = true
	inv := draftInvoice()
	inv.UpdateStock = true
	inv.IsReturn = true
	inv.ReceiveInBreakage = true
	inv.ReturnAgainst = "SINV-000900"
	inv.Items[0].Qty = -4
	inv.Items[0].Warehouse = "Main Depot - Breakage"
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)
	require.NotEmpty(t, f.warehouse.strict)
	assert.False(t, f.warehouse.strict[0])
}

func TestSubmitRejectsDraftAncestorOrder(t *testing.T) {
	f := newLifecycleFixture()
	f.ancestors.orderDocstatus["SO-000001"] = 0
	f.store.invoices["SINV-000001"] = draftInvoice()

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestSubmitRejectsClosedOrder(t *testing.T) {
	f := newLifecycleFixture()
	f.ancestors.orderClosed["SO-000001"] = true
	f.store.invoices["SINV-000001"] = draftInvoice()

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConsistency)
}

func TestSubmitAppliesStockMovements(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.UpdateStock = true
	inv.Items[0].SalesOrder = ""
	inv.Items[0].SODetail = 0
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)

	require.Len(t, f.stock.applied, 1)
	assert.Equal(t, "WDG-100", f.stock.applied[0].ItemCode)
	assert.Equal(t, 4.0, f.stock.applied[0].Qty)
	// Unbacked line runs the credit check.
	assert.True(t, f.credit.checked)
	assert.False(t, f.credit.checkedArg)
}

func TestSubmitCreditCheckHonoursBypassFlag(t *testing.T) {
	f := newLifecycleFixture()
	f.credit.bypass = true
	f.store.invoices["SINV-000001"] = draftInvoice()

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)

	// Order backed lines still check when the customer deferred the credit
	// check to invoicing time.
	assert.True(t, f.credit.checked)
	assert.True(t, f.credit.checkedArg)
}

func TestSubmitRejectsOverCreditLimit(t *testing.T) {
	f := newLifecycleFixture()
	f.credit.checkErr = ErrCreditLimit
	inv := draftInvoice()
	inv.Items[0].SalesOrder = ""
	inv.Items[0].SODetail = 0
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCreditLimit)
}

func TestSubmitAttachesSerialsAndMarksAssets(t *testing.T) {
	f := newLifecycleFixture()
	f.accounts.defaults.DisposalAccount = "Gain/Loss on Asset Disposal - ATC"
	inv := draftInvoice()
	inv.Items[0].SerialNos = []string{"SN-1", "SN-2", "SN-3", "SN-4"}
	inv.Items = append(inv.Items, Item{
		RowNo:         2,
		ItemCode:      "TRUCK-01",
		Qty:           1,
		Rate:          5000,
		IsFixedAsset:  true,
		Asset:         "AST-0007",
		IncomeAccount: "Sales - ATC",
	})
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)

	assert.Equal(t, "SINV-000001", f.stock.serials["SN-1"])
	assert.Equal(t, "SINV-000001", f.stock.serials["SN-4"])
	assert.True(t, f.assets.disposals["AST-0007"])
}

func TestCancelReversesAndReleases(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.Docstatus = StatusSubmitted
	inv.GrandTotal = 100
	inv.Items[0].SerialNos = []string{"SN-1"}
	f.store.invoices["SINV-000001"] = inv
	f.stock.serials["SN-1"] = "SINV-000001"

	out, err := f.lifecycle.Cancel(context.Background(), "SINV-000001")
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, out.Docstatus)
	assert.Equal(t, StatusCancelled, f.store.docstatuses["SINV-000001"])
	assert.Equal(t, []string{"SINV-000001"}, f.ledger.reversed)
	assert.Equal(t, "", f.stock.serials["SN-1"])
	require.Len(t, f.reconcile.applied, 1)
}

func TestCancelBlockedByActiveReturns(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.Docstatus = StatusSubmitted
	f.store.invoices["SINV-000001"] = inv
	f.store.hasReturns["SINV-000001"] = true

	_, err := f.lifecycle.Cancel(context.Background(), "SINV-000001")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, f.ledger.reversed)
}

func TestCancelRejectsClosedOrder(t *testing.T) {
	f := newLifecycleFixture()
	f.ancestors.orderClosed["SO-000001"] = true
	inv := draftInvoice()
	inv.Docstatus = StatusSubmitted
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Cancel(context.Background(), "SINV-000001")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Empty(t, f.ledger.reversed)
	assert.Equal(t, StatusSubmitted, f.store.invoices["SINV-000001"].Docstatus)
}

func TestCancelRejectsDraft(t *testing.T) {
	f := newLifecycleFixture()
	f.store.invoices["SINV-000001"] = draftInvoice()

	_, err := f.lifecycle.Cancel(context.Background(), "SINV-000001")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCancelToleratesVoucherWithoutPosting(t *testing.T) {
	f := newLifecycleFixture()
	f.ledger.reverseErr = ledger.ErrNothingPosted
	inv := draftInvoice()
	inv.Docstatus = StatusSubmitted
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Cancel(context.Background(), "SINV-000001")
	require.NoError(t, err)
}

func TestCancelReturnReattachesSerialsToOriginal(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.Docstatus = StatusSubmitted
	inv.IsReturn = true
	inv.ReturnAgainst = "SINV-000900"
	inv.Items[0].Qty = -4
	inv.Items[0].SerialNos = []string{"SN-1"}
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Cancel(context.Background(), "SINV-000001")
	require.NoError(t, err)
	assert.Equal(t, "SINV-000900", f.stock.serials["SN-1"])
}

func TestCancelCancelsStockVoucher(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.Docstatus = StatusSubmitted
	inv.UpdateStock = true
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Cancel(context.Background(), "SINV-000001")
	require.NoError(t, err)
	assert.Equal(t, []string{"SINV-000001"}, f.stock.cancelled)
}

func TestSubmitUpdatesProjectBilling(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.Project = "PRJ-001"
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"PRJ-001"}, f.projects.updated)
}

func TestSubmitUpdatesDeliveryNoteBilling(t *testing.T) {
	f := newLifecycleFixture()
	inv := draftInvoice()
	inv.Items[0].DeliveryNote = "DN-000001"
	inv.Items[0].DNDetail = 55
	f.store.invoices["SINV-000001"] = inv

	_, err := f.lifecycle.Submit(context.Background(), "SINV-000001", 1)
	require.NoError(t, err)

	assert.Equal(t, []int64{55}, f.billing.dnLineCalls)
	assert.Equal(t, []string{"DN-000001"}, f.billing.percents)
}
