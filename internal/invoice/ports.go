package invoice

import (
	"context"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/ledger"
	"github.com/atlas-erp/atlas-erp/internal/reconcile"
	"github.com/atlas-erp/atlas-erp/internal/stock"
)

// Account is the master data read for posting accounts.
type Account struct {
	Name        string
	AccountType string
	ReportType  string
	Currency    string
}

// CompanyDefaults are the company level accounts and policies validation and
// posting fall back to.
type CompanyDefaults struct {
	Name                   string
	Currency               string
	Precision              int
	DefaultCostCenter      string
	WriteOffAccount        string
	RoundOffAccount        string
	RoundOffCostCenter     string
	DefaultCashAccount     string
	DisposalAccount        string
	DepreciationCostCenter string
	// Document reference policies: require a sales order (resp. delivery
	// note) behind every stock item invoiced.
	SalesOrderRequired   bool
	DeliveryNoteRequired bool
}

// AccountsPort reads account and company master data.
type AccountsPort interface {
	Account(ctx context.Context, name string) (*Account, error)
	CompanyDefaults(ctx context.Context, company string) (*CompanyDefaults, error)
	// ModeOfPaymentAccount resolves the default cash/bank account of a
	// payment mode for the company.
	ModeOfPaymentAccount(ctx context.Context, mode, company string) (string, error)
}

// AncestorPort reads the state of linked sales orders and delivery notes.
type AncestorPort interface {
	OrderState(ctx context.Context, number string) (docstatus int, closed bool, err error)
	NoteDocstatus(ctx context.Context, number string) (int, error)
	LineDeliveredBySupplier(ctx context.Context, soDetail int64) (bool, error)
	// ResolveOrderLine finds the submitted order line for an item code.
	ResolveOrderLine(ctx context.Context, orderNumber, itemCode string) (int64, error)
	// ActualTaxTotals and InvoicedActualTax feed the tax ceiling check.
	ActualTaxTotals(ctx context.Context, orderNumber string) (map[string]float64, error)
	InvoicedActualTax(ctx context.Context, orderNumber, excludeInvoice string, submittedOnly bool) (map[string]float64, error)
	UpdateReservedQty(ctx context.Context, itemCode, warehouse string) error
}

// StockPort covers the inventory side effects of an invoice.
type StockPort interface {
	IsStockItem(ctx context.Context, itemCode string) (bool, error)
	UOMMustBeWhole(ctx context.Context, uom string) (bool, error)
	BinQty(ctx context.Context, itemCode, warehouse string) (actual, projected float64, err error)
	ApplyVoucher(ctx context.Context, voucherType, voucherNo string, postingDate time.Time, isReturn bool, movements []stock.Movement) error
	CancelVoucher(ctx context.Context, voucherType, voucherNo string, postingDate time.Time) error
	ExpandPackingList(ctx context.Context, lines []stock.Movement) ([]stock.PackedLine, error)
	SerialsForDNLine(ctx context.Context, dnDetail int64) ([]string, error)
	SerialInvoiceRef(ctx context.Context, serialNo string) (string, error)
	SetSerialInvoice(ctx context.Context, serialNo, invoiceNumber string) error
}

// AssetsPort reads and updates fixed assets sold through invoices.
type AssetsPort interface {
	DisposalEntries(ctx context.Context, asset string, amount float64) ([]DisposalEntry, error)
	SetDisposal(ctx context.Context, asset string, sold bool, date time.Time) error
}

// LedgerPort posts and reverses ledger batches.
type LedgerPort interface {
	Post(ctx context.Context, entries []ledger.Entry, opts ledger.PostOptions) error
	ReverseVoucher(ctx context.Context, voucherType, voucherNo string, opts ledger.PostOptions) error
	RecomputeOutstanding(ctx context.Context, ref ledger.VoucherRef) (float64, error)
}

// ReconcilePort applies status propagation descriptors.
type ReconcilePort interface {
	Apply(ctx context.Context, descriptors []reconcile.Descriptor, rows []reconcile.SourceRow) error
}

// DNBillingPort maintains delivery note billing bookkeeping.
type DNBillingPort interface {
	UpdateForDNLine(ctx context.Context, dnDetail int64) (string, error)
	UpdateBasedOnSO(ctx context.Context, soDetail int64) ([]string, error)
	UpdateBillingPercent(ctx context.Context, noteNumber string) error
}

// ProjectPort maintains project billing aggregates.
type ProjectPort interface {
	UpdateBilledAmount(ctx context.Context, projectName string) error
}

// CreditPort enforces customer credit limits.
type CreditPort interface {
	// BypassAtSalesOrder reports the customer flag that moves the credit
	// check from order time to invoice time.
	BypassAtSalesOrder(ctx context.Context, customer string) (bool, error)
	CheckCreditLimit(ctx context.Context, customer, company string, bypassAtSalesOrder bool) error
}

// WarehouseAuthPort answers whether the submitting user may post in a
// warehouse.
type WarehouseAuthPort interface {
	MayPostInWarehouse(ctx context.Context, userID int64, warehouse string, strict bool) (bool, error)
}

// Tx bundles every collaborator of a lifecycle transition. The repository
// builds one over a live database transaction; tests assemble one from mocks.
type Tx struct {
	Invoices  InvoiceStore
	Accounts  AccountsPort
	Ancestors AncestorPort
	Stock     StockPort
	Assets    AssetsPort
	Ledger    LedgerPort
	Reconcile ReconcilePort
	DNBilling DNBillingPort
	Projects  ProjectPort
	Credit    CreditPort
	Warehouse WarehouseAuthPort
}

// InvoiceStore persists the invoice document itself.
type InvoiceStore interface {
	// GetForUpdate loads the invoice with child rows, locked for the
	// duration of the transaction.
	GetForUpdate(ctx context.Context, number string) (*Invoice, error)
	// Save writes header mutations and replaces child rows.
	Save(ctx context.Context, inv *Invoice) error
	SetDocstatus(ctx context.Context, number string, status Docstatus) error
	// HasActiveReturns reports whether any non-cancelled credit note
	// references the invoice.
	HasActiveReturns(ctx context.Context, number string) (bool, error)
}

// Repository is the transactional entry point of the lifecycle.
type Repository interface {
	Get(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	Create(ctx context.Context, inv *Invoice) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	Customer    string
	Company     string
	Docstatus   *Docstatus
	UnpaidOnly  bool
	FromPosting time.Time
	ToPosting   time.Time
}
