// Package invoice implements the sales invoice document: its validation
// rules, the ledger posting derived from it, point of sale payment
// allocation, and the submit/cancel lifecycle that keeps ancestor sales
// orders and delivery notes consistent.
package invoice

import (
	"errors"
	"time"
)

// Docstatus is the document lifecycle flag.
type Docstatus int

const (
	StatusDraft     Docstatus = 0
	StatusSubmitted Docstatus = 1
	StatusCancelled Docstatus = 2
)

// VoucherType identifies sales invoices in ledger entries and cross references.
const VoucherType = "Sales Invoice"

// Invoice is the sales invoice header with its child collections.
type Invoice struct {
	ID       int64
	Number   string
	Customer string
	Company  string
	Project  string

	Currency             string
	CompanyCurrency      string
	PartyAccountCurrency string
	ConversionRate       float64
	// Precision is the number of decimals of the company currency.
	Precision int

	PostingDate    time.Time
	SetPostingTime bool
	DueDate        time.Time

	DebitTo              string
	AgainstIncomeAccount string

	IsPOS         bool
	IsReturn      bool
	ReturnAgainst string
	// UpdateStock drives inventory bookkeeping on submit.
	UpdateStock bool
	// UpdateBilledAmountInSalesOrder keeps ancestor propagation active for
	// return invoices; without it a return leaves percent-billed untouched.
	UpdateBilledAmountInSalesOrder bool
	// ReceiveInBreakage marks an approved return into a breakage zone,
	// which relaxes the warehouse authorization check.
	ReceiveInBreakage bool

	NetTotal       float64
	GrandTotal     float64
	BaseGrandTotal float64
	RoundedTotal   float64

	RoundingAdjustment     float64
	BaseRoundingAdjustment float64

	WriteOffAmount     float64
	BaseWriteOffAmount float64
	WriteOffAccount    string
	WriteOffCostCenter string

	PaidAmount     float64
	BasePaidAmount float64

	ChangeAmount           float64
	BaseChangeAmount       float64
	AccountForChangeAmount string

	OutstandingAmount float64

	Docstatus Docstatus
	Remarks   string

	Items       []Item
	Taxes       []TaxRow
	Payments    []PaymentRow
	PackedItems []PackedItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is one invoice line.
type Item struct {
	ID    int64
	RowNo int

	ItemCode    string
	Description string

	Qty              float64
	UOM              string
	StockUOM         string
	StockQty         float64
	ConversionFactor float64

	Rate          float64
	Amount        float64
	NetAmount     float64
	BaseNetAmount float64

	Warehouse     string
	IncomeAccount string
	CostCenter    string

	IsFixedAsset bool
	Asset        string

	// Back references to ancestor documents; weak links used for lookup,
	// never ownership.
	SalesOrder   string
	SODetail     int64
	DeliveryNote string
	DNDetail     int64

	SerialNos []string
	ActualQty float64
}

// Charge types on tax rows.
const (
	ChargeTypeActual     = "Actual"
	ChargeTypeOnNetTotal = "On Net Total"
)

// TaxRow is one tax or charge line.
type TaxRow struct {
	ID    int64
	RowNo int

	ChargeType  string
	AccountHead string
	Description string
	Rate        float64

	TaxAmount              float64
	TaxAmountAfterDiscount float64
	// Company currency amount after invoice level discount.
	BaseTaxAmountAfterDiscount float64

	CostCenter string
}

// PaymentRow is one point of sale payment mode allocation.
type PaymentRow struct {
	ID    int64
	RowNo int

	ModeOfPayment string
	Account       string

	Amount     float64
	BaseAmount float64
}

// PackedItem is a bundle component expanded from a product bundle line when
// stock is updated from the invoice.
type PackedItem struct {
	ID           int64
	ParentItem   string
	ItemCode     string
	Qty          float64
	Warehouse    string
	ActualQty    float64
	ProjectedQty float64
}

// Domain errors shared across validation and lifecycle code.
var (
	ErrNotFound        = errors.New("invoice: not found")
	ErrInvalidStatus   = errors.New("invoice: invalid lifecycle transition")
	ErrValidation      = errors.New("invoice: validation failed")
	ErrConfiguration   = errors.New("invoice: configuration missing")
	ErrConsistency     = errors.New("invoice: inconsistent with linked documents")
	ErrOverflow        = errors.New("invoice: quantity exceeds remaining amount on linked document")
	ErrCreditLimit     = errors.New("invoice: customer credit limit exceeded")
	ErrNotAuthorized   = errors.New("invoice: warehouse not permitted for user")
	ErrPaymentRequired = errors.New("invoice: at least one mode of payment is required for POS invoice")
)

// EffectiveGrandTotal prefers the rounded total when one was computed.
func (inv *Invoice) EffectiveGrandTotal() float64 {
	if inv.RoundedTotal != 0 {
		return inv.RoundedTotal
	}
	return inv.GrandTotal
}

// AgainstVoucher names the voucher ledger entries reconcile against: the
// invoice itself, or the original invoice for a return.
func (inv *Invoice) AgainstVoucher() string {
	if inv.IsReturn && inv.ReturnAgainst != "" {
		return inv.ReturnAgainst
	}
	return inv.Number
}
