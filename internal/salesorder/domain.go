// Package salesorder holds the sales order substrate invoices reconcile
// against. Invoices only read orders and write back billing/delivery
// bookkeeping columns; the order itself is owned elsewhere.
package salesorder

import "time"

// Docstatus mirrors the document lifecycle flag.
type Docstatus int

const (
	StatusDraft     Docstatus = 0
	StatusSubmitted Docstatus = 1
	StatusCancelled Docstatus = 2
)

// SalesOrder header.
type SalesOrder struct {
	ID        int64
	Number    string
	Customer  string
	Company   string
	Project   string
	Currency  string
	Docstatus Docstatus
	// Closed orders refuse further invoicing and delivery.
	IsClosed bool

	GrandTotal float64

	PerBilled      float64
	PerDelivered   float64
	BillingStatus  string
	DeliveryStatus string

	Lines []Line
	Taxes []TaxRow

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is one ordered item with its billing/delivery bookkeeping.
type Line struct {
	ID           int64
	SalesOrderID int64
	RowNo        int

	ItemCode         string
	Qty              float64
	UOM              string
	ConversionFactor float64
	Rate             float64
	Amount           float64
	Warehouse        string

	BilledAmount float64
	DeliveredQty float64
	ReturnedQty  float64

	DeliveredBySupplier bool
}

// TaxRow is one tax line on the order; Actual rows cap how much tax sibling
// invoices may book in total.
type TaxRow struct {
	ID          int64
	AccountHead string
	ChargeType  string
	TaxAmount   float64
}
