// Package deliverynote holds the delivery note substrate: invoices push
// billed amounts back onto delivery note lines, directly when the invoice
// line references one, or allocated through the shared sales order line when
// it does not.
package deliverynote

import "time"

// Docstatus mirrors the document lifecycle flag.
type Docstatus int

const (
	StatusDraft     Docstatus = 0
	StatusSubmitted Docstatus = 1
	StatusCancelled Docstatus = 2
)

// DeliveryNote header.
type DeliveryNote struct {
	ID        int64
	Number    string
	Customer  string
	Company   string
	Project   string
	Currency  string
	Docstatus Docstatus

	PerBilled     float64
	BillingStatus string

	Lines []Line

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line is one delivered item.
type Line struct {
	ID             int64
	DeliveryNoteID int64
	RowNo          int

	ItemCode         string
	Qty              float64
	UOM              string
	ConversionFactor float64
	Rate             float64
	Amount           float64
	Warehouse        string

	SalesOrder string
	SODetail   int64

	SerialNos    []string
	BilledAmount float64
}
