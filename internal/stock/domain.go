// Package stock provides the inventory bookkeeping an update-stock invoice
// drives: stock ledger entries, per warehouse bins, the serial number
// registry and packing list expansion for bundle items.
package stock

import "time"

// LedgerEntry is one immutable stock movement row.
type LedgerEntry struct {
	ID          int64
	ItemCode    string
	Warehouse   string
	PostingDate time.Time

	// ActualQty is the signed movement; an outgoing sale is negative.
	ActualQty float64

	VoucherType string
	VoucherNo   string
	IsCancelled bool
}

// Bin is the per item, per warehouse quantity summary.
type Bin struct {
	ID           int64
	ItemCode     string
	Warehouse    string
	ActualQty    float64
	ReservedQty  float64
	ProjectedQty float64
}

// SerialNo is one serialized unit with its document back references.
type SerialNo struct {
	ID           int64
	SerialNo     string
	ItemCode     string
	Warehouse    string
	DeliveryNote string
	SalesInvoice string
}

// BundleComponent is one child of a product bundle definition.
type BundleComponent struct {
	ParentItem string
	ItemCode   string
	Qty        float64
	Warehouse  string
}
