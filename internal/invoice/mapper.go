package invoice

import (
	"context"
	"fmt"

	"github.com/atlas-erp/atlas-erp/internal/deliverynote"
	"github.com/atlas-erp/atlas-erp/internal/platform/db"
	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// StockEntryDraft is a material movement draft derived from an invoice, used
// to receive returned goods or issue sold ones through the stock module.
type StockEntryDraft struct {
	Purpose     string
	Company     string
	FromInvoice string
	Lines       []StockEntryLine
}

// StockEntryLine is one draft movement row.
type StockEntryLine struct {
	ItemCode  string
	Qty       float64
	UOM       string
	Warehouse string
	SerialNos []string
}

// Mapper derives follow-on document drafts from submitted invoices.
type Mapper struct {
	q db.Querier
}

// NewMapper builds a mapper over a pool or transaction.
func NewMapper(q db.Querier) *Mapper {
	return &Mapper{q: q}
}

// MakeDeliveryNote turns a submitted invoice into a delivery note draft.
// Line quantities are what the invoice billed minus what earlier notes
// already delivered against the same order line; fully delivered lines drop
// out. An unpaid invoice cannot produce a note, payment comes first.
func (m *Mapper) MakeDeliveryNote(ctx context.Context, inv *Invoice) (*deliverynote.DeliveryNote, error) {
	if inv.Docstatus != StatusSubmitted {
		return nil, fmt.Errorf("%w: only submitted invoices produce delivery notes", ErrInvalidStatus)
	}
	if inv.IsReturn {
		return nil, fmt.Errorf("%w: returns do not produce delivery notes", ErrValidation)
	}
	if inv.OutstandingAmount > shared.RoundingEpsilon(inv.Precision) {
		return nil, fmt.Errorf("%w: invoice %s has %.2f outstanding", ErrPaymentRequired, inv.Number, inv.OutstandingAmount)
	}

	draft := &deliverynote.DeliveryNote{
		Customer: inv.Customer,
		Company:  inv.Company,
		Project:  inv.Project,
		Currency: inv.Currency,
	}
	rowNo := 0
	for _, item := range inv.Items {
		delivered, err := m.deliveredQty(ctx, item.SODetail)
		if err != nil {
			return nil, err
		}
		pending := item.Qty - delivered
		if pending <= 0 {
			continue
		}
		rowNo++
		draft.Lines = append(draft.Lines, deliverynote.Line{
			RowNo:            rowNo,
			ItemCode:         item.ItemCode,
			Qty:              pending,
			UOM:              item.UOM,
			ConversionFactor: item.ConversionFactor,
			Rate:             item.Rate,
			Amount:           shared.Round(pending*item.Rate, inv.Precision),
			Warehouse:        item.Warehouse,
			SalesOrder:       item.SalesOrder,
			SODetail:         item.SODetail,
			SerialNos:        item.SerialNos,
		})
	}
	if len(draft.Lines) == 0 {
		return nil, fmt.Errorf("%w: nothing left to deliver on invoice %s", ErrValidation, inv.Number)
	}
	return draft, nil
}

// MakeStockEntry turns an invoice into a stock entry draft with absolute
// quantities; a return becomes a material receipt, a sale a material issue.
func (m *Mapper) MakeStockEntry(_ context.Context, inv *Invoice) (*StockEntryDraft, error) {
	if inv.Docstatus != StatusSubmitted {
		return nil, fmt.Errorf("%w: only submitted invoices produce stock entries", ErrInvalidStatus)
	}
	purpose := "Material Issue"
	if inv.IsReturn {
		purpose = "Material Receipt"
	}
	draft := &StockEntryDraft{
		Purpose:     purpose,
		Company:     inv.Company,
		FromInvoice: inv.Number,
	}
	for _, item := range inv.Items {
		qty := item.StockQty
		if qty < 0 {
			qty = -qty
		}
		if qty == 0 {
			continue
		}
		draft.Lines = append(draft.Lines, StockEntryLine{
			ItemCode:  item.ItemCode,
			Qty:       qty,
			UOM:       item.StockUOM,
			Warehouse: item.Warehouse,
			SerialNos: item.SerialNos,
		})
	}
	return draft, nil
}

// deliveredQty sums delivery note quantities already raised for the order
// line behind an invoice item. Lines without an order reference have nothing
// delivered against them yet.
func (m *Mapper) deliveredQty(ctx context.Context, soDetail int64) (float64, error) {
	if soDetail == 0 {
		return 0, nil
	}
	var qty float64
	err := m.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.qty), 0)
		FROM delivery_note_items l
		JOIN delivery_notes n ON n.id = l.delivery_note_id
		WHERE l.so_detail = $1 AND n.docstatus = 1`, soDetail).Scan(&qty)
	if err != nil {
		return 0, err
	}
	return qty, nil
}
