package invoice

import "github.com/atlas-erp/atlas-erp/internal/reconcile"

// statusDescriptors returns the propagation rules this invoice applies to its
// ancestor sales orders. Billing always propagates; delivery and return
// bookkeeping only when the invoice moves stock itself. A return invoice not
// flagged to update billed amounts suppresses the whole list, leaving
// percent-billed untouched.
func statusDescriptors(inv *Invoice) []reconcile.Descriptor {
	if inv.IsReturn && !inv.UpdateBilledAmountInSalesOrder {
		return nil
	}

	descriptors := []reconcile.Descriptor{{
		Keyword:        reconcile.KeywordBilled,
		Source:         reconcile.SourceAmount,
		JoinField:      "so_detail",
		TargetTable:    "sales_order_items",
		TargetField:    "billed_amount",
		TargetRefField: "amount",
		ParentTable:    "sales_orders",
		PercentField:   "per_billed",
		StatusField:    "billing_status",
		Overflow:       reconcile.OverflowBilling,
	}}

	if inv.UpdateStock {
		descriptors = append(descriptors,
			reconcile.Descriptor{
				Keyword:            reconcile.KeywordDelivered,
				Source:             reconcile.SourceQty,
				JoinField:          "so_detail",
				TargetTable:        "sales_order_items",
				TargetField:        "delivered_qty",
				TargetRefField:     "qty",
				ParentTable:        "sales_orders",
				PercentField:       "per_delivered",
				StatusField:        "delivery_status",
				Overflow:           reconcile.OverflowDelivery,
				SecondSourceTable:  "delivery_note_items",
				SecondJoinField:    "so_detail",
				RequireUpdateStock: true,
			},
			reconcile.Descriptor{
				Keyword:            reconcile.KeywordReturned,
				Source:             reconcile.SourceNegatedQty,
				JoinField:          "so_detail",
				TargetTable:        "sales_order_items",
				TargetField:        "returned_qty",
				RequireUpdateStock: true,
				RequireReturn:      true,
			},
		)
	}
	return descriptors
}

// sourceRows adapts invoice items for the reconciler.
func sourceRows(inv *Invoice) []reconcile.SourceRow {
	rows := make([]reconcile.SourceRow, 0, len(inv.Items))
	for _, item := range inv.Items {
		rows = append(rows, reconcile.SourceRow{RowNo: item.RowNo, JoinKey: item.SODetail})
	}
	return rows
}
