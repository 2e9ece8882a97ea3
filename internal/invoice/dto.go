package invoice

import "time"

// CreateInvoiceRequest is the draft creation payload.
type CreateInvoiceRequest struct {
	Customer string `json:"customer" validate:"required"`
	Company  string `json:"company" validate:"required"`
	Project  string `json:"project"`

	Currency       string  `json:"currency"`
	ConversionRate float64 `json:"conversion_rate" validate:"gte=0"`

	PostingDate    string `json:"posting_date"`
	SetPostingTime bool   `json:"set_posting_time"`
	DueDate        string `json:"due_date"`

	DebitTo string `json:"debit_to" validate:"required"`

	IsPOS                          bool   `json:"is_pos"`
	IsReturn                       bool   `json:"is_return"`
	ReturnAgainst                  string `json:"return_against" validate:"required_if=IsReturn true"`
	UpdateStock                    bool   `json:"update_stock"`
	UpdateBilledAmountInSalesOrder bool   `json:"update_billed_amount_in_sales_order"`
	ReceiveInBreakage              bool   `json:"receive_in_breakage"`

	WriteOffAmount         float64 `json:"write_off_amount"`
	WriteOffAccount        string  `json:"write_off_account"`
	ChangeAmount           float64 `json:"change_amount"`
	AccountForChangeAmount string  `json:"account_for_change_amount"`

	Remarks string `json:"remarks"`

	Items    []ItemRequest    `json:"items" validate:"required,min=1,dive"`
	Taxes    []TaxRequest     `json:"taxes" validate:"dive"`
	Payments []PaymentRequest `json:"payments" validate:"dive"`
}

// ItemRequest is one requested invoice line.
type ItemRequest struct {
	ItemCode    string `json:"item_code" validate:"required"`
	Description string `json:"description"`

	Qty              float64 `json:"qty"`
	UOM              string  `json:"uom" validate:"required"`
	ConversionFactor float64 `json:"conversion_factor"`
	Rate             float64 `json:"rate"`

	Warehouse     string `json:"warehouse"`
	IncomeAccount string `json:"income_account"`
	CostCenter    string `json:"cost_center"`

	IsFixedAsset bool   `json:"is_fixed_asset"`
	Asset        string `json:"asset" validate:"required_if=IsFixedAsset true"`

	SalesOrder   string `json:"sales_order"`
	SODetail     int64  `json:"so_detail"`
	DeliveryNote string `json:"delivery_note"`
	DNDetail     int64  `json:"dn_detail"`

	SerialNos []string `json:"serial_nos"`
}

// TaxRequest is one requested tax or charge row.
type TaxRequest struct {
	ChargeType  string  `json:"charge_type" validate:"required,oneof=Actual 'On Net Total'"`
	AccountHead string  `json:"account_head" validate:"required"`
	Description string  `json:"description"`
	Rate        float64 `json:"rate"`
	TaxAmount   float64 `json:"tax_amount"`
	CostCenter  string  `json:"cost_center"`
}

// PaymentRequest is one requested mode of payment row.
type PaymentRequest struct {
	ModeOfPayment string  `json:"mode_of_payment" validate:"required"`
	Account       string  `json:"account"`
	Amount        float64 `json:"amount"`
}

// InvoiceResponse is the API shape of an invoice.
type InvoiceResponse struct {
	Number   string `json:"number"`
	Customer string `json:"customer"`
	Company  string `json:"company"`
	Project  string `json:"project,omitempty"`

	Currency       string  `json:"currency"`
	ConversionRate float64 `json:"conversion_rate"`

	PostingDate time.Time `json:"posting_date"`
	DueDate     time.Time `json:"due_date,omitzero"`

	IsPOS         bool   `json:"is_pos"`
	IsReturn      bool   `json:"is_return"`
	ReturnAgainst string `json:"return_against,omitempty"`
	UpdateStock   bool   `json:"update_stock"`

	NetTotal           float64 `json:"net_total"`
	GrandTotal         float64 `json:"grand_total"`
	RoundedTotal       float64 `json:"rounded_total,omitempty"`
	RoundingAdjustment float64 `json:"rounding_adjustment,omitempty"`
	WriteOffAmount     float64 `json:"write_off_amount,omitempty"`
	PaidAmount         float64 `json:"paid_amount"`
	ChangeAmount       float64 `json:"change_amount,omitempty"`
	OutstandingAmount  float64 `json:"outstanding_amount"`
	PaymentShortfall   float64 `json:"payment_shortfall,omitempty"`

	Docstatus int    `json:"docstatus"`
	Remarks   string `json:"remarks,omitempty"`

	Items    []ItemResponse    `json:"items"`
	Taxes    []TaxResponse     `json:"taxes,omitempty"`
	Payments []PaymentResponse `json:"payments,omitempty"`
}

// ItemResponse is the API shape of one line.
type ItemResponse struct {
	RowNo         int      `json:"row_no"`
	ItemCode      string   `json:"item_code"`
	Description   string   `json:"description,omitempty"`
	Qty           float64  `json:"qty"`
	UOM           string   `json:"uom"`
	Rate          float64  `json:"rate"`
	Amount        float64  `json:"amount"`
	Warehouse     string   `json:"warehouse,omitempty"`
	IncomeAccount string   `json:"income_account"`
	CostCenter    string   `json:"cost_center,omitempty"`
	SalesOrder    string   `json:"sales_order,omitempty"`
	DeliveryNote  string   `json:"delivery_note,omitempty"`
	SerialNos     []string `json:"serial_nos,omitempty"`
}

// TaxResponse is the API shape of one tax row.
type TaxResponse struct {
	RowNo       int     `json:"row_no"`
	ChargeType  string  `json:"charge_type"`
	AccountHead string  `json:"account_head"`
	Rate        float64 `json:"rate,omitempty"`
	TaxAmount   float64 `json:"tax_amount"`
}

// PaymentResponse is the API shape of one payment row.
type PaymentResponse struct {
	RowNo         int     `json:"row_no"`
	ModeOfPayment string  `json:"mode_of_payment"`
	Account       string  `json:"account,omitempty"`
	Amount        float64 `json:"amount"`
}

func toResponse(inv *Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		Number:             inv.Number,
		Customer:           inv.Customer,
		Company:            inv.Company,
		Project:            inv.Project,
		Currency:           inv.Currency,
		ConversionRate:     inv.ConversionRate,
		PostingDate:        inv.PostingDate,
		DueDate:            inv.DueDate,
		IsPOS:              inv.IsPOS,
		IsReturn:           inv.IsReturn,
		ReturnAgainst:      inv.ReturnAgainst,
		UpdateStock:        inv.UpdateStock,
		NetTotal:           inv.NetTotal,
		GrandTotal:         inv.GrandTotal,
		RoundedTotal:       inv.RoundedTotal,
		RoundingAdjustment: inv.RoundingAdjustment,
		WriteOffAmount:     inv.WriteOffAmount,
		PaidAmount:         inv.PaidAmount,
		ChangeAmount:       inv.ChangeAmount,
		OutstandingAmount:  inv.OutstandingAmount,
		Docstatus:          int(inv.Docstatus),
		Remarks:            inv.Remarks,
	}
	if inv.IsPOS {
		resp.PaymentShortfall = inv.PaymentShortfall()
	}
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, ItemResponse{
			RowNo:         it.RowNo,
			ItemCode:      it.ItemCode,
			Description:   it.Description,
			Qty:           it.Qty,
			UOM:           it.UOM,
			Rate:          it.Rate,
			Amount:        it.Amount,
			Warehouse:     it.Warehouse,
			IncomeAccount: it.IncomeAccount,
			CostCenter:    it.CostCenter,
			SalesOrder:    it.SalesOrder,
			DeliveryNote:  it.DeliveryNote,
			SerialNos:     it.SerialNos,
		})
	}
	for _, t := range inv.Taxes {
		resp.Taxes = append(resp.Taxes, TaxResponse{
			RowNo:       t.RowNo,
			ChargeType:  t.ChargeType,
			AccountHead: t.AccountHead,
			Rate:        t.Rate,
			TaxAmount:   t.TaxAmountAfterDiscount,
		})
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, PaymentResponse{
			RowNo:         p.RowNo,
			ModeOfPayment: p.ModeOfPayment,
			Account:       p.Account,
			Amount:        p.Amount,
		})
	}
	return resp
}
