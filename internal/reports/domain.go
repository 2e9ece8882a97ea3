// Package reports builds the tabular financial reports derived from invoices
// and the general ledger: customer statements, outstanding invoices by date,
// and profit and loss broken down by cost center.
package reports

import "time"

// Table is the generic report shape: ordered column labels plus value rows.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// StatementFilter narrows the customer statement.
type StatementFilter struct {
	Company    string
	Customer   string
	From       time.Time
	To         time.Time
	UnpaidOnly bool
}

// StatementRow is one invoice on a customer statement.
type StatementRow struct {
	PostingDate time.Time `json:"posting_date"`
	Number      string    `json:"number"`
	Customer    string    `json:"customer"`
	GrandTotal  float64   `json:"grand_total"`
	Outstanding float64   `json:"outstanding_amount"`
	DueDate     time.Time `json:"due_date"`
}

// OutstandingFilter narrows the outstanding invoices report.
type OutstandingFilter struct {
	Company string
	AsOf    time.Time
}

// OutstandingRow is one open invoice with its ledger derived payment state.
type OutstandingRow struct {
	Number      string    `json:"number"`
	Customer    string    `json:"customer"`
	PostingDate time.Time `json:"posting_date"`
	GrandTotal  float64   `json:"grand_total"`
	Paid        float64   `json:"paid"`
	Outstanding float64   `json:"outstanding"`
}

// Period is one reporting interval of the profit and loss breakdown.
type Period struct {
	Label string    `json:"label"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// PLFilter narrows the profit and loss by cost center report.
type PLFilter struct {
	Company string
	From    time.Time
	To      time.Time
}

// PLRow is the movement of one account and cost center across the periods.
type PLRow struct {
	Account    string    `json:"account"`
	CostCenter string    `json:"cost_center"`
	ReportType string    `json:"-"`
	Amounts    []float64 `json:"amounts"`
	Total      float64   `json:"total"`
}
