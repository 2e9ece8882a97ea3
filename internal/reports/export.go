package reports

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var moneyPrinter = message.NewPrinter(language.English)

func formatMoney(v float64) string {
	return moneyPrinter.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// WriteStatementCSV serialises a customer statement.
func WriteStatementCSV(w io.Writer, rows []StatementRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Posting Date", "Invoice", "Customer", "Grand Total", "Outstanding", "Due Date"}); err != nil {
		return err
	}
	for _, r := range rows {
		due := ""
		if !r.DueDate.IsZero() {
			due = r.DueDate.Format("2006-01-02")
		}
		if err := writer.Write([]string{
			r.PostingDate.Format("2006-01-02"),
			r.Number,
			r.Customer,
			formatMoney(r.GrandTotal),
			formatMoney(r.Outstanding),
			due,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteOutstandingCSV serialises the outstanding invoices report.
func WriteOutstandingCSV(w io.Writer, rows []OutstandingRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Invoice", "Customer", "Posting Date", "Grand Total", "Paid", "Outstanding"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := writer.Write([]string{
			r.Number,
			r.Customer,
			r.PostingDate.Format("2006-01-02"),
			formatMoney(r.GrandTotal),
			formatMoney(r.Paid),
			formatMoney(r.Outstanding),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePLCSV serialises the profit and loss by cost center breakdown, one
// amount column per period plus a total.
func WritePLCSV(w io.Writer, periods []Period, rows []PLRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Account", "Cost Center"}
	for _, p := range periods {
		header = append(header, p.Label)
	}
	header = append(header, "Total")
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.Account, r.CostCenter}
		for _, amount := range r.Amounts {
			record = append(record, formatMoney(amount))
		}
		record = append(record, formatMoney(r.Total))
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
