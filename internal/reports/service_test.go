package reports

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyPeriodsSplitsCalendarMonths(t *testing.T) {
	periods := MonthlyPeriods(day(2026, time.January, 1), day(2026, time.March, 31))
	require.Len(t, periods, 3)

	assert.Equal(t, "Jan 2026", periods[0].Label)
	assert.Equal(t, day(2026, time.January, 1), periods[0].From)
	assert.Equal(t, day(2026, time.January, 31), periods[0].To)

	assert.Equal(t, "Feb 2026", periods[1].Label)
	assert.Equal(t, day(2026, time.February, 28), periods[1].To)

	assert.Equal(t, "Mar 2026", periods[2].Label)
	assert.Equal(t, day(2026, time.March, 31), periods[2].To)
}

func TestMonthlyPeriodsClampsPartialMonths(t *testing.T) {
	periods := MonthlyPeriods(day(2026, time.January, 15), day(2026, time.February, 10))
	require.Len(t, periods, 2)

	assert.Equal(t, day(2026, time.January, 15), periods[0].From)
	assert.Equal(t, day(2026, time.January, 31), periods[0].To)
	assert.Equal(t, day(2026, time.February, 1), periods[1].From)
	assert.Equal(t, day(2026, time.February, 10), periods[1].To)
}

func TestMonthlyPeriodsSingleDay(t *testing.T) {
	periods := MonthlyPeriods(day(2026, time.June, 5), day(2026, time.June, 5))
	require.Len(t, periods, 1)
	assert.Equal(t, day(2026, time.June, 5), periods[0].From)
	assert.Equal(t, day(2026, time.June, 5), periods[0].To)
}

func TestMonthlyPeriodsEmptyRange(t *testing.T) {
	periods := MonthlyPeriods(day(2026, time.June, 5), day(2026, time.May, 1))
	assert.Empty(t, periods)
}

func TestWriteStatementCSV(t *testing.T) {
	rows := []StatementRow{
		{
			PostingDate: day(2026, time.January, 10),
			Number:      "SINV-000001",
			Customer:    "Acme Retail",
			GrandTotal:  1250.5,
			Outstanding: 250.5,
			DueDate:     day(2026, time.February, 9),
		},
		{
			PostingDate: day(2026, time.January, 12),
			Number:      "SINV-000002",
			Customer:    "Acme Retail",
			GrandTotal:  99,
			Outstanding: 0,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatementCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Posting Date,Invoice,Customer,Grand Total,Outstanding,Due Date", lines[0])
	assert.Contains(t, lines[1], "SINV-000001")
	assert.Contains(t, lines[1], "1,250.50")
	assert.Contains(t, lines[1], "2026-02-09")
	// A zero due date renders as an empty column.
	assert.True(t, strings.HasSuffix(lines[2], ","))
}

func TestWritePLCSVOneColumnPerPeriod(t *testing.T) {
	periods := []Period{{Label: "Jan 2026"}, {Label: "Feb 2026"}}
	rows := []PLRow{
		{Account: "Sales - ATC", CostCenter: "Main - ATC", Amounts: []float64{1000, 500}, Total: 1500},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePLCSV(&buf, periods, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Account,Cost Center,Jan 2026,Feb 2026,Total", lines[0])
	assert.Equal(t, "Sales - ATC,Main - ATC,"+`"1,000.00"`+",500.00,"+`"1,500.00"`, lines[1])
}
