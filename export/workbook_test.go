package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/warp/loan-engine/amortization"
)

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestWriteWorkbook_FromResponseJSON(t *testing.T) {
	// GIVEN: The JSON a client got back from the calculate endpoint
	body := `{
		"payment_amount": 340.37,
		"payment_amount_no_insurance": 332.14,
		"total_interest": 101.92,
		"total_insurance": 15,
		"total_additional_principal": 0,
		"total_payment": 340.37,
		"interest_savings": 0,
		"amortization_schedule": [
			{"payment_number": 1, "payment_date": "2025-01-01", "payment_amount": 340.37,
			 "principal_paid": 223.45, "interest_paid": 101.92, "additional_principal": 0,
			 "insurance_paid": 15, "ending_balance": 9776.55, "interest_rate": 12}
		]
	}`
	var report Report
	require.NoError(t, json.Unmarshal([]byte(body), &report))

	// WHEN: It is exported
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, report))

	// THEN: Headers, one payment row, a blank row and the summary block
	rows := readRows(t, buf.Bytes())
	require.Len(t, rows, 11)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, []string{"1", "2025-01-01", "340.37", "223.45", "101.92", "0", "15", "9776.55", "12"}, rows[1])
	assert.Empty(t, rows[2])
	assert.Equal(t, []string{"Summary"}, rows[3])
	assert.Equal(t, []string{"Payment Amount", "340.37"}, rows[4])
	assert.Equal(t, []string{"Payment Amount without Insurance", "332.14"}, rows[5])
	assert.Equal(t, []string{"Interest Savings", "0"}, rows[10])
}

func TestWriteWorkbook_FromAnalysis(t *testing.T) {
	rate := decimal.NewFromInt(6)
	analysis, err := amortization.Analyze(amortization.LoanConfig{
		Principal:    decimal.NewFromInt(100000),
		AnnualRate:   &rate,
		Frequency:    amortization.Monthly,
		FirstDueDate: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		DayCount:     amortization.DayCount30DayMonth,
		YearBasis:    360,
		LoanTerm:     360,
	})
	require.NoError(t, err)

	report := NewReport(analysis)
	require.Len(t, report.Schedule, 361)

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, report))

	rows := readRows(t, buf.Bytes())
	// header + 361 payments + blank + "Summary" + 7 lines
	require.Len(t, rows, 1+361+1+1+7)
	assert.Equal(t, []string{"1", "2025-01-01", "599.55", "99.55", "500", "0", "0", "99900.45", "6"}, rows[1])
	assert.Equal(t, "2055-01-01", rows[361][1])
	assert.Equal(t, []string{"Total Interest", "115838.45"}, rows[366])
}

func TestWriteWorkbook_EmptySchedule(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, Report{}))

	rows := readRows(t, buf.Bytes())
	require.Len(t, rows, 10)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, []string{"Summary"}, rows[2])
}
