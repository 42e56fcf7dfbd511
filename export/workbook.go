/*
Package export renders a loan analysis as an .xlsx workbook.

LAYOUT (sheet "Schedule"):
  Row 1:       Column headers
  Rows 2..n+1: One row per payment
  Row n+2:     Blank
  Row n+3:     "Summary"
  Rows n+4..:  Label / value pairs

The input is the same JSON document the calculate endpoint returns, so a
front end can post back exactly what it received.

USAGE:
  var report export.Report
  json.NewDecoder(r.Body).Decode(&report)
  err := export.WriteWorkbook(w, report)
*/
package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/warp/loan-engine/amortization"
)

// SheetName is the name of the single worksheet.
const SheetName = "Schedule"

// ContentType and Filename are what the HTTP layer sends with the workbook.
const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	Filename    = "Loan_Calculation.xlsx"
)

// Headers is the schedule header row, left to right.
var Headers = []string{
	"Payment Number",
	"Payment Date",
	"Payment Amount",
	"Principal Paid",
	"Interest Paid",
	"Additional Principal",
	"Insurance Paid",
	"Ending Balance",
	"Interest Rate",
}

// Row is one schedule line as it appears in the calculate response.
type Row struct {
	PaymentNumber       int             `json:"payment_number"`
	PaymentDate         string          `json:"payment_date"`
	PaymentAmount       decimal.Decimal `json:"payment_amount"`
	PrincipalPaid       decimal.Decimal `json:"principal_paid"`
	InterestPaid        decimal.Decimal `json:"interest_paid"`
	AdditionalPrincipal decimal.Decimal `json:"additional_principal"`
	InsurancePaid       decimal.Decimal `json:"insurance_paid"`
	EndingBalance       decimal.Decimal `json:"ending_balance"`
	InterestRate        decimal.Decimal `json:"interest_rate"`
}

// Report is the subset of the calculate response that the workbook shows.
type Report struct {
	PaymentAmount            decimal.Decimal `json:"payment_amount"`
	PaymentAmountNoInsurance decimal.Decimal `json:"payment_amount_no_insurance"`
	TotalInterest            decimal.Decimal `json:"total_interest"`
	TotalInsurance           decimal.Decimal `json:"total_insurance"`
	TotalAdditionalPrincipal decimal.Decimal `json:"total_additional_principal"`
	TotalPayment             decimal.Decimal `json:"total_payment"`
	InterestSavings          decimal.Decimal `json:"interest_savings"`
	Schedule                 []Row           `json:"amortization_schedule"`
}

// NewReport builds a Report from an engine analysis.
func NewReport(a *amortization.Analysis) Report {
	r := Report{
		PaymentAmount:            a.Summary.PaymentAmount,
		PaymentAmountNoInsurance: a.Summary.PaymentAmountNoInsurance,
		TotalInterest:            a.Summary.TotalInterest,
		TotalInsurance:           a.Summary.TotalInsurance,
		TotalAdditionalPrincipal: a.Summary.TotalAdditionalPrincipal,
		TotalPayment:             a.Summary.TotalPayment,
		InterestSavings:          a.InterestSavings,
		Schedule:                 make([]Row, 0, len(a.Schedule)),
	}
	for _, s := range a.Schedule {
		r.Schedule = append(r.Schedule, Row{
			PaymentNumber:       s.PaymentNumber,
			PaymentDate:         s.PaymentDate.Format("2006-01-02"),
			PaymentAmount:       s.PaymentAmount,
			PrincipalPaid:       s.PrincipalPaid,
			InterestPaid:        s.Interest,
			AdditionalPrincipal: s.AdditionalPrincipal,
			InsurancePaid:       s.Insurance,
			EndingBalance:       s.EndingBalance,
			InterestRate:        s.InterestRate,
		})
	}
	return r
}

type summaryLine struct {
	label string
	value decimal.Decimal
}

func (r Report) summary() []summaryLine {
	return []summaryLine{
		{"Payment Amount", r.PaymentAmount},
		{"Payment Amount without Insurance", r.PaymentAmountNoInsurance},
		{"Total Interest", r.TotalInterest},
		{"Total Insurance", r.TotalInsurance},
		{"Total Additional Principal", r.TotalAdditionalPrincipal},
		{"Total Payment", r.TotalPayment},
		{"Interest Savings", r.InterestSavings},
	}
}

// WriteWorkbook builds the workbook for report and writes it to w.
func WriteWorkbook(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := setRow(f, 1, toAny(Headers)); err != nil {
		return err
	}

	for i, p := range report.Schedule {
		values := []any{
			p.PaymentNumber,
			p.PaymentDate,
			p.PaymentAmount.InexactFloat64(),
			p.PrincipalPaid.InexactFloat64(),
			p.InterestPaid.InexactFloat64(),
			p.AdditionalPrincipal.InexactFloat64(),
			p.InsurancePaid.InexactFloat64(),
			p.EndingBalance.InexactFloat64(),
			p.InterestRate.InexactFloat64(),
		}
		if err := setRow(f, i+2, values); err != nil {
			return err
		}
	}

	// One blank row separates the schedule from the summary block.
	row := len(report.Schedule) + 3
	if err := setRow(f, row, []any{"Summary"}); err != nil {
		return err
	}
	for _, line := range report.summary() {
		row++
		if err := setRow(f, row, []any{line.label, line.value.InexactFloat64()}); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
