/*
Package amortization computes payment schedules for installment loans.

PURPOSE:
  This package is the calculation core. It takes an immutable LoanConfig and
  walks the loan period by period, producing one ScheduleRow per payment plus
  aggregate totals. Fixed-rate, adjustable-rate (ARM) and credit-insurance
  loans all run through the same engine: a fixed-rate loan is simply a config
  without ARM terms.

KEY CONCEPTS IN THIS FILE (types.go):
  - LoanConfig: Everything needed to price a loan (principal, rate, terms)
  - ARMTerms: Index/margin/caps for adjustable-rate loans
  - ScheduleRow: One payment period in the output schedule
  - Summary: Totals derived from the schedule

DESIGN PRINCIPLES:
  1. Precision: All money and rate math uses decimal.Decimal, never float64
  2. Immutability: The engine never modifies the LoanConfig it was given
  3. Fail loudly: Configuration faults are returned as typed errors, no
     partial schedules are ever returned

UNITS:
  Rates on LoanConfig and ARMTerms are annual percentages (6 means 6%).
  ScheduleRow.InterestRate is reported the same way. Internally the engine
  works with fractions (0.06).

USAGE:
  result, err := amortization.ComputeAmortization(amortization.LoanConfig{
      Principal:    decimal.NewFromInt(100000),
      AnnualRate:   amortization.Percent("6"),
      Frequency:    amortization.Monthly,
      FirstDueDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
      DayCount:     amortization.DayCount30DayMonth,
      YearBasis:    360,
      LoanTerm:     360,
  })

SEE ALSO:
  - engine.go: Period simulator (the main loop)
  - sizing.go: Level payment and insurance convergence
  - adjuster.go: ARM rate resets
  - calendar.go: Payment dates and day counts
*/
package amortization

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// Frequency is how often payments are due. Values match the labels used by
// loan servicing front ends.
type Frequency string

const (
	Monthly               Frequency = "Monthly"
	Annually              Frequency = "Annually"
	BiWeekly              Frequency = "Bi-Weekly"
	Biweekly              Frequency = "Biweekly"
	Weekly                Frequency = "Weekly"
	Daily                 Frequency = "Daily"
	Quarterly             Frequency = "Quarterly"
	Semiannually          Frequency = "Semiannually"
	Semimonthly           Frequency = "Semimonthly"
	Semimonthly15thAndEOM Frequency = "Semimonthly 15th and EOM"
	Semimonthly1stAnd15th Frequency = "Semimonthly 1st and 15th"
)

// DayCountMethod selects how many days a payment period accrues interest for.
type DayCountMethod string

const (
	DayCountActual     DayCountMethod = "Actual"
	DayCount30DayMonth DayCountMethod = "30 Day Month"
)

// =============================================================================
// LOAN CONFIGURATION - Immutable input
// =============================================================================

// LoanConfig describes a loan to amortize.
type LoanConfig struct {
	Principal decimal.Decimal

	// AnnualRate is the fixed annual rate in percent. Ignored when ARM is set.
	AnnualRate *decimal.Decimal

	// PaymentAmount is an explicit periodic payment. When nil the level
	// payment is sized from the rate and AmortTerm.
	PaymentAmount *decimal.Decimal

	Frequency    Frequency
	FirstDueDate time.Time
	DayCount     DayCountMethod
	YearBasis    int

	// LoanTerm is the contractual number of payments.
	LoanTerm int

	// AmortTerm is the number of payments used to size the level payment.
	// Zero means LoanTerm.
	AmortTerm int

	// AdditionalPrincipal is paid on top of every scheduled payment.
	AdditionalPrincipal decimal.Decimal

	CreditInsurance bool
	Insurance       InsuranceTerms

	// ARM marks the loan as adjustable-rate. Nil means fixed-rate.
	ARM *ARMTerms
}

// InsuranceTerms prices single-premium credit insurance as a charge per 100
// of outstanding balance, capped per period. Zero values fall back to
// DefaultInsuranceRatePer100 and DefaultMaxInsurancePremium.
type InsuranceTerms struct {
	RatePer100 decimal.Decimal
	MaxPremium decimal.Decimal
}

var (
	DefaultInsuranceRatePer100 = decimal.RequireFromString("0.15")
	DefaultMaxInsurancePremium = decimal.RequireFromString("45.00")
)

// ARMTerms holds the adjustable-rate parameters. All rates are percentages.
type ARMTerms struct {
	InitialRate decimal.Decimal

	// InitialIndexRate defaults to InitialRate - Margin.
	InitialIndexRate *decimal.Decimal
	Margin           decimal.Decimal

	RateAdjustments []RateAdjustment

	// MaxRateChange is the periodic cap. Nil or zero disables it.
	MaxRateChange *decimal.Decimal

	// MaxInterestRate is the lifetime cap. Nil or zero disables it.
	MaxInterestRate *decimal.Decimal

	MinimumInterestRate decimal.Decimal

	// AdjustPayment re-amortizes the payment at every rate change. Nil means true.
	AdjustPayment *bool

	// FixedRatePeriod is the number of payments before the first adjustment.
	// Nil means the rate never adjusts.
	FixedRatePeriod *int

	// AdjustmentFrequency is the number of payments between adjustments.
	// Zero means 12.
	AdjustmentFrequency int
}

// RateAdjustment is an index rate that becomes available on EffectiveDate.
type RateAdjustment struct {
	EffectiveDate time.Time
	IndexRate     decimal.Decimal
}

// =============================================================================
// OUTPUT
// =============================================================================

// ScheduleRow is one payment period. Currency fields are exact to the cent.
type ScheduleRow struct {
	PaymentNumber       int             `json:"payment_number"`
	PaymentDate         time.Time       `json:"payment_date"`
	StartingBalance     decimal.Decimal `json:"start_balance"`
	PaymentAmount       decimal.Decimal `json:"payment_amount"`
	AdditionalPrincipal decimal.Decimal `json:"additional_principal"`
	Interest            decimal.Decimal `json:"interest_paid"`
	PrincipalPaid       decimal.Decimal `json:"principal_paid"`
	Insurance           decimal.Decimal `json:"insurance_paid"`
	EndingBalance       decimal.Decimal `json:"ending_balance"`
	InterestRate        decimal.Decimal `json:"interest_rate"` // percent
}

// Summary aggregates a schedule.
type Summary struct {
	TotalInterest            decimal.Decimal `json:"total_interest"`
	TotalInsurance           decimal.Decimal `json:"total_insurance"`
	TotalAdditionalPrincipal decimal.Decimal `json:"total_additional_principal"`
	TotalPayment             decimal.Decimal `json:"total_payment"`
	ActualLoanTerm           int             `json:"actual_loan_term"`

	// PaymentAmount is the initial level payment (insurance included).
	PaymentAmount            decimal.Decimal `json:"payment_amount"`
	PaymentAmountNoInsurance decimal.Decimal `json:"payment_amount_no_insurance"`
}

// Result is the output of one engine run.
type Result struct {
	Schedule []ScheduleRow `json:"schedule"`
	Summary  Summary       `json:"summary"`
}

// =============================================================================
// HELPERS
// =============================================================================

// Percent parses a percentage literal into a pointer, for optional rate fields.
// It panics on malformed input and is meant for literals in code and tests.
func Percent(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
