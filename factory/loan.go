/*
Package factory provides JSON to Go loan conversion.

PURPOSE:
  Converts JSON loan requests into amortization.LoanConfig values. The HTTP
  layer, the calculation history and the result cache all speak this JSON
  shape, so the field names stay compatible with existing front ends.

JSON SCHEMA:
  {
    "loan_amount": 200000,
    "payment_frequency": "Monthly",
    "first_due_date": "2025-01-01",
    "days_method": "30 Day Month",
    "year_basis": 360,
    "loan_term": 360,
    "annual_interest_rate": 6.5,
    "additional_principal": 100,
    "credit_insurance": false,

    // Adjustable-rate loans use initial_interest_rate instead:
    "initial_interest_rate": 5,
    "margin": 2.25,
    "fixed_rate_period": 60,
    "adjustment_frequency": 12,
    "max_rate_change": 2,
    "max_interest_rate": 10,
    "minimum_interest_rate": 2.25,
    "rate_adjustments": [
      {"effective_date": "2030-01-01", "index_rate": 4.1}
    ]
  }

KEY FEATURES:
  - Accepts numbers or numeric strings for every amount (decimal.Decimal)
  - Dates are YYYY-MM-DD
  - A request carrying initial_interest_rate is an ARM; otherwise it is fixed
  - Field errors come back as *amortization.ConfigError, so callers classify
    them with amortization.IsClientError

USAGE:
  f := factory.NewLoanFactory()
  cfg, err := f.ParseLoan(body)
  result, err := amortization.Analyze(cfg)

SEE ALSO:
  - amortization/types.go: LoanConfig definition
  - api/handlers.go: Request decoding
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/loan-engine/amortization"
)

// DateLayout is the wire format for every date in a loan request.
const DateLayout = "2006-01-02"

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LoanJSON is the JSON representation of a loan request.
type LoanJSON struct {
	LoanAmount          decimal.Decimal  `json:"loan_amount"`
	AnnualInterestRate  *decimal.Decimal `json:"annual_interest_rate,omitempty"`
	PaymentAmount       *decimal.Decimal `json:"payment_amount,omitempty"`
	PaymentFrequency    string           `json:"payment_frequency"`
	FirstDueDate        string           `json:"first_due_date"`
	DaysMethod          string           `json:"days_method"`
	YearBasis           int              `json:"year_basis"`
	LoanTerm            int              `json:"loan_term"`
	AmortTerm           *int             `json:"amort_term,omitempty"`
	AdditionalPrincipal decimal.Decimal  `json:"additional_principal"`
	CreditInsurance     bool             `json:"credit_insurance"`

	// Insurance pricing overrides. Zero or absent uses the engine defaults.
	InsuranceRatePer100 *decimal.Decimal `json:"insurance_rate_per_100,omitempty"`
	MaxInsurancePremium *decimal.Decimal `json:"max_insurance_premium,omitempty"`

	// Adjustable-rate fields
	InitialInterestRate *decimal.Decimal     `json:"initial_interest_rate,omitempty"`
	InitialIndexRate    *decimal.Decimal     `json:"initial_index_rate,omitempty"`
	Margin              *decimal.Decimal     `json:"margin,omitempty"`
	RateAdjustments     []RateAdjustmentJSON `json:"rate_adjustments,omitempty"`
	MaxRateChange       *decimal.Decimal     `json:"max_rate_change,omitempty"`
	MaxInterestRate     *decimal.Decimal     `json:"max_interest_rate,omitempty"`
	AdjustPayment       *bool                `json:"adjust_payment,omitempty"`
	FixedRatePeriod     *int                 `json:"fixed_rate_period,omitempty"`
	AdjustmentFrequency *int                 `json:"adjustment_frequency,omitempty"`
	MinimumInterestRate *decimal.Decimal     `json:"minimum_interest_rate,omitempty"`
}

// RateAdjustmentJSON is one entry of the index schedule.
type RateAdjustmentJSON struct {
	EffectiveDate string          `json:"effective_date"`
	IndexRate     decimal.Decimal `json:"index_rate"`
}

// IsAdjustable reports whether the request describes an ARM.
func (lj LoanJSON) IsAdjustable() bool {
	return lj.InitialInterestRate != nil
}

// =============================================================================
// LOAN FACTORY
// =============================================================================

// LoanFactory converts JSON loan requests to engine configs.
type LoanFactory struct{}

// NewLoanFactory creates a new loan factory.
func NewLoanFactory() *LoanFactory {
	return &LoanFactory{}
}

// ParseLoan parses a JSON document into a LoanConfig.
func (f *LoanFactory) ParseLoan(data []byte) (amortization.LoanConfig, error) {
	var lj LoanJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return amortization.LoanConfig{}, fmt.Errorf("failed to parse loan JSON: %w", err)
	}
	return f.FromJSON(lj)
}

// FromJSON converts LoanJSON to a LoanConfig. It checks wire-level concerns
// (dates, required fields); pricing rules are validated by the engine.
func (f *LoanFactory) FromJSON(lj LoanJSON) (amortization.LoanConfig, error) {
	firstDue, err := parseDate("first_due_date", lj.FirstDueDate)
	if err != nil {
		return amortization.LoanConfig{}, err
	}
	if lj.PaymentFrequency == "" {
		return amortization.LoanConfig{}, fieldError("payment_frequency", "is required")
	}
	if lj.DaysMethod == "" {
		return amortization.LoanConfig{}, fieldError("days_method", "is required")
	}

	cfg := amortization.LoanConfig{
		Principal:           lj.LoanAmount,
		PaymentAmount:       lj.PaymentAmount,
		Frequency:           amortization.Frequency(lj.PaymentFrequency),
		FirstDueDate:        firstDue,
		DayCount:            amortization.DayCountMethod(lj.DaysMethod),
		YearBasis:           lj.YearBasis,
		LoanTerm:            lj.LoanTerm,
		AdditionalPrincipal: lj.AdditionalPrincipal,
		CreditInsurance:     lj.CreditInsurance,
	}
	if lj.AmortTerm != nil {
		if *lj.AmortTerm < 1 {
			return amortization.LoanConfig{}, fieldError("amort_term", "must be at least 1")
		}
		cfg.AmortTerm = *lj.AmortTerm
	}
	if lj.InsuranceRatePer100 != nil {
		cfg.Insurance.RatePer100 = *lj.InsuranceRatePer100
	}
	if lj.MaxInsurancePremium != nil {
		cfg.Insurance.MaxPremium = *lj.MaxInsurancePremium
	}

	if !lj.IsAdjustable() {
		cfg.AnnualRate = lj.AnnualInterestRate
		return cfg, nil
	}

	arm, err := parseARMTerms(lj)
	if err != nil {
		return amortization.LoanConfig{}, err
	}
	cfg.ARM = arm
	return cfg, nil
}

// ToJSON converts a LoanConfig back to its request form. Defaults the engine
// would apply are left out, so two configs that price the same produce the
// same JSON.
func (f *LoanFactory) ToJSON(cfg amortization.LoanConfig) LoanJSON {
	lj := LoanJSON{
		LoanAmount:          cfg.Principal,
		PaymentAmount:       cfg.PaymentAmount,
		PaymentFrequency:    string(cfg.Frequency),
		FirstDueDate:        cfg.FirstDueDate.Format(DateLayout),
		DaysMethod:          string(cfg.DayCount),
		YearBasis:           cfg.YearBasis,
		LoanTerm:            cfg.LoanTerm,
		AdditionalPrincipal: cfg.AdditionalPrincipal,
		CreditInsurance:     cfg.CreditInsurance,
	}
	if cfg.AmortTerm > 0 && cfg.AmortTerm != cfg.LoanTerm {
		term := cfg.AmortTerm
		lj.AmortTerm = &term
	}
	if !cfg.Insurance.RatePer100.IsZero() {
		rate := cfg.Insurance.RatePer100
		lj.InsuranceRatePer100 = &rate
	}
	if !cfg.Insurance.MaxPremium.IsZero() {
		maxPremium := cfg.Insurance.MaxPremium
		lj.MaxInsurancePremium = &maxPremium
	}

	if cfg.ARM == nil {
		lj.AnnualInterestRate = cfg.AnnualRate
		return lj
	}

	arm := cfg.ARM
	initial := arm.InitialRate
	margin := arm.Margin
	floor := arm.MinimumInterestRate
	lj.InitialInterestRate = &initial
	lj.InitialIndexRate = arm.InitialIndexRate
	lj.Margin = &margin
	lj.MaxRateChange = arm.MaxRateChange
	lj.MaxInterestRate = arm.MaxInterestRate
	lj.AdjustPayment = arm.AdjustPayment
	lj.FixedRatePeriod = arm.FixedRatePeriod
	lj.MinimumInterestRate = &floor
	if arm.AdjustmentFrequency > 0 {
		freq := arm.AdjustmentFrequency
		lj.AdjustmentFrequency = &freq
	}
	for _, ra := range arm.RateAdjustments {
		lj.RateAdjustments = append(lj.RateAdjustments, RateAdjustmentJSON{
			EffectiveDate: ra.EffectiveDate.Format(DateLayout),
			IndexRate:     ra.IndexRate,
		})
	}
	return lj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseARMTerms(lj LoanJSON) (*amortization.ARMTerms, error) {
	arm := &amortization.ARMTerms{
		InitialRate:      *lj.InitialInterestRate,
		InitialIndexRate: lj.InitialIndexRate,
		MaxRateChange:    lj.MaxRateChange,
		MaxInterestRate:  lj.MaxInterestRate,
		AdjustPayment:    lj.AdjustPayment,
		FixedRatePeriod:  lj.FixedRatePeriod,
	}
	if lj.Margin != nil {
		arm.Margin = *lj.Margin
	}
	if lj.MinimumInterestRate != nil {
		arm.MinimumInterestRate = *lj.MinimumInterestRate
	}
	if lj.AdjustmentFrequency != nil {
		if *lj.AdjustmentFrequency < 1 {
			return nil, fieldError("adjustment_frequency", "must be at least 1")
		}
		arm.AdjustmentFrequency = *lj.AdjustmentFrequency
	}

	for i, rj := range lj.RateAdjustments {
		effective, err := parseDate(fmt.Sprintf("rate_adjustments[%d].effective_date", i), rj.EffectiveDate)
		if err != nil {
			return nil, err
		}
		arm.RateAdjustments = append(arm.RateAdjustments, amortization.RateAdjustment{
			EffectiveDate: effective,
			IndexRate:     rj.IndexRate,
		})
	}
	return arm, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fieldError(field, "is required")
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fieldError(field, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value))
	}
	return t, nil
}

func fieldError(field, reason string) error {
	return &amortization.ConfigError{Field: field, Reason: reason}
}
