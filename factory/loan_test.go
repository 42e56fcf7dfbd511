package factory

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loan-engine/amortization"
)

const fixedLoanJSON = `{
	"loan_amount": 100000,
	"annual_interest_rate": 6,
	"payment_frequency": "Monthly",
	"first_due_date": "2025-01-01",
	"days_method": "30 Day Month",
	"year_basis": 360,
	"loan_term": 360,
	"additional_principal": 0,
	"credit_insurance": false
}`

const armLoanJSON = `{
	"loan_amount": "200000",
	"payment_frequency": "Monthly",
	"first_due_date": "2025-01-01",
	"days_method": "30 Day Month",
	"year_basis": 360,
	"loan_term": 120,
	"initial_interest_rate": 5,
	"initial_index_rate": 3,
	"margin": 2,
	"fixed_rate_period": 12,
	"adjustment_frequency": 12,
	"max_rate_change": 1,
	"max_interest_rate": 8,
	"minimum_interest_rate": 4.5,
	"adjust_payment": false,
	"rate_adjustments": [
		{"effective_date": "2027-01-01", "index_rate": 9},
		{"effective_date": "2026-01-01", "index_rate": 6}
	]
}`

func TestParseLoan_FixedRate(t *testing.T) {
	cfg, err := NewLoanFactory().ParseLoan([]byte(fixedLoanJSON))
	require.NoError(t, err)

	assert.True(t, cfg.Principal.Equal(decimal.NewFromInt(100000)))
	require.NotNil(t, cfg.AnnualRate)
	assert.True(t, cfg.AnnualRate.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, amortization.Monthly, cfg.Frequency)
	assert.Equal(t, amortization.DayCount30DayMonth, cfg.DayCount)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), cfg.FirstDueDate)
	assert.Equal(t, 360, cfg.LoanTerm)
	assert.Zero(t, cfg.AmortTerm)
	assert.Nil(t, cfg.ARM)

	result, err := amortization.ComputeAmortization(cfg)
	require.NoError(t, err)
	assert.Equal(t, "599.55", result.Summary.PaymentAmount.StringFixed(2))
}

func TestParseLoan_ARM(t *testing.T) {
	cfg, err := NewLoanFactory().ParseLoan([]byte(armLoanJSON))
	require.NoError(t, err)
	require.NotNil(t, cfg.ARM)

	arm := cfg.ARM
	assert.True(t, arm.InitialRate.Equal(decimal.NewFromInt(5)))
	assert.True(t, arm.Margin.Equal(decimal.NewFromInt(2)))
	assert.True(t, arm.MinimumInterestRate.Equal(decimal.RequireFromString("4.5")), "minimum rate must be carried through")
	require.NotNil(t, arm.InitialIndexRate)
	assert.True(t, arm.InitialIndexRate.Equal(decimal.NewFromInt(3)))
	require.NotNil(t, arm.FixedRatePeriod)
	assert.Equal(t, 12, *arm.FixedRatePeriod)
	assert.Equal(t, 12, arm.AdjustmentFrequency)
	require.NotNil(t, arm.AdjustPayment)
	assert.False(t, *arm.AdjustPayment)
	require.Len(t, arm.RateAdjustments, 2)
	// Order is preserved here; the engine sorts.
	assert.Equal(t, 2027, arm.RateAdjustments[0].EffectiveDate.Year())
	assert.Nil(t, cfg.AnnualRate)
}

func TestParseLoan_InsuranceOverrides(t *testing.T) {
	var lj LoanJSON
	require.NoError(t, json.Unmarshal([]byte(fixedLoanJSON), &lj))
	rate := decimal.RequireFromString("0.2")
	lj.InsuranceRatePer100 = &rate
	lj.CreditInsurance = true

	cfg, err := NewLoanFactory().FromJSON(lj)
	require.NoError(t, err)
	assert.True(t, cfg.CreditInsurance)
	assert.True(t, cfg.Insurance.RatePer100.Equal(rate))
	assert.True(t, cfg.Insurance.MaxPremium.IsZero())
}

func TestParseLoan_Errors(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*LoanJSON)
		field string
	}{
		{"missing due date", func(lj *LoanJSON) { lj.FirstDueDate = "" }, "first_due_date"},
		{"bad due date", func(lj *LoanJSON) { lj.FirstDueDate = "01/02/2025" }, "first_due_date"},
		{"missing frequency", func(lj *LoanJSON) { lj.PaymentFrequency = "" }, "payment_frequency"},
		{"missing days method", func(lj *LoanJSON) { lj.DaysMethod = "" }, "days_method"},
		{"zero amort term", func(lj *LoanJSON) { zero := 0; lj.AmortTerm = &zero }, "amort_term"},
		{"bad adjustment date", func(lj *LoanJSON) {
			rate := decimal.NewFromInt(5)
			lj.InitialInterestRate = &rate
			lj.RateAdjustments = []RateAdjustmentJSON{{EffectiveDate: "soon"}}
		}, "rate_adjustments[0].effective_date"},
		{"zero adjustment frequency", func(lj *LoanJSON) {
			rate := decimal.NewFromInt(5)
			zero := 0
			lj.InitialInterestRate = &rate
			lj.AdjustmentFrequency = &zero
		}, "adjustment_frequency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lj LoanJSON
			require.NoError(t, json.Unmarshal([]byte(fixedLoanJSON), &lj))
			tt.edit(&lj)

			_, err := NewLoanFactory().FromJSON(lj)
			require.Error(t, err)
			assert.True(t, amortization.IsClientError(err))

			var ce *amortization.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestParseLoan_MalformedJSON(t *testing.T) {
	_, err := NewLoanFactory().ParseLoan([]byte(`{"loan_amount": "lots"}`))
	require.Error(t, err)
	assert.False(t, amortization.IsClientError(err))
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := NewLoanFactory()
	for name, doc := range map[string]string{"fixed": fixedLoanJSON, "arm": armLoanJSON} {
		t.Run(name, func(t *testing.T) {
			cfg, err := f.ParseLoan([]byte(doc))
			require.NoError(t, err)

			encoded, err := json.Marshal(f.ToJSON(cfg))
			require.NoError(t, err)

			again, err := f.ParseLoan(encoded)
			require.NoError(t, err)

			first, err := amortization.ComputeAmortization(cfg)
			require.NoError(t, err)
			second, err := amortization.ComputeAmortization(again)
			require.NoError(t, err)
			assert.Equal(t, first.Summary.ActualLoanTerm, second.Summary.ActualLoanTerm)
			assert.True(t, first.Summary.TotalInterest.Equal(second.Summary.TotalInterest))
		})
	}
}
