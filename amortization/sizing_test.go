package amortization_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loan-engine/amortization"
)

// insuredLoan is 10,000 at 12% over 36 monthly payments with credit insurance.
func insuredLoan() amortization.LoanConfig {
	return amortization.LoanConfig{
		Principal:       dec("10000"),
		AnnualRate:      amortization.Percent("12"),
		Frequency:       amortization.Monthly,
		FirstDueDate:    day(2025, time.January, 1),
		DayCount:        amortization.DayCountActual,
		YearBasis:       365,
		LoanTerm:        36,
		CreditInsurance: true,
	}
}

func TestSizing_InsuranceGrossesUpPayment(t *testing.T) {
	cfg := insuredLoan()
	result := compute(t, cfg)

	assert.Equal(t, "340.37", result.Summary.PaymentAmount.StringFixed(2))
	assert.Equal(t, "332.14", result.Summary.PaymentAmountNoInsurance.StringFixed(2))
	assert.Equal(t, 37, result.Summary.ActualLoanTerm)
	assert.Equal(t, "296.29", result.Summary.TotalInsurance.StringFixed(2))
	assert.Equal(t, "1972.58", result.Summary.TotalInterest.StringFixed(2))

	first := result.Schedule[0]
	assert.Equal(t, "15.00", first.Insurance.StringFixed(2))
	assert.Equal(t, "101.92", first.Interest.StringFixed(2))

	last := result.Schedule[len(result.Schedule)-1]
	assert.Equal(t, "15.55", last.PaymentAmount.StringFixed(2))
	assertScheduleInvariants(t, cfg, result)
}

func TestSizing_InsurancePremiumCapped(t *testing.T) {
	// 0.15 per 100 on 50,000 is 75.00, above the 45.00 cap.
	cfg := insuredLoan()
	cfg.Principal = dec("50000")
	cfg.LoanTerm = 60
	result := compute(t, cfg)

	assert.Equal(t, "45.00", result.Schedule[0].Insurance.StringFixed(2))
	for _, row := range result.Schedule {
		require.True(t, row.Insurance.LessThanOrEqual(dec("45")), "payment %d insurance %s", row.PaymentNumber, row.Insurance)
	}
	assertScheduleInvariants(t, cfg, result)
}

func TestSizing_CustomInsuranceTermsConverge(t *testing.T) {
	cfg := insuredLoan()
	cfg.Insurance = amortization.InsuranceTerms{RatePer100: dec("3"), MaxPremium: dec("100000")}
	result := compute(t, cfg)

	assert.Equal(t, "524.38", result.Summary.PaymentAmount.StringFixed(2))
}

func TestSizing_NonConvergence(t *testing.T) {
	// GIVEN: A premium so steep every payment increase raises the average
	//        premium by more than the increase itself
	// WHEN: The payment is sized
	// THEN: Sizing gives up with ErrNonConvergence
	cfg := insuredLoan()
	cfg.Insurance = amortization.InsuranceTerms{RatePer100: dec("10"), MaxPremium: dec("100000")}

	result, err := amortization.ComputeAmortization(cfg)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, amortization.ErrNonConvergence))
	assert.True(t, amortization.IsClientError(err))
	assert.Equal(t, "non_convergence", amortization.Kind(err))

	var nce *amortization.NonConvergenceError
	require.True(t, errors.As(err, &nce))
	assert.Equal(t, 500, nce.Iterations)
}

func TestSizing_ExplicitPaymentSkipsInsuranceSizing(t *testing.T) {
	cfg := insuredLoan()
	cfg.PaymentAmount = decPtr("400")
	result := compute(t, cfg)

	assert.Equal(t, "400.00", result.Schedule[0].PaymentAmount.StringFixed(2))
	assertScheduleInvariants(t, cfg, result)
}

func TestSizing_AmortTermSizesShorterThanLoanTerm(t *testing.T) {
	// Sizing over 180 payments retires a 360-payment loan in 180.
	cfg := standardMortgage()
	cfg.AmortTerm = 180
	result := compute(t, cfg)

	assert.Equal(t, "843.86", result.Summary.PaymentAmount.StringFixed(2))
	assert.Equal(t, 180, result.Summary.ActualLoanTerm)
	assertScheduleInvariants(t, cfg, result)
}
