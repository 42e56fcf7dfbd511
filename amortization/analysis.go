package amortization

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Analysis is a Result plus the comparison figures shown next to it.
type Analysis struct {
	Result

	// InterestSavings is the interest avoided by paying AdditionalPrincipal,
	// measured against the same loan without it. Zero when none is paid.
	InterestSavings decimal.Decimal `json:"interest_savings"`

	// SavingsUnavailable is set when the loan only amortizes because of
	// AdditionalPrincipal, so there is no schedule to compare against.
	// InterestSavings is zero then.
	SavingsUnavailable bool `json:"savings_unavailable,omitempty"`

	// PaymentIncrease is how much credit insurance adds to the payment.
	PaymentIncrease decimal.Decimal `json:"payment_increase"`
}

// Analyze computes the schedule for cfg and, when additional principal is
// configured, a second schedule without it to measure the interest saved.
func Analyze(cfg LoanConfig, opts ...Option) (*Analysis, error) {
	result, err := ComputeAmortization(cfg, opts...)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Result:          *result,
		InterestSavings: decimal.Zero,
		PaymentIncrease: decimal.Zero,
	}

	if cfg.AdditionalPrincipal.IsPositive() {
		baseline := cfg
		baseline.AdditionalPrincipal = decimal.Zero
		without, err := ComputeAmortization(baseline, opts...)
		switch {
		case errors.Is(err, ErrNegativeAmortization):
			analysis.SavingsUnavailable = true
		case err != nil:
			return nil, err
		default:
			analysis.InterestSavings = without.Summary.TotalInterest.Sub(result.Summary.TotalInterest)
		}
	}

	if cfg.CreditInsurance {
		analysis.PaymentIncrease = result.Summary.PaymentAmount.Sub(result.Summary.PaymentAmountNoInsurance)
	}

	return analysis, nil
}
