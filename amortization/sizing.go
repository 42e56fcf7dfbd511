package amortization

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// PAYMENT SIZING
// =============================================================================

const maxSizingIterations = 500

var convergenceTolerance = decimal.RequireFromString("0.05")

// sizePayment returns the periodic payment: the configured amount when given,
// otherwise the level payment over AmortTerm, grossed up for credit insurance.
func (e *Engine) sizePayment() (decimal.Decimal, error) {
	if e.cfg.PaymentAmount != nil {
		return *e.cfg.PaymentAmount, nil
	}

	base := RoundHalfDown(levelPayment(e.cfg.Principal, e.sizingRate(), e.amortTerm))
	if !e.cfg.CreditInsurance {
		return base, nil
	}

	payment := base
	for i := 1; i <= maxSizingIterations; i++ {
		previous := payment
		premium := e.averageInsurancePremium(payment)
		payment = RoundHalfDown(base.Add(premium))
		if payment.Sub(previous).Abs().LessThan(convergenceTolerance) {
			e.logger.Debug("insurance payment converged",
				zap.Int("iterations", i),
				zap.Stringer("base_payment", base),
				zap.Stringer("average_premium", premium),
				zap.Stringer("payment", payment))
			return payment, nil
		}
	}
	return decimal.Zero, &NonConvergenceError{Iterations: maxSizingIterations, LastPayment: payment}
}

// sizingRate is the per-period rate used for the level payment. The 30/360
// convention always uses a monthly rate.
func (e *Engine) sizingRate() decimal.Decimal {
	if e.cfg.DayCount == DayCount30DayMonth && e.cfg.YearBasis == 360 {
		return div(e.rate, twelve)
	}
	return div(e.rate, e.calendar.PeriodsPerYear())
}

// insurancePremium charges RatePer100 for every 100 of balance, rounded half
// up and capped at MaxPremium.
func (e *Engine) insurancePremium(balance decimal.Decimal) decimal.Decimal {
	premium := RoundHalfUp(div(balance, hundred).Mul(e.insurance.RatePer100))
	return decimal.Min(premium, e.insurance.MaxPremium)
}

// averageInsurancePremium runs a simplified amortization at the initial rate
// with no additional principal and averages the premiums over AmortTerm.
func (e *Engine) averageInsurancePremium(payment decimal.Decimal) decimal.Decimal {
	perPeriod := div(e.rate, e.calendar.PeriodsPerYear())
	balance := e.cfg.Principal
	total := decimal.Zero

	for i := 0; i < e.amortTerm; i++ {
		premium := e.insurancePremium(balance)
		total = total.Add(premium)
		interest := balance.Mul(perPeriod)
		balance = balance.Sub(payment.Sub(premium).Sub(interest))
		if !balance.IsPositive() {
			break
		}
	}

	return RoundHalfUp(div(total, decimal.NewFromInt(int64(e.amortTerm))))
}
