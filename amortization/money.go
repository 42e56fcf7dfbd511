package amortization

import "github.com/shopspring/decimal"

// =============================================================================
// DECIMAL HELPERS
// =============================================================================
//
// Two rounding modes are in play and they are not interchangeable:
//   - RoundHalfUp (ties away from zero): interest, insurance, balances, payoff
//   - RoundHalfDown (ties toward zero): sized level payments
//
// Divisions keep divisionPrecision digits so that cent rounding is decided on
// the exact value, not on a value already truncated at 16 digits.

const divisionPrecision = 28

var (
	one      = decimal.NewFromInt(1)
	twelve   = decimal.NewFromInt(12)
	hundred  = decimal.NewFromInt(100)
	cent     = decimal.New(1, -2)
	halfCent = decimal.New(5, -3)
)

// RoundHalfUp rounds to the cent with ties away from zero.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundHalfDown rounds to the cent with ties toward zero.
func RoundHalfDown(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return RoundHalfDown(d.Neg()).Neg()
	}
	truncated := d.Truncate(2)
	if d.Sub(truncated).GreaterThan(halfCent) {
		return truncated.Add(cent)
	}
	return truncated
}

func div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, divisionPrecision)
}

// fromPercent converts 6.5 into 0.065.
func fromPercent(p decimal.Decimal) decimal.Decimal {
	return p.Shift(-2)
}

func toPercent(r decimal.Decimal) decimal.Decimal {
	return r.Shift(2)
}

// compound returns base^n for n >= 0 by repeated squaring.
func compound(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(divisionPrecision)
		}
		base = base.Mul(base).Round(divisionPrecision)
		n >>= 1
	}
	return result
}

// levelPayment is the annuity payment P·r·(1+r)^n / ((1+r)^n − 1), unrounded.
// A zero rate spreads the principal evenly.
func levelPayment(principal, ratePerPeriod decimal.Decimal, n int) decimal.Decimal {
	if n < 1 {
		n = 1
	}
	if ratePerPeriod.IsZero() {
		return div(principal, decimal.NewFromInt(int64(n)))
	}
	growth := compound(one.Add(ratePerPeriod), n)
	return div(principal.Mul(ratePerPeriod).Mul(growth), growth.Sub(one))
}
