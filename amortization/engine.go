/*
engine.go - The period simulator

PURPOSE:
  Walks a loan one payment at a time until the balance is exactly zero.
  For every period:
    1. Reset the rate if an ARM adjustment is due
    2. Step the calendar and count accrual days
    3. Accrue interest (rounded half up to the cent) and insurance
    4. Either pay the loan off exactly, or apply the scheduled payment plus
       additional principal
    5. Emit a ScheduleRow

TERMINATION:
  The loop has no iteration cap. It ends because every non-final period must
  reduce the balance by at least a cent: a payment that does not cover
  interest + insurance, or that leaves the balance untouched, is reported as
  ErrNegativeAmortization.

EXACTNESS:
  Interest is rounded to the cent before principal is derived, so every row
  satisfies payment = interest + principal + insurance and
  ending = starting - principal - additional exactly, and the principal and
  additional columns sum to the loan amount.

SEE ALSO:
  - sizing.go: Initial payment
  - adjuster.go: ARM resets
  - calendar.go: Dates and day counts
*/
package amortization

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine prices one validated LoanConfig. It holds no run state, so Compute
// may be called any number of times and always returns the same schedule.
type Engine struct {
	cfg        LoanConfig
	calendar   Calendar
	rate       decimal.Decimal // initial annual rate as a fraction
	amortTerm  int
	additional decimal.Decimal
	insurance  InsuranceTerms
	arm        *armPlan
	logger     *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug tracing of adjustments and
// payment sizing. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New validates cfg and prepares an engine for it.
func New(cfg LoanConfig, opts ...Option) (*Engine, error) {
	e := &Engine{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	if !cfg.Principal.IsPositive() {
		return nil, configErrorf("loan_amount", "must be positive")
	}
	if cfg.LoanTerm < 1 {
		return nil, configErrorf("loan_term", "must be at least 1")
	}
	if cfg.AmortTerm < 0 {
		return nil, configErrorf("amort_term", "must be at least 1")
	}
	if cfg.YearBasis < 1 {
		return nil, configErrorf("year_basis", "must be at least 1")
	}
	if cfg.FirstDueDate.IsZero() {
		return nil, configErrorf("first_due_date", "is required")
	}
	if cfg.AdditionalPrincipal.IsNegative() {
		return nil, configErrorf("additional_principal", "must not be negative")
	}
	if cfg.PaymentAmount != nil && cfg.PaymentAmount.IsNegative() {
		return nil, configErrorf("payment_amount", "must not be negative")
	}

	calendar, err := NewCalendar(cfg.Frequency, cfg.DayCount)
	if err != nil {
		return nil, err
	}
	if cfg.DayCount == DayCount30DayMonth && cfg.YearBasis != 360 {
		return nil, configErrorf("days_method", "%q requires a 360 day year basis, got %d", cfg.DayCount, cfg.YearBasis)
	}
	e.calendar = calendar

	e.amortTerm = cfg.AmortTerm
	if e.amortTerm == 0 {
		e.amortTerm = cfg.LoanTerm
	}
	e.additional = RoundHalfUp(cfg.AdditionalPrincipal)

	e.insurance = cfg.Insurance
	if e.insurance.RatePer100.IsZero() {
		e.insurance.RatePer100 = DefaultInsuranceRatePer100
	}
	if e.insurance.MaxPremium.IsZero() {
		e.insurance.MaxPremium = DefaultMaxInsurancePremium
	}
	if e.insurance.RatePer100.IsNegative() || e.insurance.MaxPremium.IsNegative() {
		return nil, configErrorf("credit_insurance", "insurance terms must not be negative")
	}

	switch {
	case cfg.ARM != nil:
		plan, err := newARMPlan(cfg.ARM)
		if err != nil {
			return nil, err
		}
		e.arm = plan
		e.rate = fromPercent(cfg.ARM.InitialRate)
	case cfg.AnnualRate != nil:
		if cfg.AnnualRate.IsNegative() {
			return nil, configErrorf("annual_interest_rate", "must not be negative")
		}
		e.rate = fromPercent(*cfg.AnnualRate)
	default:
		return nil, configErrorf("annual_interest_rate", "either annual_interest_rate or initial_interest_rate must be provided")
	}

	return e, nil
}

// ComputeAmortization validates cfg and runs the schedule. It is the single
// entry point adapters should call.
func ComputeAmortization(cfg LoanConfig, opts ...Option) (*Result, error) {
	e, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return e.Compute()
}

// IsAdjustable reports whether the loan carries ARM terms.
func (e *Engine) IsAdjustable() bool { return e.arm != nil }

// Compute runs the period simulator.
func (e *Engine) Compute() (*Result, error) {
	payment, err := e.sizePayment()
	if err != nil {
		return nil, err
	}
	initialPayment := payment

	var adjuster *rateAdjuster
	if e.arm != nil {
		adjuster = e.arm.start()
	}

	rate := e.rate
	balance := e.cfg.Principal
	date := e.cfg.FirstDueDate
	schedule := make([]ScheduleRow, 0, e.cfg.LoanTerm)

	for n := 1; balance.IsPositive(); n++ {
		if adjuster != nil && adjuster.due(n) {
			previous := rate
			rate = adjuster.adjust(rate, date)
			if adjuster.plan.adjustPayment {
				remaining := e.cfg.LoanTerm - n + 1
				payment = RoundHalfDown(levelPayment(balance, div(rate, e.calendar.PeriodsPerYear()), remaining))
			}
			e.logger.Debug("rate adjusted",
				zap.Int("payment_number", n),
				zap.Time("payment_date", date),
				zap.Stringer("previous_rate", toPercent(previous)),
				zap.Stringer("rate", toPercent(rate)),
				zap.Stringer("index", toPercent(adjuster.index)),
				zap.Stringer("payment", payment))
		}

		next := e.calendar.NextDate(date)
		interest := e.accrue(balance, rate, e.calendar.DaysInPeriod(date, next))
		insurance := decimal.Zero
		if e.cfg.CreditInsurance {
			insurance = e.insurancePremium(balance)
		}

		row := ScheduleRow{
			PaymentNumber:   n,
			PaymentDate:     date,
			StartingBalance: balance,
			Interest:        interest,
			Insurance:       insurance,
			InterestRate:    toPercent(rate),
		}

		owed := balance.Add(interest).Add(insurance)
		if owed.LessThanOrEqual(payment.Add(e.additional)) {
			row.PaymentAmount = owed
			row.PrincipalPaid = balance
			row.AdditionalPrincipal = decimal.Zero
		} else {
			principal := payment.Sub(interest).Sub(insurance)
			extra := decimal.Min(e.additional, balance.Sub(principal))
			if principal.IsNegative() || principal.Add(extra).IsZero() {
				return nil, &NegativeAmortizationError{
					PaymentNumber: n,
					Payment:       payment,
					Interest:      interest,
					Insurance:     insurance,
				}
			}
			row.PaymentAmount = payment
			row.PrincipalPaid = principal
			row.AdditionalPrincipal = extra
		}
		row.EndingBalance = balance.Sub(row.PrincipalPaid).Sub(row.AdditionalPrincipal)

		schedule = append(schedule, row)
		balance = row.EndingBalance
		date = next
	}

	return &Result{
		Schedule: schedule,
		Summary:  e.summarize(schedule, initialPayment),
	}, nil
}

// accrue returns the period's interest rounded half up to the cent.
func (e *Engine) accrue(balance, rate decimal.Decimal, days int) decimal.Decimal {
	if e.cfg.DayCount == DayCount30DayMonth {
		return RoundHalfUp(balance.Mul(div(rate, twelve)))
	}
	daily := div(rate, decimal.NewFromInt(int64(e.cfg.YearBasis)))
	return RoundHalfUp(balance.Mul(daily).Mul(decimal.NewFromInt(int64(days))))
}

func (e *Engine) summarize(schedule []ScheduleRow, payment decimal.Decimal) Summary {
	s := Summary{
		TotalInterest:            decimal.Zero,
		TotalInsurance:           decimal.Zero,
		TotalAdditionalPrincipal: decimal.Zero,
		TotalPayment:             decimal.Zero,
		ActualLoanTerm:           len(schedule),
		PaymentAmount:            payment,
		PaymentAmountNoInsurance: payment,
	}
	for _, row := range schedule {
		s.TotalInterest = s.TotalInterest.Add(row.Interest)
		s.TotalInsurance = s.TotalInsurance.Add(row.Insurance)
		s.TotalAdditionalPrincipal = s.TotalAdditionalPrincipal.Add(row.AdditionalPrincipal)
		s.TotalPayment = s.TotalPayment.Add(row.PaymentAmount).Add(row.AdditionalPrincipal)
	}
	if e.cfg.CreditInsurance {
		s.PaymentAmountNoInsurance = payment.Sub(e.averageInsurancePremium(payment))
	}
	return s
}
