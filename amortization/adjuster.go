package amortization

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE ADJUSTER - ARM resets
// =============================================================================
//
// armPlan is the validated, immutable form of ARMTerms with every rate already
// converted to a fraction. Each engine run starts its own rateAdjuster from it,
// so the index cursor and active index never leak between runs.
//
// Ordering at an adjustment event matters and is fixed:
//   1. proposed = index + margin, floored at the minimum rate
//   2. the change from the current rate is clamped to the periodic cap
//   3. the result is capped at the lifetime maximum
// The floor is NOT re-applied after step 3.

type armPlan struct {
	initialIndex decimal.Decimal
	margin       decimal.Decimal
	floor        decimal.Decimal
	maxChange    *decimal.Decimal
	maxRate      *decimal.Decimal

	// fixedPeriod is math.MaxInt when FixedRatePeriod is unset: the rate
	// never adjusts, including on a leftover payment past LoanTerm.
	fixedPeriod   int
	frequency     int
	adjustPayment bool

	// schedule is sorted by EffectiveDate; IndexRate is a fraction.
	schedule []RateAdjustment
}

func newARMPlan(terms *ARMTerms) (*armPlan, error) {
	if terms.InitialRate.IsNegative() {
		return nil, configErrorf("initial_interest_rate", "must not be negative")
	}
	if terms.Margin.IsNegative() {
		return nil, configErrorf("margin", "must not be negative")
	}
	if terms.MinimumInterestRate.IsNegative() {
		return nil, configErrorf("minimum_interest_rate", "must not be negative")
	}

	plan := &armPlan{
		margin:        fromPercent(terms.Margin),
		floor:         fromPercent(terms.MinimumInterestRate),
		maxChange:     optionalRate(terms.MaxRateChange),
		maxRate:       optionalRate(terms.MaxInterestRate),
		fixedPeriod:   math.MaxInt,
		frequency:     12,
		adjustPayment: true,
	}

	if terms.InitialIndexRate != nil {
		plan.initialIndex = fromPercent(*terms.InitialIndexRate)
	} else {
		plan.initialIndex = fromPercent(terms.InitialRate).Sub(plan.margin)
	}
	if plan.initialIndex.IsNegative() {
		return nil, configErrorf("initial_index_rate",
			"calculated initial index rate is negative; check the initial interest rate and margin")
	}

	if terms.FixedRatePeriod != nil {
		if *terms.FixedRatePeriod < 0 {
			return nil, configErrorf("fixed_rate_period", "must not be negative")
		}
		plan.fixedPeriod = *terms.FixedRatePeriod
	}
	if terms.AdjustmentFrequency < 0 {
		return nil, configErrorf("adjustment_frequency", "must be at least 1")
	}
	if terms.AdjustmentFrequency > 0 {
		plan.frequency = terms.AdjustmentFrequency
	}
	if terms.AdjustPayment != nil {
		plan.adjustPayment = *terms.AdjustPayment
	}

	plan.schedule = make([]RateAdjustment, len(terms.RateAdjustments))
	for i, ra := range terms.RateAdjustments {
		if ra.IndexRate.IsNegative() {
			return nil, configErrorf("rate_adjustments", "index rate on %s must not be negative",
				ra.EffectiveDate.Format("2006-01-02"))
		}
		plan.schedule[i] = RateAdjustment{EffectiveDate: ra.EffectiveDate, IndexRate: fromPercent(ra.IndexRate)}
	}
	sort.SliceStable(plan.schedule, func(i, j int) bool {
		return plan.schedule[i].EffectiveDate.Before(plan.schedule[j].EffectiveDate)
	})

	return plan, nil
}

// optionalRate treats nil and zero alike: the cap is not configured.
func optionalRate(p *decimal.Decimal) *decimal.Decimal {
	if p == nil || p.IsZero() {
		return nil
	}
	r := fromPercent(*p)
	return &r
}

func (p *armPlan) start() *rateAdjuster {
	return &rateAdjuster{plan: p, index: p.initialIndex}
}

// rateAdjuster carries the per-run state: the active index and how many
// schedule entries have been consumed.
type rateAdjuster struct {
	plan  *armPlan
	index decimal.Decimal
	next  int
}

// due reports whether paymentNumber is an adjustment event.
func (a *rateAdjuster) due(paymentNumber int) bool {
	if paymentNumber <= a.plan.fixedPeriod {
		return false
	}
	sinceFixed := paymentNumber - a.plan.fixedPeriod
	return (sinceFixed-1)%a.plan.frequency == 0
}

// adjust returns the rate that applies from paymentDate on.
func (a *rateAdjuster) adjust(current decimal.Decimal, paymentDate time.Time) decimal.Decimal {
	index := a.index
	if a.next < len(a.plan.schedule) {
		entry := a.plan.schedule[a.next]
		if !paymentDate.Before(entry.EffectiveDate) {
			index = entry.IndexRate
			a.next++
		}
	}

	proposed := index.Add(a.plan.margin)
	if proposed.LessThan(a.plan.floor) {
		proposed = a.plan.floor
	}

	change := proposed.Sub(current)
	if limit := a.plan.maxChange; limit != nil {
		if change.GreaterThan(*limit) {
			change = *limit
		} else if change.LessThan(limit.Neg()) {
			change = limit.Neg()
		}
	}

	rate := current.Add(change)
	if a.plan.maxRate != nil && rate.GreaterThan(*a.plan.maxRate) {
		rate = *a.plan.maxRate
	}

	a.index = index
	return rate
}
