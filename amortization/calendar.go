package amortization

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALENDAR POLICY - Payment dates and day counts
// =============================================================================

// Calendar steps payment dates and measures accrual periods for one
// frequency/day-count combination.
type Calendar struct {
	Frequency Frequency
	DayCount  DayCountMethod
}

// NewCalendar validates the frequency and day-count method.
func NewCalendar(freq Frequency, method DayCountMethod) (Calendar, error) {
	if _, ok := periodsPerYear[freq]; !ok {
		return Calendar{}, configErrorf("payment_frequency", "unsupported payment frequency %q", freq)
	}
	switch method {
	case DayCountActual, DayCount30DayMonth:
	default:
		return Calendar{}, configErrorf("days_method", "unsupported days method %q", method)
	}
	return Calendar{Frequency: freq, DayCount: method}, nil
}

var periodsPerYear = map[Frequency]int64{
	Monthly:               12,
	Annually:              1,
	BiWeekly:              26,
	Biweekly:              26,
	Weekly:                52,
	Daily:                 365,
	Quarterly:             4,
	Semiannually:          2,
	Semimonthly:           24,
	Semimonthly15thAndEOM: 24,
	Semimonthly1stAnd15th: 24,
}

// PeriodsPerYear returns how many payments fall in one year.
func (c Calendar) PeriodsPerYear() decimal.Decimal {
	return decimal.NewFromInt(periodsPerYear[c.Frequency])
}

// NextDate returns the due date following current.
func (c Calendar) NextDate(current time.Time) time.Time {
	switch c.Frequency {
	case Monthly:
		return addMonths(current, 1)
	case Annually:
		return addMonths(current, 12)
	case Quarterly:
		return addMonths(current, 3)
	case Semiannually:
		return addMonths(current, 6)
	case BiWeekly, Biweekly:
		return current.AddDate(0, 0, 14)
	case Weekly:
		return current.AddDate(0, 0, 7)
	case Daily:
		return current.AddDate(0, 0, 1)
	case Semimonthly:
		return current.AddDate(0, 0, 15)
	case Semimonthly15thAndEOM, Semimonthly1stAnd15th:
		if current.Day() < 15 {
			return time.Date(current.Year(), current.Month(), 15, 0, 0, 0, 0, current.Location())
		}
		return time.Date(current.Year(), current.Month()+1, 1, 0, 0, 0, 0, current.Location())
	}
	return current
}

// DaysInPeriod returns the accrual days between two due dates.
func (c Calendar) DaysInPeriod(start, end time.Time) int {
	if c.DayCount == DayCount30DayMonth {
		return 30
	}
	return DaysBetween(start, end)
}

// DaysBetween counts calendar days, ignoring time of day.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// addMonths moves by whole months, clamping the day to the end of a shorter
// target month (Jan 31 + 1 month = Feb 28) instead of overflowing into the
// next month the way time.AddDate does.
func addMonths(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := daysIn(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
