package amortization_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loan-engine/amortization"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustCalendar(t *testing.T, f amortization.Frequency, m amortization.DayCountMethod) amortization.Calendar {
	t.Helper()
	c, err := amortization.NewCalendar(f, m)
	require.NoError(t, err)
	return c
}

func TestNextDate_MonthlyClampsToMonthEnd(t *testing.T) {
	c := mustCalendar(t, amortization.Monthly, amortization.DayCountActual)

	feb := c.NextDate(day(2025, time.January, 31))
	assert.Equal(t, day(2025, time.February, 28), feb)

	// The clamped day carries forward, the way a month-stepping schedule does.
	assert.Equal(t, day(2025, time.March, 28), c.NextDate(feb))

	assert.Equal(t, day(2024, time.February, 29), c.NextDate(day(2024, time.January, 31)))
}

func TestNextDate_AllFrequencies(t *testing.T) {
	start := day(2025, time.January, 10)
	cases := []struct {
		freq amortization.Frequency
		want time.Time
	}{
		{amortization.Monthly, day(2025, time.February, 10)},
		{amortization.Annually, day(2026, time.January, 10)},
		{amortization.BiWeekly, day(2025, time.January, 24)},
		{amortization.Biweekly, day(2025, time.January, 24)},
		{amortization.Weekly, day(2025, time.January, 17)},
		{amortization.Daily, day(2025, time.January, 11)},
		{amortization.Quarterly, day(2025, time.April, 10)},
		{amortization.Semiannually, day(2025, time.July, 10)},
		{amortization.Semimonthly, day(2025, time.January, 25)},
		{amortization.Semimonthly15thAndEOM, day(2025, time.January, 15)},
		{amortization.Semimonthly1stAnd15th, day(2025, time.January, 15)},
	}
	for _, tc := range cases {
		t.Run(string(tc.freq), func(t *testing.T) {
			c := mustCalendar(t, tc.freq, amortization.DayCountActual)
			assert.Equal(t, tc.want, c.NextDate(start))
		})
	}
}

func TestNextDate_SemimonthlySnapping(t *testing.T) {
	c := mustCalendar(t, amortization.Semimonthly1stAnd15th, amortization.DayCountActual)

	assert.Equal(t, day(2025, time.January, 15), c.NextDate(day(2025, time.January, 1)))
	assert.Equal(t, day(2025, time.February, 1), c.NextDate(day(2025, time.January, 15)))
	assert.Equal(t, day(2025, time.February, 1), c.NextDate(day(2025, time.January, 31)))
	assert.Equal(t, day(2026, time.January, 1), c.NextDate(day(2025, time.December, 20)))
}

func TestNextDate_AnnualLeapDay(t *testing.T) {
	c := mustCalendar(t, amortization.Annually, amortization.DayCountActual)
	assert.Equal(t, day(2025, time.February, 28), c.NextDate(day(2024, time.February, 29)))
}

func TestDaysInPeriod(t *testing.T) {
	actual := mustCalendar(t, amortization.Monthly, amortization.DayCountActual)
	thirty := mustCalendar(t, amortization.Monthly, amortization.DayCount30DayMonth)

	feb1, mar1 := day(2025, time.February, 1), day(2025, time.March, 1)
	assert.Equal(t, 28, actual.DaysInPeriod(feb1, mar1))
	assert.Equal(t, 30, thirty.DaysInPeriod(feb1, mar1))

	jan1, feb1 := day(2025, time.January, 1), day(2025, time.February, 1)
	assert.Equal(t, 31, actual.DaysInPeriod(jan1, feb1))
	assert.Equal(t, 30, thirty.DaysInPeriod(jan1, feb1))
}

func TestNewCalendar_Unsupported(t *testing.T) {
	_, err := amortization.NewCalendar("Fortnightly-ish", amortization.DayCountActual)
	require.Error(t, err)
	assert.True(t, errors.Is(err, amortization.ErrInvalidConfiguration))

	_, err = amortization.NewCalendar(amortization.Monthly, "Actual/Actual")
	var cfgErr *amortization.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "days_method", cfgErr.Field)
}

func TestPeriodsPerYear(t *testing.T) {
	assert.Equal(t, "26", mustCalendar(t, amortization.BiWeekly, amortization.DayCountActual).PeriodsPerYear().String())
	assert.Equal(t, "24", mustCalendar(t, amortization.Semimonthly15thAndEOM, amortization.DayCountActual).PeriodsPerYear().String())
	assert.Equal(t, "365", mustCalendar(t, amortization.Daily, amortization.DayCountActual).PeriodsPerYear().String())
}
