package api

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loan-engine/store/sqlite"
)

var schedulerNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func seedHistory(t *testing.T, store *sqlite.Store, ages ...time.Duration) {
	t.Helper()
	for _, age := range ages {
		_, err := store.SaveCalculation(context.Background(), sqlite.CalculationRecord{
			PaymentFrequency: "Monthly",
			LoanTerm:         360,
			RequestJSON:      []byte(`{}`),
			ResponseJSON:     []byte(`{}`),
			CreatedAt:        schedulerNow.Add(-age),
		})
		require.NoError(t, err)
	}
}

func newTestScheduler(t *testing.T, retention time.Duration) (*RetentionScheduler, *sqlite.Store, *Metrics) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	metrics := NewMetrics()
	rs := NewRetentionScheduler(store, retention, time.Hour, metrics, nil)
	rs.now = func() time.Time { return schedulerNow }
	return rs, store, metrics
}

func TestRetentionScheduler_RunNowPrunesExpired(t *testing.T) {
	// GIVEN: Two records inside a 30 day window and two outside it
	rs, store, metrics := newTestScheduler(t, 30*24*time.Hour)
	seedHistory(t, store, time.Hour, 29*24*time.Hour, 31*24*time.Hour, 90*24*time.Hour)

	// WHEN: The scheduler runs
	removed := rs.RunNow(context.Background())

	// THEN: Only the expired records are gone
	assert.Equal(t, int64(2), removed)
	n, err := store.CountCalculations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.historyPruned))

	// A second run has nothing left to do.
	assert.Equal(t, int64(0), rs.RunNow(context.Background()))
}

func TestRetentionScheduler_NextRunTime(t *testing.T) {
	rs, _, _ := newTestScheduler(t, 24*time.Hour)

	assert.Equal(t, schedulerNow, rs.GetNextRunTime())
	rs.RunNow(context.Background())
	assert.Equal(t, schedulerNow.Add(time.Hour), rs.GetNextRunTime())
}

func TestRetentionScheduler_DisabledWithZeroRetention(t *testing.T) {
	rs, store, _ := newTestScheduler(t, 0)
	seedHistory(t, store, 365*24*time.Hour)

	assert.False(t, rs.Enabled())
	rs.Start()
	rs.Stop()

	n, err := store.CountCalculations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRetentionScheduler_StartPrunesImmediately(t *testing.T) {
	rs, store, _ := newTestScheduler(t, 24*time.Hour)
	seedHistory(t, store, time.Minute, 48*time.Hour)

	rs.Start()
	defer rs.Stop()

	assert.Eventually(t, func() bool {
		n, err := store.CountCalculations(context.Background())
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRetentionScheduler_StopIsIdempotent(t *testing.T) {
	rs, _, _ := newTestScheduler(t, 24*time.Hour)

	rs.Start()
	rs.Start()
	rs.Stop()
	rs.Stop()
}
