/*
scheduler.go - Calculation history retention

PURPOSE:
  Periodically deletes stored calculations older than the retention window
  so the history database does not grow without bound.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Prunes once immediately on Start, then on every tick
  - A retention of zero disables the scheduler

USAGE:
  scheduler := NewRetentionScheduler(store, 30*24*time.Hour, time.Hour, metrics, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - store/sqlite/sqlite.go: PruneBefore
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/loan-engine/store/sqlite"
)

// RetentionScheduler prunes old calculations in the background.
type RetentionScheduler struct {
	Store         *sqlite.Store
	Retention     time.Duration
	CheckInterval time.Duration

	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time

	ticker  *time.Ticker
	stop    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	lastRun time.Time
}

// NewRetentionScheduler creates a new scheduler. A zero interval defaults to
// one hour.
func NewRetentionScheduler(store *sqlite.Store, retention, interval time.Duration, metrics *Metrics, logger *zap.Logger) *RetentionScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionScheduler{
		Store:         store,
		Retention:     retention,
		CheckInterval: interval,
		metrics:       metrics,
		logger:        logger.Named("retention"),
		now:           time.Now,
	}
}

// Enabled reports whether a retention window is configured.
func (rs *RetentionScheduler) Enabled() bool {
	return rs.Retention > 0
}

// Start begins the scheduler. It is a no-op when disabled or already running.
func (rs *RetentionScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled() {
		rs.logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.logger.Info("started",
		zap.Duration("retention", rs.Retention),
		zap.Duration("interval", rs.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight prune to finish.
func (rs *RetentionScheduler) Stop() {
	rs.mu.Lock()
	ticker, stop := rs.ticker, rs.stop
	rs.ticker, rs.stop = nil, nil
	rs.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	// RunNow takes mu, so wait outside it.
	rs.wg.Wait()
	rs.logger.Info("stopped")
}

func (rs *RetentionScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow(context.Background())

	for {
		select {
		case <-ticker.C:
			rs.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow prunes synchronously and returns how many records were removed.
func (rs *RetentionScheduler) RunNow(ctx context.Context) int64 {
	cutoff := rs.now().Add(-rs.Retention)

	removed, err := rs.Store.PruneBefore(ctx, cutoff)
	if err != nil {
		rs.logger.Error("prune failed", zap.Error(err))
		return 0
	}
	if rs.metrics != nil {
		rs.metrics.historyPruned.Add(float64(removed))
	}
	if removed > 0 {
		rs.logger.Info("pruned calculations", zap.Int64("removed", removed), zap.Time("cutoff", cutoff))
	}

	rs.mu.Lock()
	rs.lastRun = rs.now()
	rs.mu.Unlock()
	return removed
}

// GetNextRunTime returns when the next prune is due.
func (rs *RetentionScheduler) GetNextRunTime() time.Time {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.lastRun.IsZero() {
		return rs.now()
	}
	return rs.lastRun.Add(rs.CheckInterval)
}
