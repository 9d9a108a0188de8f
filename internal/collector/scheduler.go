package collector

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the time between scheduled collection runs.
const DefaultInterval = 2 * time.Hour

// DefaultLookbackHours is the window each scheduled run covers. Runs may
// overlap the previous window; the dedup gate absorbs the overlap.
const DefaultLookbackHours = 2

// Scheduler runs collections periodically.
// Uses context cancellation as the ONLY stop mechanism.
type Scheduler struct {
	collector *Collector
	interval  time.Duration
	lookback  int
	wg        sync.WaitGroup
}

// NewScheduler creates a Scheduler for the collector. Non-positive
// interval or lookback fall back to the defaults.
func NewScheduler(c *Collector, interval time.Duration, lookbackHours int) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if lookbackHours <= 0 {
		lookbackHours = DefaultLookbackHours
	}
	return &Scheduler{
		collector: c,
		interval:  interval,
		lookback:  lookbackHours,
	}
}

// Start begins periodic collection. Call with a cancellable context.
// Performs an initial run immediately, then one per interval. Two
// scheduled runs never overlap each other; an overlapping manual trigger
// is resolved by the store's URL uniqueness, not by coordination here.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.collector.Collect(ctx, s.lookback)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.collector.Collect(ctx, s.lookback)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
