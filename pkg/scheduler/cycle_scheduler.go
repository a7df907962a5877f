package scheduler

import (
	"context"
	"sync"
	"time"

	"mqtt-relay-controller/pkg/logger"
)

// CycleScheduler drives the control loop at a fixed period. Cycles are
// strictly sequential; a cycle that overruns its period delays the next tick
// instead of overlapping it.
type CycleScheduler struct {
	interval time.Duration

	mu            sync.Mutex
	lastStart     time.Time
	lastDuration  time.Duration
	cyclesStarted int64
}

// NewCycleScheduler creates a scheduler with the given cycle period
func NewCycleScheduler(interval time.Duration) *CycleScheduler {
	if interval == 0 {
		interval = 5 * time.Second
	}
	return &CycleScheduler{interval: interval}
}

// Start runs the cycle callback on the fixed period until the context is
// cancelled. The first cycle runs immediately.
func (s *CycleScheduler) Start(ctx context.Context, cycle func(context.Context)) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.LogInfo("🔄 Control loop started (period: %v)", s.interval)

	s.runCycle(ctx, cycle)

	for {
		select {
		case <-ctx.Done():
			logger.LogDebug("🔄 Control loop stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx, cycle)
		}
	}
}

// runCycle executes one cycle and records its timing
func (s *CycleScheduler) runCycle(ctx context.Context, cycle func(context.Context)) {
	start := time.Now()

	cycle(ctx)

	elapsed := time.Since(start)

	s.mu.Lock()
	s.lastStart = start
	s.lastDuration = elapsed
	s.cyclesStarted++
	s.mu.Unlock()

	if elapsed > s.interval {
		logger.LogWarn("⏰ Cycle overran its period: %v > %v", elapsed, s.interval)
	} else {
		logger.LogTrace("Cycle completed in %v", elapsed)
	}
}

// LastDuration returns the duration of the most recent cycle
func (s *CycleScheduler) LastDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDuration
}

// CyclesStarted returns how many cycles have run
func (s *CycleScheduler) CyclesStarted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cyclesStarted
}
