package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/salon-crm/internal/domain"
	"github.com/ignite/salon-crm/internal/pkg/logger"
	"github.com/ignite/salon-crm/internal/service/segmentation"
)

// SegmentRunner is the part of segmentation.Service the scheduler drives.
type SegmentRunner interface {
	Run(ctx context.Context, trigger domain.RunTrigger) (*domain.RunSummary, error)
}

// SegmentScheduler fires one segment update per day at a fixed wall-clock
// time in its location.
type SegmentScheduler struct {
	runner SegmentRunner
	hour   int
	minute int
	loc    *time.Location

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	runs     int64
	failures int64
	skipped  int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewSegmentScheduler creates a scheduler firing daily at hour:minute in loc.
func NewSegmentScheduler(runner SegmentRunner, hour, minute int, loc *time.Location) *SegmentScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &SegmentScheduler{
		runner: runner,
		hour:   hour,
		minute: minute,
		loc:    loc,
		now:    time.Now,
		after:  time.After,
	}
}

// Start launches the scheduling loop.
func (s *SegmentScheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("segment scheduler already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	logger.Info("segment scheduler started",
		"at", fmt.Sprintf("%02d:%02d", s.hour, s.minute),
		"timezone", s.loc.String(),
		"next_run", nextRun(s.now(), s.hour, s.minute, s.loc))

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *SegmentScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.Info("segment scheduler stopped",
		"runs", atomic.LoadInt64(&s.runs),
		"failures", atomic.LoadInt64(&s.failures),
		"skipped", atomic.LoadInt64(&s.skipped))
}

// SchedulerStats counts scheduled runs by outcome.
type SchedulerStats struct {
	Runs     int64 `json:"runs"`
	Failures int64 `json:"failures"`
	Skipped  int64 `json:"skipped"`
}

// Stats returns the counters since Start.
func (s *SegmentScheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Runs:     atomic.LoadInt64(&s.runs),
		Failures: atomic.LoadInt64(&s.failures),
		Skipped:  atomic.LoadInt64(&s.skipped),
	}
}

func (s *SegmentScheduler) loop() {
	defer s.wg.Done()
	for {
		next := nextRun(s.now(), s.hour, s.minute, s.loc)
		select {
		case <-s.ctx.Done():
			return
		case <-s.after(time.Until(next)):
			s.fire()
		}
	}
}

// fire runs one update. Errors are logged and never stop the loop.
func (s *SegmentScheduler) fire() {
	atomic.AddInt64(&s.runs, 1)
	summary, err := s.runner.Run(s.ctx, domain.TriggerScheduled)
	switch {
	case segmentation.IsBusy(err):
		atomic.AddInt64(&s.skipped, 1)
		logger.Warn("scheduled segment update skipped, another run holds the lock")
	case err != nil:
		atomic.AddInt64(&s.failures, 1)
		logger.Error("scheduled segment update failed", "error", err)
	default:
		logger.Info("scheduled segment update finished", "run_id", summary.ID, "assigned", summary.Assigned)
	}
}

// nextRun is the first hour:minute in loc strictly after now.
func nextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
