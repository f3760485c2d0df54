package segmentation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/salon-crm/internal/domain"
	"github.com/ignite/salon-crm/internal/lifecycle"
	"github.com/ignite/salon-crm/internal/pkg/distlock"
	"github.com/ignite/salon-crm/internal/pkg/logger"
)

// Config controls a run.
type Config struct {
	// BatchSize is both the customer page size and the insert flush
	// threshold. Defaults to DefaultBatchSize.
	BatchSize int
	// LockTTL is the lease on the distributed run lock, renewed while the
	// run is in progress. Defaults to 10 minutes.
	LockTTL time.Duration
	// Location is where "today" is evaluated. Defaults to time.Local.
	Location *time.Location
}

// Status is a point-in-time view of the service.
type Status struct {
	State   domain.RunState    `json:"state"`
	Running bool               `json:"running"`
	LastRun *domain.RunSummary `json:"last_run,omitempty"`
}

// Service runs the lifecycle segment update. It is safe for concurrent use;
// overlapping runs are rejected with ErrRunInProgress.
type Service struct {
	tx        Transactor
	locks     distlock.Factory
	reporters []Reporter
	cfg       Config
	now       func() time.Time

	mu      sync.Mutex
	running bool
	state   domain.RunState
	last    *domain.RunSummary
}

// NewService creates the orchestrator. locks may be nil, in which case only
// the in-process guard serialises runs.
func NewService(tx Transactor, locks distlock.Factory, cfg Config, reporters ...Reporter) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		tx:        tx,
		locks:     locks,
		reporters: reporters,
		cfg:       cfg,
		now:       time.Now,
		state:     domain.RunIdle,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Status reports the current state and the last finished run.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{State: s.state, Running: s.running}
	if s.last != nil {
		last := *s.last
		st.LastRun = &last
	}
	return st
}

func (s *Service) setState(state domain.RunState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executes one segment update. The returned summary is non-nil whenever
// the run actually started, including failed runs.
func (s *Service) Run(ctx context.Context, trigger domain.RunTrigger) (*domain.RunSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.state = domain.RunIdle
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if s.locks != nil {
		lock := s.locks()
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire segment update lock: %w", err)
		}
		if !acquired {
			return nil, ErrRunInProgress
		}
		stop := distlock.KeepAlive(ctx, lock, s.cfg.LockTTL)
		defer func() {
			stop()
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("segment update lock release failed", "error", err)
			}
		}()
	}

	summary := &domain.RunSummary{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		State:     domain.RunIdle,
		StartedAt: s.now().In(s.cfg.Location),
		TagCounts: make(map[string]int),
	}
	log := logger.With("run_id", summary.ID, "trigger", trigger)
	log.Info("segment update started", "batch_size", s.cfg.BatchSize)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		return s.execute(ctx, store, summary, log)
	})

	summary.FinishedAt = s.now().In(s.cfg.Location)
	if err != nil {
		summary.State = domain.RunFailed
		summary.Error = err.Error()
		log.Error("segment update failed, changes rolled back",
			"error", err, "processed", summary.Processed, "duration", summary.Duration())
	} else {
		summary.State = domain.RunCompleted
		log.Info("segment update completed",
			"processed", summary.Processed,
			"assigned", summary.Assigned,
			"skipped", summary.Skipped,
			"purged", summary.Purged,
			"flushes", summary.Flushes,
			"duration", summary.Duration())
		for _, tag := range domain.LifecycleTags() {
			if n := summary.TagCounts[tag.String()]; n > 0 {
				log.Info("segment distribution", "segment_tag", tag, "customers", n)
			}
		}
	}
	s.setState(summary.State)

	s.report(context.WithoutCancel(ctx), *summary, log)

	s.mu.Lock()
	last := *summary
	s.last = &last
	s.mu.Unlock()

	return summary, err
}

func (s *Service) execute(ctx context.Context, store Store, summary *domain.RunSummary, log *logger.Logger) error {
	s.setState(domain.RunPurging)
	summary.State = domain.RunPurging

	dir, err := LoadDirectory(ctx, store)
	if err != nil {
		return err
	}
	if missing := dir.Missing(); len(missing) > 0 {
		log.Warn("lifecycle segments missing from catalogue", "tags", missing)
	}

	replacer := NewAssignmentReplacer(store, s.cfg.BatchSize)
	log.Info("purging lifecycle segment assignments")
	purged, err := replacer.Purge(ctx)
	if err != nil {
		return err
	}
	summary.Purged = purged
	log.Info("lifecycle segment assignments purged", "purged", purged)

	s.setState(domain.RunPaging)
	summary.State = domain.RunPaging

	pager := NewCustomerPager(store, s.cfg.BatchSize)
	total, err := pager.Total(ctx)
	if err != nil {
		return err
	}
	summary.TotalCustomers = total
	log.Info("customers to classify", "total", total)

	classifier := lifecycle.NewClassifier(summary.StartedAt)
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return err
		}
		if page == nil {
			break
		}

		for _, customer := range page {
			tag := classifier.Classify(customer)
			segmentID, ok := dir.Lookup(tag)
			if !ok {
				log.Warn("no segment defined for lifecycle tag", "segment_tag", tag, "customer_id", customer.ID)
				summary.Skipped++
				continue
			}
			if err := replacer.Add(ctx, domain.SegmentAssignment{CustomerID: customer.ID, SegmentID: segmentID}); err != nil {
				return err
			}
			summary.TagCounts[tag.String()]++
		}
		summary.Processed += int64(len(page))
		log.Debug("segment update progress", "processed", summary.Processed, "total", total)
	}

	if err := replacer.Flush(ctx); err != nil {
		return err
	}
	summary.Assigned = replacer.Written()
	summary.Flushes = replacer.Flushes()
	return nil
}

func (s *Service) report(ctx context.Context, summary domain.RunSummary, log *logger.Logger) {
	for _, r := range s.reporters {
		if err := r.Record(ctx, summary); err != nil {
			log.Warn("segment run report failed", "reporter", fmt.Sprintf("%T", r), "error", err)
		}
	}
}

// IsBusy reports whether err means another run holds the lock.
func IsBusy(err error) bool { return errors.Is(err, ErrRunInProgress) }
