package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/salon-crm/internal/domain"
	"github.com/ignite/salon-crm/internal/service/segmentation"
)

func TestNextRun(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2026, 10, 15, 1, 30, 0, 0, seoul),
			want: time.Date(2026, 10, 15, 3, 0, 0, 0, seoul),
		},
		{
			name: "exactly at the slot rolls to tomorrow",
			now:  time.Date(2026, 10, 15, 3, 0, 0, 0, seoul),
			want: time.Date(2026, 10, 16, 3, 0, 0, 0, seoul),
		},
		{
			name: "month end",
			now:  time.Date(2026, 10, 31, 23, 0, 0, 0, seoul),
			want: time.Date(2026, 11, 1, 3, 0, 0, 0, seoul),
		},
		{
			name: "now given in UTC is converted first",
			// 2026-10-15 17:00 UTC is 2026-10-16 02:00 KST.
			now:  time.Date(2026, 10, 15, 17, 0, 0, 0, time.UTC),
			want: time.Date(2026, 10, 16, 3, 0, 0, 0, seoul),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nextRun(tt.now, 3, 0, seoul)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

type fakeRunner struct {
	mu       sync.Mutex
	triggers []domain.RunTrigger
	errs     []error
	fired    chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, trigger domain.RunTrigger) (*domain.RunSummary, error) {
	f.mu.Lock()
	n := len(f.triggers)
	f.triggers = append(f.triggers, trigger)
	var err error
	if n < len(f.errs) {
		err = f.errs[n]
	}
	f.mu.Unlock()
	select {
	case f.fired <- struct{}{}:
	default:
	}
	if err != nil {
		return nil, err
	}
	return &domain.RunSummary{ID: "run", State: domain.RunCompleted}, nil
}

func TestSegmentScheduler_FiresAndSurvivesErrors(t *testing.T) {
	runner := &fakeRunner{
		errs:  []error{segmentation.ErrRunInProgress, errors.New("db down"), nil},
		fired: make(chan struct{}, 3),
	}
	s := NewSegmentScheduler(runner, 3, 0, time.UTC)

	var waits []time.Duration
	var mu sync.Mutex
	s.after = func(d time.Duration) <-chan time.Time {
		mu.Lock()
		waits = append(waits, d)
		mu.Unlock()
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	require.NoError(t, s.Start())
	assert.Error(t, s.Start(), "second start is rejected")

	for i := 0; i < 3; i++ {
		select {
		case <-runner.fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d never fired", i+1)
		}
	}
	s.Stop()
	s.Stop()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.GreaterOrEqual(t, len(runner.triggers), 3)
	for _, tr := range runner.triggers {
		assert.Equal(t, domain.TriggerScheduled, tr)
	}

	st := s.Stats()
	assert.GreaterOrEqual(t, st.Runs, int64(3))
	assert.Equal(t, int64(1), st.Skipped)
	assert.Equal(t, int64(1), st.Failures)

	mu.Lock()
	defer mu.Unlock()
	for _, d := range waits {
		assert.LessOrEqual(t, d, 24*time.Hour)
	}
}

func TestSegmentScheduler_StopBeforeFiring(t *testing.T) {
	runner := &fakeRunner{fired: make(chan struct{}, 1)}
	s := NewSegmentScheduler(runner, 3, 0, time.UTC)
	s.after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	require.NoError(t, s.Start())
	s.Stop()

	assert.Empty(t, runner.triggers)
	assert.Equal(t, SchedulerStats{}, s.Stats())
}
