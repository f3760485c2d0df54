package domain

import "time"

// RunState is a step of the segment update state machine.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunPurging   RunState = "purging"
	RunPaging    RunState = "paging"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// RunTrigger records who started a segment update.
type RunTrigger string

const (
	TriggerManual    RunTrigger = "manual"
	TriggerScheduled RunTrigger = "scheduled"
)

// RunSummary is the outcome of one segment update run.
type RunSummary struct {
	ID             string         `json:"run_id" db:"run_id"`
	Trigger        RunTrigger     `json:"trigger" db:"trigger"`
	State          RunState       `json:"state" db:"state"`
	StartedAt      time.Time      `json:"started_at" db:"started_at"`
	FinishedAt     time.Time      `json:"finished_at" db:"finished_at"`
	TotalCustomers int64          `json:"total_customers" db:"total_customers"`
	Processed      int64          `json:"processed" db:"processed"`
	Assigned       int64          `json:"assigned" db:"assigned"`
	Skipped        int64          `json:"skipped" db:"skipped"`
	Purged         int64          `json:"purged" db:"purged"`
	Flushes        int            `json:"flushes" db:"flushes"`
	TagCounts      map[string]int `json:"tag_counts" db:"tag_counts"`
	Error          string         `json:"error,omitempty" db:"error"`
}

// Duration is the wall time the run took.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
