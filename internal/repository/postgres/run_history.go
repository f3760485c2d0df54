package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ignite/salon-crm/internal/domain"
	"github.com/ignite/salon-crm/internal/service/segmentation"
)

// RunHistoryRepo persists run summaries to segment_update_run.
type RunHistoryRepo struct{ db *sql.DB }

// NewRunHistoryRepo creates a run history repository.
func NewRunHistoryRepo(db *sql.DB) *RunHistoryRepo { return &RunHistoryRepo{db: db} }

// Record implements segmentation.Reporter. It runs outside the segment
// update transaction so failed runs are kept too.
func (r *RunHistoryRepo) Record(ctx context.Context, s domain.RunSummary) error {
	counts, err := json.Marshal(s.TagCounts)
	if err != nil {
		return fmt.Errorf("encode tag counts: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO segment_update_run
			(run_id, trigger, state, started_at, finished_at, total_customers,
			 processed, assigned, skipped, purged, flushes, tag_counts, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''))
	`, s.ID, string(s.Trigger), string(s.State), s.StartedAt, s.FinishedAt, s.TotalCustomers,
		s.Processed, s.Assigned, s.Skipped, s.Purged, s.Flushes, counts, s.Error)
	if err != nil {
		return fmt.Errorf("record segment run: %w", err)
	}
	return nil
}

// Latest returns the most recently started run.
func (r *RunHistoryRepo) Latest(ctx context.Context) (*domain.RunSummary, error) {
	var (
		s       domain.RunSummary
		trigger string
		state   string
		counts  []byte
		errText sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, trigger, state, started_at, finished_at, total_customers,
		       processed, assigned, skipped, purged, flushes, tag_counts, error
		FROM segment_update_run
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&s.ID, &trigger, &state, &s.StartedAt, &s.FinishedAt, &s.TotalCustomers,
		&s.Processed, &s.Assigned, &s.Skipped, &s.Purged, &s.Flushes, &counts, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, segmentation.ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("latest segment run: %w", err)
	}
	s.Trigger = domain.RunTrigger(trigger)
	s.State = domain.RunState(state)
	s.Error = errText.String
	if len(counts) > 0 {
		if err := json.Unmarshal(counts, &s.TagCounts); err != nil {
			return nil, fmt.Errorf("decode tag counts: %w", err)
		}
	}
	return &s, nil
}
