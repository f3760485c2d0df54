package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/salon-crm/internal/domain"
	"github.com/ignite/salon-crm/internal/service/segmentation"
)

// QueryRepo implements segmentation.QueryRepository.
type QueryRepo struct {
	db   *sql.DB
	runs *RunHistoryRepo
}

// NewQueryRepo creates the read-side repository.
func NewQueryRepo(db *sql.DB) *QueryRepo {
	return &QueryRepo{db: db, runs: NewRunHistoryRepo(db)}
}

const segmentColumns = `segment_id, segment_tag, segment_title, COALESCE(color_code,''), segment_type,
		       created_at, modified_at`

func (r *QueryRepo) SegmentByTag(ctx context.Context, tag string) (*domain.SegmentDefinition, error) {
	d, err := scanSegment(r.db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segment WHERE segment_tag = $1`, tag))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, segmentation.ErrSegmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment %q: %w", tag, err)
	}
	return d, nil
}

func (r *QueryRepo) SegmentByID(ctx context.Context, id int64) (*domain.SegmentDefinition, error) {
	d, err := scanSegment(r.db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segment WHERE segment_id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, segmentation.ErrSegmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get segment %d: %w", id, err)
	}
	return d, nil
}

func (r *QueryRepo) CustomerIDsBySegment(ctx context.Context, shopID, segmentID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sbc.customer_id
		FROM segment_by_customer sbc
		JOIN customer c ON c.customer_id = sbc.customer_id
		WHERE sbc.segment_id = $1 AND c.shop_id = $2
		ORDER BY sbc.customer_id
	`, segmentID, shopID)
	if err != nil {
		return nil, fmt.Errorf("list segment customers: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan customer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *QueryRepo) LatestRun(ctx context.Context) (*domain.RunSummary, error) {
	return r.runs.Latest(ctx)
}
