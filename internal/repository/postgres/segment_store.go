package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/salon-crm/internal/domain"
)

// SegmentStore implements segmentation.Store. Bind it to a *sql.Tx to get
// all-or-nothing runs.
type SegmentStore struct{ q Querier }

// NewSegmentStore creates a store over q.
func NewSegmentStore(q Querier) *SegmentStore { return &SegmentStore{q: q} }

func (s *SegmentStore) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM customer`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

func (s *SegmentStore) PageCustomers(ctx context.Context, offset, limit int) ([]domain.Customer, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT customer_id, shop_id, created_at, recent_visit_date, visit_count, total_revenue
		FROM customer
		ORDER BY customer_id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("page customers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Customer, 0, limit)
	for rows.Next() {
		var (
			c         domain.Customer
			createdAt sql.NullTime
			visitDate sql.NullTime
			visits    sql.NullInt64
			revenue   sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.ShopID, &createdAt, &visitDate, &visits, &revenue); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		if createdAt.Valid {
			c.CreatedAt = createdAt.Time
		}
		if visitDate.Valid {
			d := visitDate.Time
			c.RecentVisitDate = &d
		}
		if visits.Valid {
			v := int(visits.Int64)
			c.VisitCount = &v
		}
		if revenue.Valid {
			r := revenue.Int64
			c.TotalRevenue = &r
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SegmentStore) LifecycleSegments(ctx context.Context) ([]domain.SegmentDefinition, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT segment_id, segment_tag, segment_title, COALESCE(color_code,''), segment_type,
		       created_at, modified_at
		FROM segment
		WHERE segment_type = $1
		ORDER BY segment_id
	`, string(domain.SegmentLifecycle))
	if err != nil {
		return nil, fmt.Errorf("list lifecycle segments: %w", err)
	}
	defer rows.Close()

	var out []domain.SegmentDefinition
	for rows.Next() {
		d, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *SegmentStore) PurgeLifecycleAssignments(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM segment_by_customer sbc
		USING segment s
		WHERE sbc.segment_id = s.segment_id AND s.segment_type = $1
	`, string(domain.SegmentLifecycle))
	if err != nil {
		return 0, fmt.Errorf("purge lifecycle assignments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge lifecycle assignments rows affected: %w", err)
	}
	return n, nil
}

// BulkInsertAssignments writes the whole batch in one round trip by
// unnesting two parallel arrays.
func (s *SegmentStore) BulkInsertAssignments(ctx context.Context, assignments []domain.SegmentAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	customerIDs := make([]int64, len(assignments))
	segmentIDs := make([]int64, len(assignments))
	for i, a := range assignments {
		customerIDs[i] = a.CustomerID
		segmentIDs[i] = a.SegmentID
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO segment_by_customer (customer_id, segment_id)
		SELECT * FROM unnest($1::bigint[], $2::bigint[])
	`, pq.Array(customerIDs), pq.Array(segmentIDs))
	if err != nil {
		return fmt.Errorf("insert segment assignments: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSegment(row rowScanner) (*domain.SegmentDefinition, error) {
	var (
		d        domain.SegmentDefinition
		segType  string
		modified sql.NullTime
	)
	if err := row.Scan(&d.ID, &d.Tag, &d.Title, &d.ColorCode, &segType, &d.CreatedAt, &modified); err != nil {
		return nil, err
	}
	d.Type = domain.SegmentType(segType)
	if modified.Valid {
		d.ModifiedAt = modified.Time
	}
	return &d, nil
}
