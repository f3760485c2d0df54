package segmentation

import (
	"context"

	"github.com/ignite/salon-crm/internal/domain"
)

// CustomerReader pages over the customer table.
type CustomerReader interface {
	// CountCustomers returns the number of customers across all shops.
	CountCustomers(ctx context.Context) (int64, error)

	// PageCustomers returns up to limit customers starting at offset, in a
	// stable order so consecutive pages neither overlap nor skip rows.
	PageCustomers(ctx context.Context, offset, limit int) ([]domain.Customer, error)
}

// SegmentReader loads the segment catalogue.
type SegmentReader interface {
	// LifecycleSegments returns the definitions the nightly job owns.
	LifecycleSegments(ctx context.Context) ([]domain.SegmentDefinition, error)
}

// AssignmentWriter replaces lifecycle assignments.
type AssignmentWriter interface {
	// PurgeLifecycleAssignments deletes every assignment to a lifecycle
	// segment in one statement and returns the number of rows removed.
	// Protected segment assignments are left alone.
	PurgeLifecycleAssignments(ctx context.Context) (int64, error)

	// BulkInsertAssignments writes all assignments in one statement. The
	// slice is reused by the caller afterwards and must not be retained.
	BulkInsertAssignments(ctx context.Context, assignments []domain.SegmentAssignment) error
}

// Store is everything a run touches, bound to one unit of work.
type Store interface {
	CustomerReader
	SegmentReader
	AssignmentWriter
}

// Transactor runs fn inside a single unit of work. If fn returns an error
// every write made through store is rolled back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// Reporter receives the summary of every finished run.
type Reporter interface {
	Record(ctx context.Context, summary domain.RunSummary) error
}

// QueryRepository answers the downstream "who holds segment X" questions.
type QueryRepository interface {
	// SegmentByTag returns ErrSegmentNotFound for an unknown tag.
	SegmentByTag(ctx context.Context, tag string) (*domain.SegmentDefinition, error)

	// SegmentByID returns ErrSegmentNotFound for an unknown id.
	SegmentByID(ctx context.Context, id int64) (*domain.SegmentDefinition, error)

	// CustomerIDsBySegment lists the shop's customers assigned to segmentID.
	CustomerIDsBySegment(ctx context.Context, shopID, segmentID int64) ([]int64, error)

	// LatestRun returns ErrNoRuns when nothing has been recorded yet.
	LatestRun(ctx context.Context) (*domain.RunSummary, error)
}
