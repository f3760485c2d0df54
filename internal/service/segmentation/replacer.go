package segmentation

import (
	"context"
	"fmt"

	"github.com/ignite/salon-crm/internal/domain"
)

// AssignmentReplacer purges lifecycle assignments and writes new ones in
// bulk batches.
type AssignmentReplacer struct {
	writer  AssignmentWriter
	size    int
	buf     []domain.SegmentAssignment
	flushes int
	written int64
}

// NewAssignmentReplacer creates a replacer flushing every size assignments;
// size <= 0 means DefaultBatchSize.
func NewAssignmentReplacer(writer AssignmentWriter, size int) *AssignmentReplacer {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &AssignmentReplacer{
		writer: writer,
		size:   size,
		buf:    make([]domain.SegmentAssignment, 0, size),
	}
}

// Purge removes every lifecycle assignment in one bulk delete.
func (r *AssignmentReplacer) Purge(ctx context.Context) (int64, error) {
	n, err := r.writer.PurgeLifecycleAssignments(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge lifecycle assignments: %w", err)
	}
	return n, nil
}

// Add buffers a; a full buffer is written immediately.
func (r *AssignmentReplacer) Add(ctx context.Context, a domain.SegmentAssignment) error {
	r.buf = append(r.buf, a)
	if len(r.buf) >= r.size {
		return r.Flush(ctx)
	}
	return nil
}

// Flush writes whatever is buffered. An empty buffer is a no-op.
func (r *AssignmentReplacer) Flush(ctx context.Context) error {
	if len(r.buf) == 0 {
		return nil
	}
	if err := r.writer.BulkInsertAssignments(ctx, r.buf); err != nil {
		return fmt.Errorf("bulk insert %d assignments: %w", len(r.buf), err)
	}
	r.flushes++
	r.written += int64(len(r.buf))
	r.buf = r.buf[:0]
	return nil
}

// Flushes is the number of bulk inserts issued.
func (r *AssignmentReplacer) Flushes() int { return r.flushes }

// Written is the number of assignments persisted so far.
func (r *AssignmentReplacer) Written() int64 { return r.written }

// Pending is the number of buffered, unwritten assignments.
func (r *AssignmentReplacer) Pending() int { return len(r.buf) }
