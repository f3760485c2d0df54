package segmentation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ignite/salon-crm/internal/domain"
)

// memDB is an in-memory CRM database with transactional assignment writes.
type memDB struct {
	mu          sync.Mutex
	customers   []domain.Customer
	segments    []domain.SegmentDefinition
	assignments map[domain.SegmentAssignment]bool

	inserts      []int // batch size of every committed-or-not bulk insert
	purges       int
	pageCalls    int
	failInsertAt int // 1-based insert call that fails; 0 never fails
	failSegments error
	failCount    error
	commits      int
	rollbacks    int
}

var errInjected = errors.New("injected failure")

func newMemDB() *memDB {
	db := &memDB{assignments: make(map[domain.SegmentAssignment]bool)}
	for i, tag := range domain.LifecycleTags() {
		db.segments = append(db.segments, domain.SegmentDefinition{
			ID:   int64(i + 1),
			Tag:  tag.String(),
			Type: domain.SegmentLifecycle,
		})
	}
	db.segments = append(db.segments,
		domain.SegmentDefinition{ID: 11, Tag: "VIP_ATTENTION", Type: domain.SegmentProtected},
		domain.SegmentDefinition{ID: 12, Tag: "CHURN_RISK_HIGH", Type: domain.SegmentProtected},
	)
	return db
}

func (db *memDB) addNewCustomers(n int, now time.Time) {
	one := 1
	for i := 0; i < n; i++ {
		db.customers = append(db.customers, domain.Customer{
			ID:         int64(len(db.customers) + 1),
			ShopID:     int64(i%3 + 1),
			CreatedAt:  now.AddDate(0, 0, -5),
			VisitCount: &one,
		})
	}
}

func (db *memDB) segmentType(id int64) domain.SegmentType {
	for _, s := range db.segments {
		if s.ID == id {
			return s.Type
		}
	}
	return ""
}

func (db *memDB) snapshot() map[domain.SegmentAssignment]bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make(map[domain.SegmentAssignment]bool, len(db.assignments))
	for k := range db.assignments {
		out[k] = true
	}
	return out
}

// WithinTx works on a copy of the assignments and swaps it in on success.
func (db *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	tx := &memTx{db: db, assignments: db.snapshot()}
	if err := fn(ctx, tx); err != nil {
		db.mu.Lock()
		db.rollbacks++
		db.mu.Unlock()
		return err
	}
	db.mu.Lock()
	db.assignments = tx.assignments
	db.commits++
	db.mu.Unlock()
	return nil
}

type memTx struct {
	db          *memDB
	assignments map[domain.SegmentAssignment]bool
}

func (tx *memTx) CountCustomers(context.Context) (int64, error) {
	if tx.db.failCount != nil {
		return 0, tx.db.failCount
	}
	return int64(len(tx.db.customers)), nil
}

func (tx *memTx) PageCustomers(_ context.Context, offset, limit int) ([]domain.Customer, error) {
	tx.db.pageCalls++
	sorted := append([]domain.Customer(nil), tx.db.customers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	if offset >= len(sorted) {
		return []domain.Customer{}, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], nil
}

func (tx *memTx) LifecycleSegments(context.Context) ([]domain.SegmentDefinition, error) {
	if tx.db.failSegments != nil {
		return nil, tx.db.failSegments
	}
	var out []domain.SegmentDefinition
	for _, s := range tx.db.segments {
		if s.IsLifecycle() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (tx *memTx) PurgeLifecycleAssignments(context.Context) (int64, error) {
	tx.db.purges++
	var n int64
	for a := range tx.assignments {
		if tx.db.segmentType(a.SegmentID) == domain.SegmentLifecycle {
			delete(tx.assignments, a)
			n++
		}
	}
	return n, nil
}

func (tx *memTx) BulkInsertAssignments(_ context.Context, batch []domain.SegmentAssignment) error {
	tx.db.inserts = append(tx.db.inserts, len(batch))
	if tx.db.failInsertAt > 0 && len(tx.db.inserts) == tx.db.failInsertAt {
		return errInjected
	}
	for _, a := range batch {
		tx.assignments[a] = true
	}
	return nil
}

// recordingReporter keeps every summary it receives.
type recordingReporter struct {
	mu        sync.Mutex
	summaries []domain.RunSummary
	err       error
}

func (r *recordingReporter) Record(_ context.Context, s domain.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, s)
	return r.err
}
