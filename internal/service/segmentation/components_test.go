package segmentation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/salon-crm/internal/domain"
)

type staticSegments []domain.SegmentDefinition

func (s staticSegments) LifecycleSegments(context.Context) ([]domain.SegmentDefinition, error) {
	return s, nil
}

func TestLoadDirectory(t *testing.T) {
	dir, err := LoadDirectory(context.Background(), staticSegments{
		{ID: 1, Tag: "new", Type: domain.SegmentLifecycle},
		{ID: 2, Tag: "VIP", Type: domain.SegmentLifecycle},
		{ID: 3, Tag: "SUMMER_PROMO", Type: domain.SegmentLifecycle},
		{ID: 4, Tag: "DORMANT", Type: domain.SegmentProtected},
	})
	require.NoError(t, err)

	id, ok := dir.Lookup(domain.TagNew)
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)

	id, ok = dir.Lookup(domain.TagVIP)
	assert.True(t, ok)
	assert.Equal(t, int64(2), id)

	_, ok = dir.Lookup(domain.TagDormant)
	assert.False(t, ok, "protected definitions are not part of the directory")

	assert.Equal(t, 2, dir.Len())
	assert.Len(t, dir.Missing(), len(domain.LifecycleTags())-2)
}

type countingReader struct {
	total int64
	rows  int
	calls []int // offsets requested
}

func (r *countingReader) CountCustomers(context.Context) (int64, error) { return r.total, nil }

func (r *countingReader) PageCustomers(_ context.Context, offset, limit int) ([]domain.Customer, error) {
	r.calls = append(r.calls, offset)
	var out []domain.Customer
	for i := offset; i < r.rows && i < offset+limit; i++ {
		out = append(out, domain.Customer{ID: int64(i + 1)})
	}
	return out, nil
}

func drain(t *testing.T, p *CustomerPager) []int64 {
	t.Helper()
	var ids []int64
	for {
		page, err := p.Next(context.Background())
		require.NoError(t, err)
		if page == nil {
			return ids
		}
		for _, c := range page {
			ids = append(ids, c.ID)
		}
	}
}

func TestCustomerPager_VisitsEveryCustomerOnce(t *testing.T) {
	r := &countingReader{total: 25, rows: 25}
	p := NewCustomerPager(r, 10)

	ids := drain(t, p)
	require.Len(t, ids, 25)
	for i, id := range ids {
		assert.Equal(t, int64(i+1), id)
	}
	assert.Equal(t, []int{0, 10, 20}, r.calls)
	assert.Equal(t, int64(25), p.Fetched())
}

func TestCustomerPager_StopsWhenCountReached(t *testing.T) {
	// Exact multiple: the count stops paging without an empty trailing query.
	r := &countingReader{total: 20, rows: 20}
	drain(t, NewCustomerPager(r, 10))
	assert.Equal(t, []int{0, 10}, r.calls)
}

func TestCustomerPager_StopsOnShortPage(t *testing.T) {
	// Rows deleted after counting: the short page ends iteration.
	r := &countingReader{total: 30, rows: 14}
	ids := drain(t, NewCustomerPager(r, 10))
	assert.Len(t, ids, 14)
	assert.Equal(t, []int{0, 10}, r.calls)
}

func TestCustomerPager_EmptyTable(t *testing.T) {
	r := &countingReader{}
	assert.Empty(t, drain(t, NewCustomerPager(r, 10)))
	assert.Empty(t, r.calls)
}

type batchRecorder struct{ batches [][]domain.SegmentAssignment }

func (b *batchRecorder) PurgeLifecycleAssignments(context.Context) (int64, error) { return 7, nil }
func (b *batchRecorder) BulkInsertAssignments(_ context.Context, batch []domain.SegmentAssignment) error {
	b.batches = append(b.batches, append([]domain.SegmentAssignment(nil), batch...))
	return nil
}

func TestAssignmentReplacer_FlushesAtThreshold(t *testing.T) {
	w := &batchRecorder{}
	r := NewAssignmentReplacer(w, 3)
	ctx := context.Background()

	n, err := r.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	for i := 1; i <= 7; i++ {
		require.NoError(t, r.Add(ctx, domain.SegmentAssignment{CustomerID: int64(i), SegmentID: 1}))
	}
	assert.Equal(t, 2, r.Flushes())
	assert.Equal(t, 1, r.Pending())

	require.NoError(t, r.Flush(ctx))
	require.NoError(t, r.Flush(ctx), "flushing an empty buffer is a no-op")

	require.Len(t, w.batches, 3)
	assert.Len(t, w.batches[0], 3)
	assert.Len(t, w.batches[1], 3)
	assert.Equal(t, []domain.SegmentAssignment{{CustomerID: 7, SegmentID: 1}}, w.batches[2])
	assert.Equal(t, 3, r.Flushes())
	assert.Equal(t, int64(7), r.Written())
}

type fakeQueryRepo struct {
	segments map[string]domain.SegmentDefinition
	members  map[int64][]int64 // segment id -> customer ids for shop 1
}

func (f *fakeQueryRepo) SegmentByTag(_ context.Context, tag string) (*domain.SegmentDefinition, error) {
	s, ok := f.segments[tag]
	if !ok {
		return nil, ErrSegmentNotFound
	}
	return &s, nil
}

func (f *fakeQueryRepo) SegmentByID(_ context.Context, id int64) (*domain.SegmentDefinition, error) {
	for _, s := range f.segments {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, ErrSegmentNotFound
}

func (f *fakeQueryRepo) CustomerIDsBySegment(_ context.Context, shopID, segmentID int64) ([]int64, error) {
	if shopID != 1 {
		return nil, nil
	}
	return f.members[segmentID], nil
}

func (f *fakeQueryRepo) LatestRun(context.Context) (*domain.RunSummary, error) {
	return nil, ErrNoRuns
}

func newFakeQueryRepo() *fakeQueryRepo {
	return &fakeQueryRepo{
		segments: map[string]domain.SegmentDefinition{
			"NEW":     {ID: 1, Tag: "NEW", Title: "New customers"},
			"VIP":     {ID: 4, Tag: "VIP", Title: "VIP customers"},
			"DORMANT": {ID: 5, Tag: "DORMANT", Title: "Dormant customers"},
		},
		members: map[int64][]int64{1: {10, 11, 12}, 4: {20}},
	}
}

func TestQueryService_ByTag(t *testing.T) {
	q := NewQueryService(newFakeQueryRepo())
	ctx := context.Background()

	res, err := q.CustomersBySegmentTag(ctx, 1, " new ")
	require.NoError(t, err)
	assert.Equal(t, "NEW", res.SegmentTag)
	assert.Equal(t, 3, res.CustomerCount)
	assert.Equal(t, []int64{10, 11, 12}, res.CustomerIDs)

	res, err = q.CustomersBySegmentTag(ctx, 2, "NEW")
	require.NoError(t, err)
	assert.Equal(t, 0, res.CustomerCount)
	assert.NotNil(t, res.CustomerIDs)

	_, err = q.CustomersBySegmentTag(ctx, 1, "UNKNOWN")
	assert.ErrorIs(t, err, ErrSegmentNotFound)

	res, err = q.CustomersBySegmentID(ctx, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "VIP", res.SegmentTag)
}

func TestQueryService_MultipleTagsSkipsUnknown(t *testing.T) {
	q := NewQueryService(newFakeQueryRepo())

	res, err := q.CustomersBySegmentTags(context.Background(), 1, []string{"vip", "UNKNOWN", "VIP", "dormant"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "VIP", res[0].SegmentTag)
	assert.Equal(t, 1, res[0].CustomerCount)
	assert.Equal(t, "DORMANT", res[1].SegmentTag)
	assert.Equal(t, 0, res[1].CustomerCount)

	all, err := q.CustomersByLifecycleSegments(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
