package segmentation

import (
	"context"
	"errors"
	"strings"

	"github.com/ignite/salon-crm/internal/domain"
)

// QueryService serves the downstream view of the assignments a run wrote.
type QueryService struct {
	repo QueryRepository
}

// NewQueryService creates a query service backed by the given repository.
func NewQueryService(repo QueryRepository) *QueryService {
	return &QueryService{repo: repo}
}

// CustomersBySegmentTag lists the shop's customers holding tag.
func (q *QueryService) CustomersBySegmentTag(ctx context.Context, shopID int64, tag string) (*domain.SegmentCustomers, error) {
	seg, err := q.repo.SegmentByTag(ctx, strings.ToUpper(strings.TrimSpace(tag)))
	if err != nil {
		return nil, err
	}
	return q.customersOf(ctx, shopID, seg)
}

// CustomersBySegmentID lists the shop's customers holding segment id.
func (q *QueryService) CustomersBySegmentID(ctx context.Context, shopID, segmentID int64) (*domain.SegmentCustomers, error) {
	seg, err := q.repo.SegmentByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	return q.customersOf(ctx, shopID, seg)
}

// CustomersBySegmentTags answers several tags at once. Unknown tags are
// left out of the result.
func (q *QueryService) CustomersBySegmentTags(ctx context.Context, shopID int64, tags []string) ([]domain.SegmentCustomers, error) {
	out := make([]domain.SegmentCustomers, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToUpper(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true

		res, err := q.CustomersBySegmentTag(ctx, shopID, tag)
		if errors.Is(err, ErrSegmentNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

// CustomersByLifecycleSegments answers every lifecycle tag.
func (q *QueryService) CustomersByLifecycleSegments(ctx context.Context, shopID int64) ([]domain.SegmentCustomers, error) {
	tags := domain.LifecycleTags()
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.String()
	}
	return q.CustomersBySegmentTags(ctx, shopID, names)
}

// LatestRun returns the most recently recorded run.
func (q *QueryService) LatestRun(ctx context.Context) (*domain.RunSummary, error) {
	return q.repo.LatestRun(ctx)
}

func (q *QueryService) customersOf(ctx context.Context, shopID int64, seg *domain.SegmentDefinition) (*domain.SegmentCustomers, error) {
	ids, err := q.repo.CustomerIDsBySegment(ctx, shopID, seg.ID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	return &domain.SegmentCustomers{
		SegmentTag:    seg.Tag,
		SegmentTitle:  seg.Title,
		CustomerCount: len(ids),
		CustomerIDs:   ids,
	}, nil
}
