package segmentation

import (
	"context"
	"fmt"

	"github.com/ignite/salon-crm/internal/domain"
)

// DefaultBatchSize is the page size and the insert flush threshold.
const DefaultBatchSize = 1000

// CustomerPager walks the customer table in fixed-size pages. It stops when
// a page comes back short or the running total reaches the initial count.
type CustomerPager struct {
	reader  CustomerReader
	size    int
	total   int64
	counted bool
	offset  int
	fetched int64
	done    bool
}

// NewCustomerPager creates a pager; size <= 0 means DefaultBatchSize.
func NewCustomerPager(reader CustomerReader, size int) *CustomerPager {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &CustomerPager{reader: reader, size: size}
}

// Total counts the customers once and caches the answer.
func (p *CustomerPager) Total(ctx context.Context) (int64, error) {
	if p.counted {
		return p.total, nil
	}
	n, err := p.reader.CountCustomers(ctx)
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	p.total, p.counted = n, true
	return n, nil
}

// Next returns the next page, or nil once the table is exhausted.
func (p *CustomerPager) Next(ctx context.Context) ([]domain.Customer, error) {
	if _, err := p.Total(ctx); err != nil {
		return nil, err
	}
	if p.done || p.fetched >= p.total {
		p.done = true
		return nil, nil
	}

	page, err := p.reader.PageCustomers(ctx, p.offset, p.size)
	if err != nil {
		return nil, fmt.Errorf("page customers at offset %d: %w", p.offset, err)
	}
	p.offset += p.size
	p.fetched += int64(len(page))
	if len(page) < p.size {
		p.done = true
	}
	if len(page) == 0 {
		return nil, nil
	}
	return page, nil
}

// Fetched is the number of customers returned so far.
func (p *CustomerPager) Fetched() int64 { return p.fetched }
