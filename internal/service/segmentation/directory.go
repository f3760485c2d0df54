package segmentation

import (
	"context"
	"fmt"

	"github.com/ignite/salon-crm/internal/domain"
	"github.com/ignite/salon-crm/internal/pkg/logger"
)

// Directory resolves lifecycle tags to segment ids for one run.
type Directory struct {
	ids map[domain.LifecycleTag]int64
}

// LoadDirectory reads the lifecycle catalogue once. Stored tags that are not
// lifecycle tags are logged and ignored.
func LoadDirectory(ctx context.Context, reader SegmentReader) (Directory, error) {
	defs, err := reader.LifecycleSegments(ctx)
	if err != nil {
		return Directory{}, fmt.Errorf("load lifecycle segments: %w", err)
	}

	d := Directory{ids: make(map[domain.LifecycleTag]int64, len(defs))}
	for _, def := range defs {
		if !def.IsLifecycle() {
			continue
		}
		tag, ok := domain.ParseLifecycleTag(def.Tag)
		if !ok {
			logger.Warn("ignoring unknown lifecycle segment tag", "segment_tag", def.Tag, "segment_id", def.ID)
			continue
		}
		d.ids[tag] = def.ID
	}
	return d, nil
}

// Lookup returns the segment id for tag.
func (d Directory) Lookup(tag domain.LifecycleTag) (int64, bool) {
	id, ok := d.ids[tag]
	return id, ok
}

// Len is the number of resolvable tags.
func (d Directory) Len() int { return len(d.ids) }

// Missing lists lifecycle tags with no segment row.
func (d Directory) Missing() []domain.LifecycleTag {
	var out []domain.LifecycleTag
	for _, tag := range domain.LifecycleTags() {
		if _, ok := d.ids[tag]; !ok {
			out = append(out, tag)
		}
	}
	return out
}
