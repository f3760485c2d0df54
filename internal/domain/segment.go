package domain

import (
	"fmt"
	"strings"
	"time"
)

// LifecycleTag is the closed set of segments the nightly job assigns.
type LifecycleTag int

const (
	TagNew LifecycleTag = iota + 1
	TagGrowing
	TagLoyal
	TagVIP
	TagDormant
	TagNewFollowup
	TagNewAtRisk
	TagReactivationNeeded
	TagGrowingDelayed
	TagLoyalDelayed
)

var lifecycleTagNames = map[LifecycleTag]string{
	TagNew:                "NEW",
	TagGrowing:            "GROWING",
	TagLoyal:              "LOYAL",
	TagVIP:                "VIP",
	TagDormant:            "DORMANT",
	TagNewFollowup:        "NEW_FOLLOWUP",
	TagNewAtRisk:          "NEW_AT_RISK",
	TagReactivationNeeded: "REACTIVATION_NEEDED",
	TagGrowingDelayed:     "GROWING_DELAYED",
	TagLoyalDelayed:       "LOYAL_DELAYED",
}

// LifecycleTags returns every lifecycle tag in declaration order.
func LifecycleTags() []LifecycleTag {
	return []LifecycleTag{
		TagNew, TagGrowing, TagLoyal, TagVIP, TagDormant,
		TagNewFollowup, TagNewAtRisk, TagReactivationNeeded, TagGrowingDelayed, TagLoyalDelayed,
	}
}

func (t LifecycleTag) String() string {
	if name, ok := lifecycleTagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("LifecycleTag(%d)", int(t))
}

// Valid reports whether t is one of the declared tags.
func (t LifecycleTag) Valid() bool {
	_, ok := lifecycleTagNames[t]
	return ok
}

// MarshalText encodes the tag as its stored name.
func (t LifecycleTag) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid lifecycle tag %d", int(t))
	}
	return []byte(t.String()), nil
}

// ParseLifecycleTag maps a stored segment tag (any case) to its enum value.
func ParseLifecycleTag(s string) (LifecycleTag, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for tag, name := range lifecycleTagNames {
		if name == s {
			return tag, true
		}
	}
	return 0, false
}

// SegmentType separates segments recomputed by the nightly job from those
// owned by other processes.
type SegmentType string

const (
	SegmentLifecycle SegmentType = "LIFECYCLE"
	SegmentProtected SegmentType = "PROTECTED"
)

// SegmentDefinition is a row of the segment catalogue.
type SegmentDefinition struct {
	ID         int64       `json:"segment_id" db:"segment_id"`
	Tag        string      `json:"segment_tag" db:"segment_tag"`
	Title      string      `json:"segment_title" db:"segment_title"`
	ColorCode  string      `json:"color_code" db:"color_code"`
	Type       SegmentType `json:"segment_type" db:"segment_type"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	ModifiedAt time.Time   `json:"modified_at" db:"modified_at"`
}

// IsLifecycle reports whether the nightly job owns this segment's membership.
func (d SegmentDefinition) IsLifecycle() bool { return d.Type == SegmentLifecycle }

// SegmentAssignment records that a customer currently belongs to a segment.
type SegmentAssignment struct {
	CustomerID int64 `json:"customer_id" db:"customer_id"`
	SegmentID  int64 `json:"segment_id" db:"segment_id"`
}

// SegmentCustomers is the downstream read model: who holds a given segment
// within one shop.
type SegmentCustomers struct {
	SegmentTag    string  `json:"segment_tag"`
	SegmentTitle  string  `json:"segment_title"`
	CustomerCount int     `json:"customer_count"`
	CustomerIDs   []int64 `json:"customer_ids"`
}
