package lifecycle

import (
	"time"

	"github.com/ignite/salon-crm/internal/domain"
)

const (
	frequentVisits    = 10
	growingVisits     = 3
	vipRevenueMinimum = 1_000_000
)

// Rule is one step of the waterfall.
type Rule struct {
	Tag   domain.LifecycleTag
	Match func(c domain.Customer, ref Reference) bool
}

// Reference holds the calendar thresholds for one run.
type Reference struct {
	Today          time.Time
	SixMonthsAgo   time.Time
	ThreeMonthsAgo time.Time
	NinetyDaysAgo  time.Time
	SixtyDaysAgo   time.Time
	ThirtyDaysAgo  time.Time

	loc *time.Location
}

// NewReference derives the thresholds from now, in now's location.
func NewReference(now time.Time) Reference {
	loc := now.Location()
	today := civilDate(now, loc)
	return Reference{
		Today:          today,
		SixMonthsAgo:   minusMonths(today, 6),
		ThreeMonthsAgo: minusMonths(today, 3),
		NinetyDaysAgo:  minusDays(today, 90),
		SixtyDaysAgo:   minusDays(today, 60),
		ThirtyDaysAgo:  minusDays(today, 30),
		loc:            loc,
	}
}

func (r Reference) visitDate(c domain.Customer) (time.Time, bool) {
	if c.RecentVisitDate == nil {
		return time.Time{}, false
	}
	return asDate(*c.RecentVisitDate, r.loc), true
}

func (r Reference) registeredDate(c domain.Customer) (time.Time, bool) {
	if c.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	// created_at is a zone-less TIMESTAMP; the driver labels it UTC, so the
	// stored wall date is the registration date.
	return asDate(c.CreatedAt, r.loc), true
}

// waterfall is evaluated top to bottom; order is priority.
var waterfall = []Rule{
	{Tag: domain.TagDormant, Match: isDormant},
	{Tag: domain.TagReactivationNeeded, Match: needsReactivation},
	{Tag: domain.TagNewAtRisk, Match: isNewAtRisk},
	{Tag: domain.TagLoyalDelayed, Match: isLoyalDelayed},
	{Tag: domain.TagGrowingDelayed, Match: isGrowingDelayed},
	{Tag: domain.TagNewFollowup, Match: needsNewFollowup},
	{Tag: domain.TagVIP, Match: isVIP},
	{Tag: domain.TagLoyal, Match: isLoyal},
	{Tag: domain.TagGrowing, Match: isGrowing},
	{Tag: domain.TagNew, Match: isNew},
}

// DefaultTag is assigned when no rule matches.
const DefaultTag = domain.TagNew

// Rules returns a copy of the waterfall in priority order.
func Rules() []Rule {
	out := make([]Rule, len(waterfall))
	copy(out, waterfall)
	return out
}

func visitsBelow(c domain.Customer, n int) bool {
	return c.VisitCount != nil && *c.VisitCount < n
}

func visitsAtLeast(c domain.Customer, n int) bool {
	return c.VisitCount != nil && *c.VisitCount >= n
}

func growingVisitBand(c domain.Customer) bool {
	return visitsAtLeast(c, growingVisits) && visitsBelow(c, frequentVisits)
}

func visitedBefore(c domain.Customer, ref Reference, threshold time.Time) bool {
	d, ok := ref.visitDate(c)
	return ok && d.Before(threshold)
}

func visitedAfter(c domain.Customer, ref Reference, threshold time.Time) bool {
	d, ok := ref.visitDate(c)
	return ok && d.After(threshold)
}

func registeredAfter(c domain.Customer, ref Reference, threshold time.Time) bool {
	d, ok := ref.registeredDate(c)
	return ok && d.After(threshold)
}

func registeredBefore(c domain.Customer, ref Reference, threshold time.Time) bool {
	d, ok := ref.registeredDate(c)
	return ok && d.Before(threshold)
}

func isDormant(c domain.Customer, ref Reference) bool {
	return visitedBefore(c, ref, ref.SixMonthsAgo)
}

// needsReactivation and isNewAtRisk share the 90 day registration window;
// only the inactivity threshold differs.
func needsReactivation(c domain.Customer, ref Reference) bool {
	return registeredAfter(c, ref, ref.NinetyDaysAgo) &&
		visitedBefore(c, ref, ref.NinetyDaysAgo) &&
		visitsBelow(c, growingVisits)
}

func isNewAtRisk(c domain.Customer, ref Reference) bool {
	return registeredAfter(c, ref, ref.NinetyDaysAgo) &&
		visitedBefore(c, ref, ref.SixtyDaysAgo) &&
		visitsBelow(c, growingVisits)
}

func isLoyalDelayed(c domain.Customer, ref Reference) bool {
	return visitsAtLeast(c, frequentVisits) && visitedBefore(c, ref, ref.NinetyDaysAgo)
}

func isGrowingDelayed(c domain.Customer, ref Reference) bool {
	return growingVisitBand(c) && visitedBefore(c, ref, ref.NinetyDaysAgo)
}

func needsNewFollowup(c domain.Customer, ref Reference) bool {
	return registeredBefore(c, ref, ref.ThirtyDaysAgo) &&
		registeredAfter(c, ref, ref.SixtyDaysAgo) &&
		visitsBelow(c, growingVisits)
}

func isVIP(c domain.Customer, _ Reference) bool {
	return c.TotalRevenue != nil && *c.TotalRevenue >= vipRevenueMinimum &&
		visitsAtLeast(c, frequentVisits)
}

func isLoyal(c domain.Customer, ref Reference) bool {
	return visitsAtLeast(c, frequentVisits) && visitedAfter(c, ref, ref.ThreeMonthsAgo)
}

func isGrowing(c domain.Customer, ref Reference) bool {
	return growingVisitBand(c) && visitedAfter(c, ref, ref.ThreeMonthsAgo)
}

func isNew(c domain.Customer, ref Reference) bool {
	return registeredAfter(c, ref, ref.ThirtyDaysAgo) && visitsBelow(c, growingVisits)
}
