package lifecycle

import "time"

// civilDate drops the clock part of t in loc.
func civilDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// asDate reads the year, month and day of a stored date or zone-less
// timestamp as written, without shifting it into loc first.
func asDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// minusMonths subtracts calendar months, clamping the day to the last day of
// the target month (Aug 31 minus 6 months is Feb 28, not Mar 3).
func minusMonths(d time.Time, months int) time.Time {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).AddDate(0, -months, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, d.Location())
}

func minusDays(d time.Time, days int) time.Time {
	return d.AddDate(0, 0, -days)
}
