package ledger

import "time"

// =============================================================================
// PERIOD - Inclusive day range used by balance queries and reports
// =============================================================================

// Period bounds a query by post date. A zero Start or End leaves that side open.
// Both bounds are whole days: End includes every instant of its day.
type Period struct {
	Start time.Time
	End   time.Time
}

// AllTime is the unbounded period.
var AllTime = Period{}

// Through returns the period of everything posted up to and including day.
func Through(day time.Time) Period { return Period{End: day} }

// Between returns [start, end] by day.
func Between(start, end time.Time) Period { return Period{Start: start, End: end} }

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date is a convenience constructor for a UTC day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls inside the period by day.
func (p Period) Contains(t time.Time) bool {
	d := Day(t)
	if !p.Start.IsZero() && d.Before(Day(p.Start)) {
		return false
	}
	if !p.End.IsZero() && d.After(Day(p.End)) {
		return false
	}
	return true
}

// Valid is false when both bounds are set and End is before Start.
func (p Period) Valid() bool {
	return p.Start.IsZero() || p.End.IsZero() || !Day(p.End).Before(Day(p.Start))
}

// Before returns the open-start period ending the day before p.Start.
// ok is false when p has no start, so nothing precedes it.
func (p Period) Before() (before Period, ok bool) {
	if p.Start.IsZero() {
		return Period{}, false
	}
	return Period{End: Day(p.Start).AddDate(0, 0, -1)}, true
}

func (p Period) String() string {
	format := func(t time.Time) string {
		if t.IsZero() {
			return "…"
		}
		return t.Format("2006-01-02")
	}
	return "[" + format(p.Start) + ", " + format(p.End) + "]"
}
