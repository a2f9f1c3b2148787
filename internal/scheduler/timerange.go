// Package scheduler holds the pure reservation rules: interval overlap,
// candidate validation, availability grouping and staff auto-assignment.
// Nothing here touches the database; callers pass in snapshots.
package scheduler

import (
	"fmt"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Range is a half-open interval [Start, End).
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End-Start.
func (r Range) Duration() time.Duration { return r.End.Sub(r.Start) }

// Empty reports whether the range contains no instant.
func (r Range) Empty() bool { return !r.Start.Before(r.End) }

// Overlaps reports whether r and o share at least one instant.
func (r Range) Overlaps(o Range) bool { return Overlaps(r.Start, r.End, o.Start, o.End) }

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
// Zero-length or inverted ranges never overlap anything, themselves
// included.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aStart.Before(aEnd) || !bStart.Before(bEnd) {
		return false
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ToZoned expresses t in loc.  A nil location means UTC.
func ToZoned(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc)
}

// DayStart returns local midnight of the day containing t.
func DayStart(t time.Time, loc *time.Location) time.Time {
	z := ToZoned(t, loc)
	return time.Date(z.Year(), z.Month(), z.Day(), 0, 0, 0, 0, z.Location())
}

// WeekStart returns local midnight of the Monday starting t's week.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	d := DayStart(t, loc)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayStart(a, loc).Equal(DayStart(b, loc))
}

// DayKey formats the local calendar day of t as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	return ToZoned(t, loc).Format(dateLayout)
}

// ParseDate parses YYYY-MM-DD as local midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// CombineDateClock places an HH:MM wall clock on the given local date.
func CombineDateClock(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	c, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want HH:MM", clock)
	}
	d := DayStart(date, loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, d.Location()), nil
}
