// Package activity holds the day-stamped activity records the threat graph is
// built from, and the calendar-day type shared by every stage.
package activity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Day is a calendar date with no time-of-day or zone, stored as the number
// of days since 1970-01-01. Ordering and distance are plain integer math.
type Day int32

const isoLayout = "2006-01-02"

// NewDay returns the Day for a year, month and day-of-month.
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	utc := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return Day(utc.Unix() / 86400)
}

// ParseDay accepts an ISO date, optionally followed by a time component
// separated by 'T' or a space ("2010-01-04", "2010-01-04 08:15:00",
// "2010-01-04T08:15:00Z").
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(isoLayout) && (s[len(isoLayout)] == 'T' || s[len(isoLayout)] == ' ') {
		s = s[:len(isoLayout)]
	}
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// MustParseDay is ParseDay for literals in tests and fixtures.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// String returns the ISO form of the day.
func (d Day) String() string {
	return d.Time().Format(isoLayout)
}

// Sub returns d - other in days.
func (d Day) Sub(other Day) int {
	return int(d) - int(other)
}

// Distance returns the absolute number of days between d and other.
func (d Day) Distance(other Day) int {
	if n := d.Sub(other); n >= 0 {
		return n
	}
	return other.Sub(d)
}

// AddDays returns the day n days after d.
func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

// MarshalText encodes the day in ISO form.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes an ISO day.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaySet is a set of calendar days.
type DaySet map[Day]struct{}

// NewDaySet returns a set holding the given days.
func NewDaySet(days ...Day) DaySet {
	s := make(DaySet, len(days))
	for _, d := range days {
		s.Add(d)
	}
	return s
}

func (s DaySet) Add(d Day) {
	s[d] = struct{}{}
}

func (s DaySet) Has(d Day) bool {
	_, ok := s[d]
	return ok
}

func (s DaySet) Len() int {
	return len(s)
}

// Sorted returns the days in ascending order.
func (s DaySet) Sorted() []Day {
	out := make([]Day, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Min returns the earliest day; ok is false for an empty set.
func (s DaySet) Min() (min Day, ok bool) {
	for d := range s {
		if !ok || d < min {
			min, ok = d, true
		}
	}
	return min, ok
}

// Max returns the latest day; ok is false for an empty set.
func (s DaySet) Max() (max Day, ok bool) {
	for d := range s {
		if !ok || d > max {
			max, ok = d, true
		}
	}
	return max, ok
}

// Intersect returns the days present in both sets.
func (s DaySet) Intersect(other DaySet) DaySet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(DaySet)
	for d := range small {
		if large.Has(d) {
			out.Add(d)
		}
	}
	return out
}

// Union adds every day of other to s.
func (s DaySet) Union(other DaySet) {
	for d := range other {
		s.Add(d)
	}
}
