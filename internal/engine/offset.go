package engine

import (
	"fmt"
	"time"
)

// OffsetUnit distinguishes exact-day week offsets from calendar-month
// offsets. The two are not interchangeable: month arithmetic follows
// month-length irregularities, week arithmetic is always 7 days.
type OffsetUnit int

const (
	UnitWeeks OffsetUnit = iota
	UnitMonths
)

// Offset is a typed duration measured from a reference calendar date.
type Offset struct {
	Unit  OffsetUnit
	Count int
}

// Weeks returns an exact-day offset of n weeks.
func Weeks(n int) Offset { return Offset{Unit: UnitWeeks, Count: n} }

// Months returns a calendar-month offset of n months.
func Months(n int) Offset { return Offset{Unit: UnitMonths, Count: n} }

// From applies the offset to a reference date.
func (o Offset) From(t time.Time) time.Time {
	if o.Unit == UnitWeeks {
		return t.AddDate(0, 0, o.Count*7)
	}
	return t.AddDate(0, o.Count, 0)
}

func (o Offset) String() string {
	unit := "weeks"
	if o.Unit == UnitMonths {
		unit = "months"
	}
	if o.Count == 1 {
		unit = unit[:len(unit)-1]
	}
	return fmt.Sprintf("%d %s", o.Count, unit)
}

// day truncates a timestamp to a calendar date at UTC midnight. All
// engine arithmetic runs on day-normalized dates so that durations
// divide evenly into days.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the number of whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(day(b).Sub(day(a)) / (24 * time.Hour))
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
