package qbrules

import (
	"fmt"
	"math"
	"time"
)

// Clock is a time-of-day value with second precision.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ClockOf extracts the time of day from t.
func ClockOf(t time.Time) Clock {
	h, m, s := t.Clock()
	return Clock{Hour: h, Minute: m, Second: s}
}

func (c Clock) seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

// Compare returns -1, 0 or 1 comparing c to o chronologically.
func (c Clock) Compare(o Clock) int {
	a, b := c.seconds(), o.seconds()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar date from t.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight of the date in UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days after d. Month and year boundaries are
// normalized.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Compare returns -1, 0 or 1 comparing d to o chronologically.
func (d Date) Compare(o Date) int {
	return d.Time().Compare(o.Time())
}

// ISOWeekday returns the day of the week with Monday=1 .. Sunday=7.
func (d Date) ISOWeekday() int {
	wd := int(d.Time().Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

const (
	hourSeconds = 3600.0
	daySeconds  = hourSeconds * 24
)

// graceSeconds returns the elapsed seconds of d with a 60-second boundary
// grace subtracted once whenever the span exceeds one minute. The grace keeps
// an interval ending exactly on a unit boundary from spilling into an extra
// unit. Preserved exactly as-is; the billing scenarios pin this behavior.
func graceSeconds(d time.Duration) float64 {
	s := d.Seconds()
	if s > 60 {
		s -= 60
	}
	return s
}

// floorHours converts a span to a billable hour count: a started hour counts
// in full, with the boundary grace applied.
func floorHours(d time.Duration) int {
	return int(math.Floor(graceSeconds(d)/hourSeconds)) + 1
}

// floorDays converts a span to a billable day count, same rule as floorHours.
func floorDays(d time.Duration) int {
	return int(math.Floor(graceSeconds(d)/daySeconds)) + 1
}

// ceilHours rounds a span up to whole hours with the boundary grace applied.
func ceilHours(d time.Duration) int {
	return int(math.Ceil(graceSeconds(d) / hourSeconds))
}

// clockBetween tests whether v lies in the inclusive interval [start, end].
// When start is after end the interval wraps midnight (a night tariff such
// as 23:00-06:00 contains 00:30 but not 12:00). Equal bounds match only that
// instant.
func clockBetween(v, start, end Clock) bool {
	switch start.Compare(end) {
	case 1: // wraps midnight
		return v.Compare(start) >= 0 || v.Compare(end) <= 0
	case -1:
		return start.Compare(v) <= 0 && v.Compare(end) <= 0
	}
	return v == start
}
