// Package calendar answers business-day questions for the salting line.
// Weekends are never working days; holidays are supplied whole by the caller.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the textual date format used in configuration and exports.
const Layout = "2006-01-02"

// Day aligns t to the start of its day in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Parse reads a YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Day(t), nil
}

// AddDays returns the day n calendar days after t.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from -> to.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)) / (24 * time.Hour))
}

// Calendar holds the holiday set. The zero value has no holidays.
type Calendar struct {
	holidays map[time.Time]struct{}
}

// New builds a calendar from the given holidays. Times are normalized to days.
func New(holidays []time.Time) *Calendar {
	c := &Calendar{holidays: make(map[time.Time]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[Day(h)] = struct{}{}
	}
	return c
}

// IsHoliday reports whether d is a declared holiday.
func (c *Calendar) IsHoliday(d time.Time) bool {
	if c == nil {
		return false
	}
	_, ok := c.holidays[Day(d)]
	return ok
}

// IsBusinessDay is false on weekends and holidays.
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.IsHoliday(d)
}

// Next returns the first business day strictly after d.
func (c *Calendar) Next(d time.Time) time.Time {
	f := AddDays(d, 1)
	for !c.IsBusinessDay(f) {
		f = AddDays(f, 1)
	}
	return f
}

// Previous returns the last business day strictly before d.
func (c *Calendar) Previous(d time.Time) time.Time {
	f := AddDays(d, -1)
	for !c.IsBusinessDay(f) {
		f = AddDays(f, -1)
	}
	return f
}

// OnOrAfter returns d when it is a business day, else the next one.
func (c *Calendar) OnOrAfter(d time.Time) time.Time {
	d = Day(d)
	if c.IsBusinessDay(d) {
		return d
	}
	return c.Next(d)
}
