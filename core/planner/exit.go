package planner

import (
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
)

// LoadFunc reports the exit quantity already booked on a day.
type LoadFunc func(time.Time) int

// ExitRule derives the exit date of a batch from its entry date and dwell target.
type ExitRule struct {
	Calendar       *calendar.Calendar
	AdjustWeekends bool
	AdjustHolidays bool
}

// Exit returns entry + dwell days, moved off weekends and holidays when the
// corresponding adjustment is enabled. load breaks mid-week holiday ties and
// may be nil.
func (r ExitRule) Exit(entry time.Time, dwell int, load LoadFunc) time.Time {
	exit := calendar.AddDays(entry, dwell)
	if r.AdjustWeekends {
		switch exit.Weekday() {
		case time.Saturday:
			exit = r.Calendar.Previous(exit)
		case time.Sunday:
			exit = r.Calendar.Next(exit)
		}
	}
	if !r.AdjustHolidays || !r.Calendar.IsHoliday(exit) {
		return exit
	}
	switch exit.Weekday() {
	case time.Monday:
		return r.Calendar.Next(exit)
	case time.Tuesday, time.Wednesday, time.Thursday:
		prev, next := r.Calendar.Previous(exit), r.Calendar.Next(exit)
		if load == nil || load(prev) <= load(next) {
			return prev
		}
		return next
	case time.Friday:
		return r.Calendar.Previous(exit)
	}
	return exit
}
