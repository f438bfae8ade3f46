package capacity

import (
	"sort"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
)

// Ledger accumulates quantities per calendar day.
type Ledger struct {
	load map[time.Time]int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{load: map[time.Time]int{}}
}

// Load returns the quantity accumulated on d.
func (l *Ledger) Load(d time.Time) int { return l.load[calendar.Day(d)] }

// Add accumulates qty on d.
func (l *Ledger) Add(d time.Time, qty int) {
	l.load[calendar.Day(d)] += qty
}

// AddRange accumulates qty on every day of [from, to]. An inverted range is a no-op.
func (l *Ledger) AddRange(from, to time.Time, qty int) {
	from, to = calendar.Day(from), calendar.Day(to)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		l.load[d] += qty
	}
}

// Dates lists the days carrying a non-zero load in ascending order.
func (l *Ledger) Dates() []time.Time {
	out := make([]time.Time, 0, len(l.load))
	for d, v := range l.load {
		if v != 0 {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// StabilizationRange returns the inclusive day range a batch received on
// reception and entering on entry spends in the chamber. ok is false when
// the batch enters on its reception day.
func StabilizationRange(reception, entry time.Time) (from, to time.Time, ok bool) {
	from = calendar.Day(reception)
	to = calendar.AddDays(entry, -1)
	if to.Before(from) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// Ledgers bundles the three resource ledgers of one planning run.
type Ledgers struct {
	Entry         *Ledger
	Exit          *Ledger
	Stabilization *Ledger
}

// NewLedgers returns three empty ledgers.
func NewLedgers() Ledgers {
	return Ledgers{Entry: NewLedger(), Exit: NewLedger(), Stabilization: NewLedger()}
}

// Commit records a placement on all three ledgers.
func (ls Ledgers) Commit(reception, entry, exit time.Time, qty int) {
	ls.Entry.Add(entry, qty)
	ls.Exit.Add(exit, qty)
	if from, to, ok := StabilizationRange(reception, entry); ok {
		ls.Stabilization.AddRange(from, to, qty)
	}
}
