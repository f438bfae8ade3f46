// Package capacity holds the per-day capacity policy of the salting line and
// the ledgers that accumulate committed quantities against it.
package capacity

import (
	"fmt"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
)

// Tier selects the capacity level tried for a placement. Tier1 is the
// nominal level, Tier2 the relaxed one.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
)

// Tiers lists the tiers in the order placements try them.
var Tiers = []Tier{Tier1, Tier2}

// String returns a human-readable representation of the tier.
func (t Tier) String() string { return fmt.Sprintf("tier%d", int(t)) }

// Override replaces the global capacity of one flow on one date. A nil tier
// falls back to the global value.
type Override struct {
	Tier1 *int `json:"tier1,omitempty" yaml:"tier1,omitempty"`
	Tier2 *int `json:"tier2,omitempty" yaml:"tier2,omitempty"`
}

// Flow is the two-tier daily capacity of entry or exit.
type Flow struct {
	Tier1     int
	Tier2     int
	Overrides map[time.Time]Override
}

// Capacity returns the capacity of the flow on d at tier t.
func (f Flow) Capacity(d time.Time, t Tier) int {
	if ov, ok := f.Overrides[calendar.Day(d)]; ok {
		switch {
		case t == Tier1 && ov.Tier1 != nil:
			return *ov.Tier1
		case t == Tier2 && ov.Tier2 != nil:
			return *ov.Tier2
		}
	}
	if t == Tier1 {
		return f.Tier1
	}
	return f.Tier2
}

// Policy groups the capacities of the three resources.
type Policy struct {
	Entry                  Flow
	Exit                   Flow
	Stabilization          int
	StabilizationOverrides map[time.Time]int
}

// EntryCapacity returns the entry capacity on d at tier t.
func (p Policy) EntryCapacity(d time.Time, t Tier) int { return p.Entry.Capacity(d, t) }

// ExitCapacity returns the exit capacity on d at tier t.
func (p Policy) ExitCapacity(d time.Time, t Tier) int { return p.Exit.Capacity(d, t) }

// StabilizationCapacity returns the chamber capacity on d.
func (p Policy) StabilizationCapacity(d time.Time) int {
	if v, ok := p.StabilizationOverrides[calendar.Day(d)]; ok {
		return v
	}
	return p.Stabilization
}
