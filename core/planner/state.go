package planner

import (
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/capacity"
	"github.com/kilianp07/saltplan/core/events"
	"github.com/kilianp07/saltplan/core/logger"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/internal/eventbus"
)

// state holds everything one Plan call mutates.
type state struct {
	settings
	batches []model.Batch
	ledgers capacity.Ledgers
	profile profile
	log     logger.Logger
	bus     eventbus.EventBus
	stats   *Stats
}

func newState(set settings, batches []model.Batch, log logger.Logger, bus eventbus.EventBus) *state {
	s := &state{
		settings: set,
		batches:  batches,
		ledgers:  capacity.NewLedgers(),
		profile:  profile{},
		log:      log,
		bus:      bus,
		stats:    &Stats{Total: len(batches)},
	}
	s.seed()
	return s
}

// seed books every dated, well-formed batch onto the ledgers and the profile.
func (s *state) seed() {
	for _, b := range s.batches {
		if b.Malformed() {
			s.stats.Skipped = append(s.stats.Skipped, b.ID)
			continue
		}
		if b.EntryDate != nil {
			s.ledgers.Entry.Add(*b.EntryDate, b.Quantity)
			if from, to, ok := capacity.StabilizationRange(b.ReceptionDate, *b.EntryDate); ok {
				s.ledgers.Stabilization.AddRange(from, to, b.Quantity)
			}
			s.profile.add(*b.EntryDate, b.Class, b.Nitrification)
			s.stats.Retained++
		}
		if b.ExitDate != nil {
			s.ledgers.Exit.Add(*b.ExitDate, b.Quantity)
		}
	}
}

func (s *state) maxStorageFor(code string) int {
	if v, ok := s.maxByProduct[code]; ok {
		return v
	}
	return s.maxStorage
}

// window returns the first and last admissible entry dates of b. The window
// is empty when earliest is after latest.
func (s *state) window(b model.Batch) (earliest, latest time.Time) {
	earliest = s.cal.OnOrAfter(b.ReceptionDate)
	latest = calendar.AddDays(b.ReceptionDate, s.maxStorageFor(b.ProductCode))
	return earliest, latest
}

// fitsStabilization reports whether qty more units fit on every chamber day
// between reception and entry.
func (s *state) fitsStabilization(reception, entry time.Time, qty int) bool {
	from, to, ok := capacity.StabilizationRange(reception, entry)
	if !ok {
		return true
	}
	for d := from; !d.After(to); d = calendar.AddDays(d, 1) {
		if s.ledgers.Stabilization.Load(d)+qty > s.policy.StabilizationCapacity(d) {
			return false
		}
	}
	return true
}

// commit places batch i and books it everywhere.
func (s *state) commit(i int, entry, exit time.Time, tier capacity.Tier, grouped bool) {
	b := &s.batches[i]
	b.Place(entry, exit)
	s.ledgers.Commit(b.ReceptionDate, entry, exit, b.Quantity)
	s.profile.add(entry, b.Class, b.Nitrification)
	s.stats.Placed++
	if grouped {
		s.stats.PlacedInGroups++
	}
	if s.bus != nil {
		s.bus.Publish(events.PlacementEvent{
			BatchID:     b.ID,
			ProductCode: b.ProductCode,
			Quantity:    b.Quantity,
			Entry:       *b.EntryDate,
			Exit:        *b.ExitDate,
			Tier:        int(tier),
			StorageDays: *b.StorageDays,
			Grouped:     grouped,
		})
	}
}
