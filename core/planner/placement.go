package planner

import (
	"context"
	"sort"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/capacity"
	"github.com/kilianp07/saltplan/core/events"
	"github.com/kilianp07/saltplan/core/model"
)

type candidate struct {
	entry    time.Time
	exit     time.Time
	typeCost int
	nitrCost int
}

func (c candidate) less(o candidate) bool {
	if c.typeCost != o.typeCost {
		return c.typeCost < o.typeCost
	}
	if c.nitrCost != o.nitrCost {
		return c.nitrCost < o.nitrCost
	}
	return c.entry.Before(o.entry)
}

// placementOrder returns the indices of batches still to place, sorted by
// reception date then product code, keeping input order on ties.
func (s *state) placementOrder() []int {
	var order []int
	for i, b := range s.batches {
		if !b.Placed() && !b.Malformed() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := s.batches[order[a]], s.batches[order[b]]
		if !x.ReceptionDate.Equal(y.ReceptionDate) {
			return x.ReceptionDate.Before(y.ReceptionDate)
		}
		return x.ProductCode < y.ProductCode
	})
	return order
}

// placeAll runs the greedy pass. Batches that fit nowhere are flagged and
// get their suggestions computed against the ledgers as they stand.
func (s *state) placeAll(ctx context.Context) ([]model.SuggestionRow, error) {
	var suggestions []model.SuggestionRow
	for _, i := range s.placementOrder() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.place(i) {
			continue
		}
		b := &s.batches[i]
		b.Fits = model.FitNo
		rows := s.suggest(*b)
		suggestions = append(suggestions, rows...)
		s.stats.Unplaced = append(s.stats.Unplaced, b.ID)
		s.log.Warnf("batch %s (%s, %d units) does not fit, %d suggestions", b.ID, b.ProductCode, b.Quantity, len(rows))
		if s.bus != nil {
			ev := events.UnplacedEvent{
				BatchID:     b.ID,
				ProductCode: b.ProductCode,
				Quantity:    b.Quantity,
				Suggestions: len(rows),
			}
			if len(rows) > 0 {
				ev.MinDeficit = rows[0].MaxDeficit
			}
			s.bus.Publish(ev)
		}
	}
	return suggestions, nil
}

// place commits batch i on the best candidate of the first tier that has one.
func (s *state) place(i int) bool {
	b := s.batches[i]
	earliest, latest := s.window(b)
	for _, tier := range capacity.Tiers {
		var best *candidate
		n := 0
		for d := earliest; !d.After(latest); d = s.cal.Next(d) {
			c, ok := s.evaluate(b, d, tier)
			if !ok {
				continue
			}
			n++
			if best == nil || c.less(*best) {
				best = &c
			}
		}
		if best != nil {
			s.log.Debugw("batch placed", map[string]any{
				"batch": b.ID, "tier": int(tier), "candidates": n,
				"entry": best.entry.Format(calendar.Layout),
			})
			s.commit(i, best.entry, best.exit, tier, false)
			return true
		}
	}
	return false
}

// evaluate checks entry, stabilization and exit capacity for b entering on d.
func (s *state) evaluate(b model.Batch, d time.Time, tier capacity.Tier) (candidate, bool) {
	if s.ledgers.Entry.Load(d)+b.Quantity > s.policy.EntryCapacity(d, tier) {
		return candidate{}, false
	}
	if !s.fitsStabilization(b.ReceptionDate, d, b.Quantity) {
		return candidate{}, false
	}
	exit := s.rule.Exit(d, b.OptimalDwellDays, s.ledgers.Exit.Load)
	if s.ledgers.Exit.Load(exit)+b.Quantity > s.policy.ExitCapacity(exit, tier) {
		return candidate{}, false
	}
	tc, nc := s.profile.cost(d, b.Class, b.Nitrification)
	return candidate{entry: d, exit: exit, typeCost: tc, nitrCost: nc}, true
}
