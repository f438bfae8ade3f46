package planner

import (
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/model"
)

// dayMix counts the product classes and nitrification levels entering on one day.
type dayMix struct {
	classes map[model.ProductClass]int
	levels  map[int]int
}

// profile is the per-entry-date classification mix used to break ties
// between feasible candidates.
type profile map[time.Time]*dayMix

func (p profile) add(d time.Time, class model.ProductClass, level *int) {
	d = calendar.Day(d)
	m, ok := p[d]
	if !ok {
		m = &dayMix{classes: map[model.ProductClass]int{}, levels: map[int]int{}}
		p[d] = m
	}
	m.classes[class]++
	if level != nil {
		m.levels[*level]++
	}
}

// cost returns the changeover costs of adding a batch on d. Each is 0 when the
// day is still empty for that attribute or already carries the batch's value.
func (p profile) cost(d time.Time, class model.ProductClass, level *int) (typeCost, nitrCost int) {
	m, ok := p[calendar.Day(d)]
	if !ok {
		return 0, 0
	}
	if len(m.classes) > 0 && m.classes[class] == 0 {
		typeCost = 1
	}
	if len(m.levels) > 0 && (level == nil || m.levels[*level] == 0) {
		nitrCost = 1
	}
	return typeCost, nitrCost
}
