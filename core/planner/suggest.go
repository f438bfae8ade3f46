package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/capacity"
	"github.com/kilianp07/saltplan/core/model"
)

const maxListedStabilizationDays = 3

// suggest evaluates every (entry date, tier) pair of b's window without
// filtering and keeps the rows with the smallest deficits.
func (s *state) suggest(b model.Batch) []model.SuggestionRow {
	earliest, latest := s.window(b)
	var rows []model.SuggestionRow
	for d := earliest; !d.After(latest); d = s.cal.Next(d) {
		for _, tier := range capacity.Tiers {
			rows = append(rows, s.deficitRow(b, d, tier))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		x, y := rows[i], rows[j]
		if x.MaxDeficit != y.MaxDeficit {
			return x.MaxDeficit < y.MaxDeficit
		}
		if x.TotalDeficit != y.TotalDeficit {
			return x.TotalDeficit < y.TotalDeficit
		}
		return x.ProposedEntry.Before(y.ProposedEntry)
	})
	if len(rows) > s.limit {
		rows = rows[:s.limit]
	}
	return rows
}

type dayDeficit struct {
	day    time.Time
	amount int
}

func (s *state) deficitRow(b model.Batch, d time.Time, tier capacity.Tier) model.SuggestionRow {
	entryDef := max(0, s.ledgers.Entry.Load(d)+b.Quantity-s.policy.EntryCapacity(d, tier))

	var stabDays []dayDeficit
	stabMax := 0
	if from, to, ok := capacity.StabilizationRange(b.ReceptionDate, d); ok {
		for day := from; !day.After(to); day = calendar.AddDays(day, 1) {
			short := s.ledgers.Stabilization.Load(day) + b.Quantity - s.policy.StabilizationCapacity(day)
			if short > 0 {
				stabDays = append(stabDays, dayDeficit{day: day, amount: short})
				stabMax = max(stabMax, short)
			}
		}
	}

	exit := s.rule.Exit(d, b.OptimalDwellDays, s.ledgers.Exit.Load)
	exitDef := max(0, s.ledgers.Exit.Load(exit)+b.Quantity-s.policy.ExitCapacity(exit, tier))

	return model.SuggestionRow{
		BatchID:          b.ID,
		ProductCode:      b.ProductCode,
		Quantity:         b.Quantity,
		ReceptionDate:    b.ReceptionDate,
		ProposedEntry:    d,
		ProposedExit:     exit,
		Tier:             int(tier),
		EntryDeficit:     entryDef,
		StabilizationMax: stabMax,
		ExitDeficit:      exitDef,
		MaxDeficit:       max(entryDef, stabMax, exitDef),
		TotalDeficit:     entryDef + stabMax + exitDef,
		Recommendation:   recommendation(d, exit, tier, entryDef, exitDef, stabDays),
	}
}

func recommendation(entry, exit time.Time, tier capacity.Tier, entryDef, exitDef int, stab []dayDeficit) string {
	var parts []string
	if entryDef > 0 {
		parts = append(parts, fmt.Sprintf("Raise ENTRY capacity on %s by +%d units (tier %d).", entry.Format(calendar.Layout), entryDef, int(tier)))
	}
	if exitDef > 0 {
		parts = append(parts, fmt.Sprintf("Raise EXIT capacity on %s by +%d units (tier %d).", exit.Format(calendar.Layout), exitDef, int(tier)))
	}
	if len(stab) > 0 {
		n := min(len(stab), maxListedStabilizationDays)
		days := make([]string, 0, n)
		for _, sd := range stab[:n] {
			days = append(days, fmt.Sprintf("%s(+%d)", sd.day.Format(calendar.Layout), sd.amount))
		}
		more := ""
		if len(stab) > n {
			more = fmt.Sprintf(" and %d more", len(stab)-n)
		}
		parts = append(parts, fmt.Sprintf("Raise STABILIZATION capacity on: %s%s.", strings.Join(days, ", "), more))
	}
	if len(parts) == 0 {
		return "No adjustment needed."
	}
	return strings.Join(parts, " | ")
}

// sortSuggestions orders the final table by deficit, then dates, then batch id.
func sortSuggestions(rows []model.SuggestionRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		x, y := rows[i], rows[j]
		switch {
		case x.MaxDeficit != y.MaxDeficit:
			return x.MaxDeficit < y.MaxDeficit
		case x.TotalDeficit != y.TotalDeficit:
			return x.TotalDeficit < y.TotalDeficit
		case !x.ProposedEntry.Equal(y.ProposedEntry):
			return x.ProposedEntry.Before(y.ProposedEntry)
		case !x.ProposedExit.Equal(y.ProposedExit):
			return x.ProposedExit.Before(y.ProposedExit)
		default:
			return x.BatchID < y.BatchID
		}
	})
}
