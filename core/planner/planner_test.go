package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/capacity"
	"github.com/kilianp07/saltplan/core/events"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/internal/eventbus"
)

// March 2025: Mon 3, Tue 4, Wed 5, Thu 6, Fri 7, Sat 8, Sun 9, Mon 10.
func day(s string) time.Time {
	d, err := calendar.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func intp(v int) *int { return &v }

func newBatch(id, code, reception string, qty, dwell int) model.Batch {
	return model.Batch{
		ID:               id,
		ProductCode:      code,
		ReceptionDate:    day(reception),
		Quantity:         qty,
		OptimalDwellDays: dwell,
	}
}

func placedBatch(b model.Batch, entry, exit string) model.Batch {
	b.Place(day(entry), day(exit))
	return b
}

// baseConfig is the plant default without holidays or groups.
func baseConfig() Config {
	cfg := DefaultConfig()
	cfg.Holidays = []string{}
	cfg.Groups = []GroupConfig{}
	return cfg
}

func mustPlanner(t *testing.T, cfg Config, opts ...Option) *Planner {
	t.Helper()
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	return p
}

func mustPlan(t *testing.T, p *Planner, batches []model.Batch) Result {
	t.Helper()
	res, err := p.Plan(context.Background(), batches)
	require.NoError(t, err)
	return res
}

func findBatch(t *testing.T, res Result, id string) model.Batch {
	t.Helper()
	for _, b := range res.Batches {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("batch %s not in result", id)
	return model.Batch{}
}

func entryOf(t *testing.T, b model.Batch) string {
	t.Helper()
	if b.EntryDate == nil {
		t.Fatalf("batch %s not placed", b.ID)
	}
	return b.EntryDate.Format(calendar.Layout)
}

func exitOf(t *testing.T, b model.Batch) string {
	t.Helper()
	if b.ExitDate == nil {
		t.Fatalf("batch %s has no exit", b.ID)
	}
	return b.ExitDate.Format(calendar.Layout)
}

func TestPlanSkipsMondayWhenEntryOverrideTooSmall(t *testing.T) {
	cfg := baseConfig()
	cfg.EntryOverrides = map[string]capacity.Override{
		"2025-03-03": {Tier1: intp(50)},
		"2025-03-04": {Tier1: intp(200)},
	}
	p := mustPlanner(t, cfg)
	res := mustPlan(t, p, []model.Batch{newBatch("L1", "JX", "2025-03-03", 100, 7)})

	b := findBatch(t, res, "L1")
	assert.Equal(t, "2025-03-04", entryOf(t, b))
	assert.Equal(t, "2025-03-11", exitOf(t, b))
	assert.Equal(t, model.FitYes, b.Fits)
	assert.Equal(t, 1, *b.StorageDays)
	assert.Equal(t, 7, *b.DwellDays)
	assert.Equal(t, 0, *b.DwellDeviation)
	assert.Empty(t, res.Suggestions)
}

func TestPlanZeroStabilizationForcesReceptionDay(t *testing.T) {
	cfg := baseConfig()
	cfg.StabilizationCapacity = 0
	p := mustPlanner(t, cfg)
	res := mustPlan(t, p, []model.Batch{newBatch("L1", "JX", "2025-03-03", 100, 3)})

	b := findBatch(t, res, "L1")
	assert.Equal(t, "2025-03-03", entryOf(t, b))
	assert.Equal(t, "2025-03-06", exitOf(t, b))
	assert.Empty(t, res.Stabilization.Days)
}

func TestPlanZeroStabilizationUnplacedWhenReceptionDayFull(t *testing.T) {
	cfg := baseConfig()
	cfg.StabilizationCapacity = 0
	cfg.EntryOverrides = map[string]capacity.Override{
		"2025-03-03": {Tier1: intp(0), Tier2: intp(0)},
	}
	p := mustPlanner(t, cfg)
	res := mustPlan(t, p, []model.Batch{newBatch("L1", "JX", "2025-03-03", 100, 3)})

	b := findBatch(t, res, "L1")
	assert.Nil(t, b.EntryDate)
	assert.Nil(t, b.ExitDate)
	assert.Equal(t, model.FitNo, b.Fits)
	assert.Equal(t, []string{"L1"}, res.Stats.Unplaced)
	require.Len(t, res.Suggestions, 10)
	for _, row := range res.Suggestions {
		assert.Equal(t, "L1", row.BatchID)
		assert.Equal(t, 100, row.MaxDeficit)
	}
	first := res.Suggestions[0]
	assert.Equal(t, day("2025-03-03"), first.ProposedEntry)
	assert.Equal(t, 1, first.Tier)
	assert.Equal(t, 100, first.EntryDeficit)
	assert.Equal(t, "Raise ENTRY capacity on 2025-03-03 by +100 units (tier 1).", first.Recommendation)
}

func TestPlanHolidayExitPicksLighterNeighbour(t *testing.T) {
	cfg := baseConfig()
	cfg.Holidays = []string{"2025-03-05"}
	p := mustPlanner(t, cfg)

	res := mustPlan(t, p, []model.Batch{newBatch("B", "JX", "2025-03-03", 100, 2)})
	assert.Equal(t, "2025-03-04", exitOf(t, findBatch(t, res, "B")), "equal loads pick the earlier day")

	heavy := placedBatch(newBatch("A", "JX", "2025-03-03", 500, 1), "2025-03-03", "2025-03-04")
	res = mustPlan(t, p, []model.Batch{heavy, newBatch("B", "JX", "2025-03-03", 100, 2)})
	b := findBatch(t, res, "B")
	assert.Equal(t, "2025-03-03", entryOf(t, b))
	assert.Equal(t, "2025-03-06", exitOf(t, b))
}

func TestPlanUsesTierTwoWhenTierOneIsFull(t *testing.T) {
	cfg := baseConfig()
	cfg.EntryCapacity = TierCapacity{Tier1: 100, Tier2: 150}
	p := mustPlanner(t, cfg)
	res := mustPlan(t, p, []model.Batch{newBatch("L1", "JX", "2025-03-03", 120, 0)})
	b := findBatch(t, res, "L1")
	assert.Equal(t, "2025-03-03", entryOf(t, b))
	assert.Equal(t, "2025-03-03", exitOf(t, b))
}

func TestPlanOrdersByReceptionThenCode(t *testing.T) {
	cfg := baseConfig()
	cfg.EntryCapacity = TierCapacity{Tier1: 100, Tier2: 100}
	p := mustPlanner(t, cfg)
	res := mustPlan(t, p, []model.Batch{
		newBatch("late", "AA", "2025-03-04", 100, 0),
		newBatch("b", "BB", "2025-03-03", 100, 0),
		newBatch("a", "AA", "2025-03-03", 100, 0),
	})
	assert.Equal(t, "2025-03-03", entryOf(t, findBatch(t, res, "a")))
	assert.Equal(t, "2025-03-04", entryOf(t, findBatch(t, res, "b")))
	assert.Equal(t, "2025-03-05", entryOf(t, findBatch(t, res, "late")))
	assert.Equal(t, []string{"late", "b", "a"}, []string{res.Batches[0].ID, res.Batches[1].ID, res.Batches[2].ID}, "input order preserved")
}

func TestPlanPrefersSameClassEntryDay(t *testing.T) {
	p := mustPlanner(t, baseConfig())
	iber := placedBatch(newBatch("I", "JIB", "2025-03-03", 100, 0), "2025-03-03", "2025-03-03")
	iber.Class = model.ClassIberico
	iber.Nitrification = intp(2)

	blanco := newBatch("B", "JBL", "2025-03-03", 100, 0)
	blanco.Class = model.ClassBlanco
	sameClass := newBatch("S", "JIB2", "2025-03-03", 100, 0)
	sameClass.Class = model.ClassIberico
	sameClass.Nitrification = intp(2)
	otherLevel := newBatch("N", "JIB3", "2025-03-03", 100, 0)
	otherLevel.Class = model.ClassIberico
	otherLevel.Nitrification = intp(3)

	res := mustPlan(t, p, []model.Batch{iber, blanco})
	assert.Equal(t, "2025-03-04", entryOf(t, findBatch(t, res, "B")))

	res = mustPlan(t, p, []model.Batch{iber, sameClass})
	assert.Equal(t, "2025-03-03", entryOf(t, findBatch(t, res, "S")))

	res = mustPlan(t, p, []model.Batch{iber, otherLevel})
	assert.Equal(t, "2025-03-04", entryOf(t, findBatch(t, res, "N")))
}

func TestPlanRetainsPlacedBatches(t *testing.T) {
	p := mustPlanner(t, baseConfig())
	kept := placedBatch(newBatch("K", "JX", "2025-03-03", 100, 2), "2025-03-06", "2025-03-07")
	res := mustPlan(t, p, []model.Batch{kept})
	assert.Equal(t, kept, findBatch(t, res, "K"))
	assert.Equal(t, 1, res.Stats.Retained)
	assert.Equal(t, 0, res.Stats.Placed)
}

func TestPlanRejectsNegativeQuantity(t *testing.T) {
	p := mustPlanner(t, baseConfig())
	in := []model.Batch{newBatch("ok", "JX", "2025-03-03", 10, 0), newBatch("bad", "JX", "2025-03-03", -1, 0)}
	_, err := p.Plan(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNegativeQuantity))
	assert.Contains(t, err.Error(), "bad")
	assert.Nil(t, in[0].EntryDate)
}

func TestPlanSkipsMalformedRows(t *testing.T) {
	p := mustPlanner(t, baseConfig())
	noReception := model.Batch{ID: "nr", ProductCode: "JX", Quantity: 10}
	negDwell := newBatch("nd", "JX", "2025-03-03", 10, -2)
	res := mustPlan(t, p, []model.Batch{noReception, negDwell, newBatch("ok", "JX", "2025-03-03", 10, 0)})
	assert.Equal(t, []string{"nr", "nd"}, res.Stats.Skipped)
	assert.Nil(t, findBatch(t, res, "nr").EntryDate)
	assert.Equal(t, model.FitUnknown, findBatch(t, res, "nd").Fits)
	assert.Equal(t, "2025-03-03", entryOf(t, findBatch(t, res, "ok")))
}

func TestPlanDoesNotModifyInput(t *testing.T) {
	p := mustPlanner(t, baseConfig())
	in := []model.Batch{newBatch("L1", "JX", "2025-03-03", 10, 0)}
	res := mustPlan(t, p, in)
	assert.Nil(t, in[0].EntryDate)
	assert.NotNil(t, res.Batches[0].EntryDate)
}

func TestPlanCancelledContext(t *testing.T) {
	p := mustPlanner(t, baseConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Plan(ctx, []model.Batch{newBatch("L1", "JX", "2025-03-03", 10, 0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanPublishesEvents(t *testing.T) {
	bus := eventbus.New(eventbus.WithBuffer(64))
	ch := bus.Subscribe()
	cfg := baseConfig()
	cfg.EntryCapacity = TierCapacity{Tier1: 100, Tier2: 100}
	cfg.Groups = []GroupConfig{{Name: "g", Policy: "unit", Codes: []string{"GX"}}}
	p := mustPlanner(t, cfg, WithEventBus(bus))
	mustPlan(t, p, []model.Batch{
		newBatch("g1", "GX", "2025-03-03", 50, 0),
		newBatch("l1", "JX", "2025-03-03", 50, 0),
		newBatch("big", "JX", "2025-03-03", 500, 0),
	})
	bus.Close()

	var placements, groups, unplaced int
	for ev := range ch {
		switch e := ev.(type) {
		case events.PlacementEvent:
			placements++
			if e.BatchID == "g1" {
				assert.True(t, e.Grouped)
			}
		case events.GroupEvent:
			groups++
			assert.Equal(t, "placed", e.Outcome)
		case events.UnplacedEvent:
			unplaced++
			assert.Equal(t, "big", e.BatchID)
			assert.Equal(t, 400, e.MinDeficit)
		}
	}
	assert.Equal(t, 2, placements)
	assert.Equal(t, 1, groups)
	assert.Equal(t, 1, unplaced)
}

// generated returns a deterministic mixed workload that overflows the line.
func generated(n int) []model.Batch {
	codes := []string{"JBSPRCLC-MEX", "JCIVRPORCISAN", "PCIVRPORCISAN", "JX", "PX", "JIB"}
	out := make([]model.Batch, 0, n)
	start := day("2025-03-03")
	for i := 0; i < n; i++ {
		b := model.Batch{
			ID:               fmt.Sprintf("L%03d", i),
			ProductCode:      codes[(i*7)%len(codes)],
			ReceptionDate:    calendar.AddDays(start, (i*5)%12),
			Quantity:         100 + (i*137)%800,
			OptimalDwellDays: (i * 3) % 9,
			Class:            model.ProductClass(i % 3),
		}
		if i%4 != 0 {
			b.Nitrification = intp(i % 3)
		}
		out = append(out, b)
	}
	return out
}

func generatedConfig() Config {
	cfg := DefaultConfig()
	cfg.Holidays = []string{"2025-03-12", "2025-03-19"}
	cfg.EntryCapacity = TierCapacity{Tier1: 1200, Tier2: 1500}
	cfg.ExitCapacity = TierCapacity{Tier1: 1200, Tier2: 1500}
	cfg.StabilizationCapacity = 2500
	cfg.MaxStorageByProduct = map[string]int{"PX": 2}
	return cfg
}

func TestPlanInvariants(t *testing.T) {
	cfg := generatedConfig()
	p := mustPlanner(t, cfg)
	res := mustPlan(t, p, generated(60))
	policy := p.Policy()

	entry, exit, stab := capacity.NewLedger(), capacity.NewLedger(), capacity.NewLedger()
	for _, b := range res.Batches {
		if b.EntryDate == nil {
			assert.Equal(t, model.FitNo, b.Fits, b.ID)
			continue
		}
		limit := cfg.MaxStorageDays
		if v, ok := cfg.MaxStorageByProduct[b.ProductCode]; ok {
			limit = v
		}
		assert.False(t, b.ExitDate.Before(*b.EntryDate), b.ID)
		assert.False(t, b.EntryDate.Before(b.ReceptionDate), b.ID)
		assert.LessOrEqual(t, *b.StorageDays, limit, b.ID)
		assert.True(t, p.Calendar().IsBusinessDay(*b.EntryDate), b.ID)
		entry.Add(*b.EntryDate, b.Quantity)
		exit.Add(*b.ExitDate, b.Quantity)
		if from, to, ok := capacity.StabilizationRange(b.ReceptionDate, *b.EntryDate); ok {
			stab.AddRange(from, to, b.Quantity)
		}
	}
	for _, d := range entry.Dates() {
		assert.LessOrEqual(t, entry.Load(d), policy.EntryCapacity(d, capacity.Tier2), d)
	}
	for _, d := range exit.Dates() {
		assert.LessOrEqual(t, exit.Load(d), policy.ExitCapacity(d, capacity.Tier2), d)
	}
	for _, d := range stab.Dates() {
		assert.LessOrEqual(t, stab.Load(d), policy.StabilizationCapacity(d), d)
	}
	require.NotEmpty(t, res.Stats.Unplaced, "workload should overflow the line")
}

func TestPlanSuggestionsForEveryUnplacedBatch(t *testing.T) {
	p := mustPlanner(t, generatedConfig())
	res := mustPlan(t, p, generated(60))

	perBatch := map[string]int{}
	for _, row := range res.Suggestions {
		assert.GreaterOrEqual(t, row.MaxDeficit, 0)
		assert.GreaterOrEqual(t, row.TotalDeficit, row.MaxDeficit)
		perBatch[row.BatchID]++
	}
	for _, id := range res.Stats.Unplaced {
		assert.Greater(t, perBatch[id], 0, id)
		assert.LessOrEqual(t, perBatch[id], DefaultSuggestionLimit, id)
	}
	for i := 1; i < len(res.Suggestions); i++ {
		prev, cur := res.Suggestions[i-1], res.Suggestions[i]
		assert.LessOrEqual(t, prev.MaxDeficit, cur.MaxDeficit)
	}
}

func TestPlanIsDeterministic(t *testing.T) {
	p := mustPlanner(t, generatedConfig())
	first := mustPlan(t, p, generated(60))
	second := mustPlan(t, p, generated(60))
	assert.Equal(t, first, second)
}

func TestPlanIsIdempotent(t *testing.T) {
	// Without holidays every exit date is fixed by its entry date, so
	// batches rejected in the first run stay rejected.
	cfg := generatedConfig()
	cfg.Holidays = []string{}
	p := mustPlanner(t, cfg)
	first := mustPlan(t, p, generated(60))
	second := mustPlan(t, p, first.Batches)
	assert.Equal(t, first.Batches, second.Batches)
	assert.Equal(t, first.Stabilization, second.Stabilization)
	assert.Equal(t, first.Stats.Unplaced, second.Stats.Unplaced)
	assert.Equal(t, 0, second.Stats.Placed)
}

func TestPlanReplanAfterRelease(t *testing.T) {
	cfg := baseConfig()
	cfg.EntryCapacity = TierCapacity{Tier1: 100, Tier2: 100}
	p := mustPlanner(t, cfg)
	blocker := placedBatch(newBatch("blk", "JX", "2025-03-03", 100, 0), "2025-03-03", "2025-03-03")
	res := mustPlan(t, p, []model.Batch{blocker, newBatch("new", "JX", "2025-03-03", 100, 0)})
	assert.Equal(t, "2025-03-04", entryOf(t, findBatch(t, res, "new")))

	batches := res.Batches
	assert.Equal(t, 1, Release(batches, []string{"blk"}))
	res = mustPlan(t, p, batches)
	assert.Equal(t, "2025-03-04", entryOf(t, findBatch(t, res, "new")), "kept placement is frozen")
	assert.Equal(t, "2025-03-03", entryOf(t, findBatch(t, res, "blk")))
}
