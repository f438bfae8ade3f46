package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/saltplan/app"
	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/model"
	"github.com/kilianp07/saltplan/core/planner"
	"github.com/kilianp07/saltplan/core/runlog"
	"github.com/kilianp07/saltplan/infra/logger"
	"github.com/kilianp07/saltplan/infra/metrics"
	"github.com/kilianp07/saltplan/infra/mqtt"
	"github.com/kilianp07/saltplan/internal/eventbus"
)

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	pub := mqtt.NewMockPublisher()
	for _, id := range sc.FailPublish {
		pub.FailIDs[id] = true
	}
	store, err := runlog.NewJSONLStore(t.TempDir() + "/runs.jsonl")
	if err != nil {
		t.Fatalf("run log: %v", err)
	}

	bus := eventbus.New(eventbus.WithBuffer(256))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := metrics.StartEventCollector(ctx, bus, sink)

	p, err := planner.New(sc.Config, planner.WithLogger(logger.NopLogger{}), planner.WithEventBus(bus))
	if err != nil {
		t.Fatalf("planner: %v", err)
	}
	svc := app.New(p,
		app.WithMetrics(sink),
		app.WithRunLog(store),
		app.WithPublisher(pub, 0),
		app.WithLogger(logger.NopLogger{}))

	batches := make([]model.Batch, len(sc.Batches))
	for i, d := range sc.Batches {
		if batches[i], err = d.ToModel(); err != nil {
			t.Fatalf("%v", err)
		}
	}

	out, err := svc.Plan(ctx, app.Request{Batches: batches, Release: sc.Release, ReleaseUnfit: sc.ReleaseUnfit})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	bus.Close()
	<-done

	exp := sc.Expected
	if out.Stats.Placed != exp.Placed {
		t.Errorf("placed: expected %d got %d", exp.Placed, out.Stats.Placed)
	}
	if out.Stats.Retained != exp.Retained {
		t.Errorf("retained: expected %d got %d", exp.Retained, out.Stats.Retained)
	}
	if out.Stats.PlacedInGroups != exp.PlacedInGroups {
		t.Errorf("placed in groups: expected %d got %d", exp.PlacedInGroups, out.Stats.PlacedInGroups)
	}
	if !sameIDs(out.Stats.Unplaced, exp.Unplaced) {
		t.Errorf("unplaced: expected %v got %v", exp.Unplaced, out.Stats.Unplaced)
	}
	if !sameIDs(out.Released, exp.Released) {
		t.Errorf("released: expected %v got %v", exp.Released, out.Released)
	}
	if pub.Count() != exp.Published {
		t.Errorf("published: expected %d got %d", exp.Published, pub.Count())
	}
	if len(exp.Unplaced) > 0 && len(pub.Digests) != 1 {
		t.Errorf("expected one suggestion digest, got %d", len(pub.Digests))
	}

	byID := make(map[string]model.Batch, len(out.Batches))
	for _, b := range out.Batches {
		byID[b.ID] = b
		checkInvariants(t, b, sc.Config.MaxStorageDays)
	}
	for id, want := range exp.Batches {
		checkBatch(t, byID[id], want)
	}
	if len(exp.SameEntry) > 1 {
		first := byID[exp.SameEntry[0]].EntryDate
		for _, id := range exp.SameEntry[1:] {
			e := byID[id].EntryDate
			if first == nil || e == nil || !e.Equal(*first) {
				t.Errorf("batches %v do not share one entry date", exp.SameEntry)
			}
		}
	}

	if got := counterSum(t, reg, "saltplan_runs_total"); got != 1 {
		t.Errorf("runs counter: expected 1 got %v", got)
	}
	if got := counterSum(t, reg, "saltplan_batches_placed_total"); int(got) != exp.Placed {
		t.Errorf("placed counter: expected %d got %v", exp.Placed, got)
	}
	records, err := store.Query(ctx, runlog.RunQuery{})
	if err != nil || len(records) != 1 || records[0].RunID != out.RunID {
		t.Errorf("run log: expected the run %s, got %v (%v)", out.RunID, records, err)
	}
}

// checkInvariants verifies the ordering of dates on placed batches.
func checkInvariants(t *testing.T, b model.Batch, maxStorage int) {
	t.Helper()
	if !b.Placed() || b.ExitDate == nil {
		return
	}
	if b.EntryDate.Before(b.ReceptionDate) {
		t.Errorf("batch %s enters before reception", b.ID)
	}
	if b.ExitDate.Before(*b.EntryDate) {
		t.Errorf("batch %s exits before entry", b.ID)
	}
	if b.StorageDays != nil && *b.StorageDays > maxStorage {
		t.Errorf("batch %s stored %d days, limit %d", b.ID, *b.StorageDays, maxStorage)
	}
}

func checkBatch(t *testing.T, b model.Batch, want BatchExpectation) {
	t.Helper()
	if want.Entry != "" && !sameDay(b.EntryDate, want.Entry) {
		t.Errorf("batch %s: expected entry %s got %v", b.ID, want.Entry, b.EntryDate)
	}
	if want.Exit != "" && !sameDay(b.ExitDate, want.Exit) {
		t.Errorf("batch %s: expected exit %s got %v", b.ID, want.Exit, b.ExitDate)
	}
	if want.Fits != "" && b.Fits.String() != want.Fits {
		t.Errorf("batch %s: expected fits %s got %s", b.ID, want.Fits, b.Fits)
	}
}

func sameDay(d *time.Time, s string) bool {
	return d != nil && d.Format(calendar.Layout) == s
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]int, len(got))
	for _, id := range got {
		seen[id]++
	}
	for _, id := range want {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}

func counterSum(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	sum := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}
