package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/saltplan/core/events"
	coremetrics "github.com/kilianp07/saltplan/core/metrics"
	"github.com/kilianp07/saltplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// planner events. It stops when the context is canceled or the bus closes.
// The returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) {
	now := time.Now()
	switch e := ev.(type) {
	case events.PlacementEvent:
		if r, ok := sink.(coremetrics.PlacementRecorder); ok {
			_ = r.RecordPlacement(coremetrics.PlacementEvent{
				BatchID:     e.BatchID,
				ProductCode: e.ProductCode,
				Quantity:    e.Quantity,
				Entry:       e.Entry,
				Exit:        e.Exit,
				Tier:        e.Tier,
				StorageDays: e.StorageDays,
				Grouped:     e.Grouped,
				Time:        now,
			})
		}
	case events.GroupEvent:
		if r, ok := sink.(coremetrics.GroupRecorder); ok {
			_ = r.RecordGroup(coremetrics.GroupEvent{
				Group:    e.Group,
				Outcome:  e.Outcome,
				Fallback: e.Fallback,
				Members:  len(e.BatchIDs),
				Tier:     e.Tier,
				Time:     now,
			})
		}
	case events.UnplacedEvent:
		if r, ok := sink.(coremetrics.UnplacedRecorder); ok {
			_ = r.RecordUnplaced(coremetrics.UnplacedEvent{
				BatchID:     e.BatchID,
				ProductCode: e.ProductCode,
				Quantity:    e.Quantity,
				MinDeficit:  e.MinDeficit,
				Time:        now,
			})
		}
	}
}
