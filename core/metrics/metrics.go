package metrics

import (
	"time"

	"github.com/kilianp07/saltplan/core/model"
)

// RunSummary describes one planning run.
type RunSummary struct {
	RunID          string
	Time           time.Time
	Duration       time.Duration
	Total          int
	Retained       int
	Released       int
	Placed         int
	PlacedInGroups int
	Unplaced       int
	Skipped        int
	Suggestions    int
}

// MetricsSink records planning runs for observability purposes.
type MetricsSink interface {
	RecordRun(RunSummary) error
}

// PlacementEvent is a batch committed by the planner.
type PlacementEvent struct {
	BatchID     string
	ProductCode string
	Quantity    int
	Entry       time.Time
	Exit        time.Time
	Tier        int
	StorageDays int
	Grouped     bool
	Time        time.Time
}

// PlacementRecorder records committed placements.
type PlacementRecorder interface {
	RecordPlacement(ev PlacementEvent) error
}

// GroupEvent is the outcome of one group co-scheduling attempt.
type GroupEvent struct {
	Group    string
	Outcome  string
	Fallback bool
	Members  int
	Tier     int
	Time     time.Time
}

// GroupRecorder records group outcomes.
type GroupRecorder interface {
	RecordGroup(ev GroupEvent) error
}

// UnplacedEvent is a batch that fits nowhere in its window.
type UnplacedEvent struct {
	BatchID     string
	ProductCode string
	Quantity    int
	MinDeficit  int
	Time        time.Time
}

// UnplacedRecorder records unplaced batches.
type UnplacedRecorder interface {
	RecordUnplaced(ev UnplacedEvent) error
}

// StabilizationRecorder records the chamber occupancy produced by a run.
type StabilizationRecorder interface {
	RecordStabilization(days []model.StabilizationDay) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunSummary) error { return nil }

func (NopSink) RecordPlacement(PlacementEvent) error               { return nil }
func (NopSink) RecordGroup(GroupEvent) error                       { return nil }
func (NopSink) RecordUnplaced(UnplacedEvent) error                 { return nil }
func (NopSink) RecordStabilization([]model.StabilizationDay) error { return nil }
