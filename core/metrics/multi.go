package metrics

import (
	"errors"

	"github.com/kilianp07/saltplan/core/model"
)

// MultiSink fans records out to several sinks. Every sink receives the
// record even when an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the run summary to all sinks.
func (m *MultiSink) RecordRun(s RunSummary) error {
	var errs []error
	for _, sink := range m.Sinks {
		errs = append(errs, sink.RecordRun(s))
	}
	return errors.Join(errs...)
}

// RecordPlacement forwards placements to sinks that record them.
func (m *MultiSink) RecordPlacement(ev PlacementEvent) error {
	var errs []error
	for _, sink := range m.Sinks {
		if rec, ok := sink.(PlacementRecorder); ok {
			errs = append(errs, rec.RecordPlacement(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordGroup forwards group outcomes.
func (m *MultiSink) RecordGroup(ev GroupEvent) error {
	var errs []error
	for _, sink := range m.Sinks {
		if rec, ok := sink.(GroupRecorder); ok {
			errs = append(errs, rec.RecordGroup(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordUnplaced forwards unplaced batches.
func (m *MultiSink) RecordUnplaced(ev UnplacedEvent) error {
	var errs []error
	for _, sink := range m.Sinks {
		if rec, ok := sink.(UnplacedRecorder); ok {
			errs = append(errs, rec.RecordUnplaced(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordStabilization forwards chamber occupancy.
func (m *MultiSink) RecordStabilization(days []model.StabilizationDay) error {
	var errs []error
	for _, sink := range m.Sinks {
		if rec, ok := sink.(StabilizationRecorder); ok {
			errs = append(errs, rec.RecordStabilization(days))
		}
	}
	return errors.Join(errs...)
}
