package metrics

import (
	"errors"
	"testing"

	"github.com/kilianp07/saltplan/core/model"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordRun(RunSummary) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordPlacement(PlacementEvent) error {
	r.count++
	return nil
}

// runOnly implements only the mandatory recorder.
type runOnly struct{ count int }

func (r *runOnly) RecordRun(RunSummary) error {
	r.count++
	return nil
}

// TestMultiSink ensures records are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &runOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordRun(RunSummary{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordPlacement(PlacementEvent{}); err != nil {
		t.Fatalf("record placement: %v", err)
	}
	if err := m.RecordStabilization([]model.StabilizationDay{{}}); err != nil {
		t.Fatalf("record stabilization: %v", err)
	}
	if s1.count != 2 || s2.count != 2 || s3.count != 1 {
		t.Fatalf("records not forwarded: %d %d %d", s1.count, s2.count, s3.count)
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordSink{err: boom}
	after := &recordSink{}
	m := NewMultiSink(failing, after)
	err := m.RecordRun(RunSummary{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom got %v", err)
	}
	if after.count != 1 {
		t.Fatalf("later sink skipped")
	}
}
