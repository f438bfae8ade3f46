package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/saltplan/core/capacity"
	"github.com/kilianp07/saltplan/core/model"
)

func TestStabilizationReport(t *testing.T) {
	policy := capacity.Policy{
		Stabilization:          120,
		StabilizationOverrides: map[time.Time]int{day("2025-03-05"): 0},
	}
	batches := []model.Batch{
		placedBatch(newBatch("ham", "JX", "2025-03-03", 100, 0), "2025-03-05", "2025-03-05"),
		placedBatch(newBatch("shoulder", "PX", "2025-03-04", 50, 0), "2025-03-05", "2025-03-05"),
		placedBatch(newBatch("same-day", "JX", "2025-03-04", 70, 0), "2025-03-04", "2025-03-04"),
		placedBatch(newBatch("empty", "JX", "2025-03-03", 0, 0), "2025-03-05", "2025-03-05"),
		newBatch("unplaced", "JX", "2025-03-03", 500, 0),
	}
	rep := StabilizationReport(batches, policy)
	require.Len(t, rep.Days, 2)

	mon, tue := rep.Days[0], rep.Days[1]
	assert.Equal(t, day("2025-03-03"), mon.Date)
	assert.Equal(t, 100, mon.Total)
	assert.Equal(t, 100, mon.Ham)
	assert.Equal(t, 0, mon.Shoulder)
	assert.Equal(t, 120, mon.Capacity)
	assert.Equal(t, 83.3, mon.Utilization)
	assert.Equal(t, 0, mon.Excess)

	assert.Equal(t, 150, tue.Total)
	assert.Equal(t, 50, tue.Shoulder)
	assert.Equal(t, 125.0, tue.Utilization)
	assert.Equal(t, 30, tue.Excess)

	s := rep.Summary
	assert.Equal(t, 2, s.Days)
	assert.Equal(t, 150, s.Peak)
	assert.Equal(t, day("2025-03-04"), s.PeakDate)
	assert.Equal(t, 1, s.DaysOverCapacity)
	assert.Equal(t, 30, s.TotalExcess)
	assert.Equal(t, 125.0, s.MaxUtilization)
	assert.InDelta(t, 104.15, s.MeanUtilization, 0.06)
}

func TestStabilizationReportZeroCapacity(t *testing.T) {
	policy := capacity.Policy{Stabilization: 0}
	rep := StabilizationReport([]model.Batch{
		placedBatch(newBatch("a", "JX", "2025-03-03", 10, 0), "2025-03-04", "2025-03-04"),
	}, policy)
	require.Len(t, rep.Days, 1)
	assert.Equal(t, 0.0, rep.Days[0].Utilization)
	assert.Equal(t, 10, rep.Days[0].Excess)
}

func TestStabilizationReportEmpty(t *testing.T) {
	rep := StabilizationReport(nil, capacity.Policy{Stabilization: 10})
	assert.Empty(t, rep.Days)
	assert.Equal(t, ReportSummary{}, rep.Summary)
}
