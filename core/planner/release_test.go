package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/saltplan/core/model"
)

func TestReleaseClearsOnlyListedBatches(t *testing.T) {
	batches := []model.Batch{
		placedBatch(newBatch("a", "JX", "2025-03-03", 10, 0), "2025-03-03", "2025-03-03"),
		placedBatch(newBatch("b", "JX", "2025-03-03", 10, 0), "2025-03-04", "2025-03-04"),
	}
	n := Release(batches, []string{"b", "missing"})
	assert.Equal(t, 1, n)
	assert.NotNil(t, batches[0].EntryDate)
	assert.Equal(t, model.FitYes, batches[0].Fits)
	assert.Nil(t, batches[1].EntryDate)
	assert.Nil(t, batches[1].ExitDate)
	assert.Nil(t, batches[1].StorageDays)
	assert.Nil(t, batches[1].DwellDays)
	assert.Nil(t, batches[1].DwellDeviation)
	assert.Equal(t, model.FitUnknown, batches[1].Fits)
	assert.Equal(t, 0, Release(batches, nil))
}

func TestReleaseCandidates(t *testing.T) {
	flagged := placedBatch(newBatch("flagged", "JX", "2025-03-03", 10, 0), "2025-03-03", "2025-03-03")
	flagged.Fits = model.FitNo
	batches := []model.Batch{
		placedBatch(newBatch("ok", "JX", "2025-03-03", 10, 0), "2025-03-03", "2025-03-03"),
		newBatch("open", "JX", "2025-03-03", 10, 0),
		flagged,
	}
	assert.Equal(t, []string{"open", "flagged"}, ReleaseCandidates(batches))
}
