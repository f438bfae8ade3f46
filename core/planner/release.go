package planner

import "github.com/kilianp07/saltplan/core/model"

// Release clears the placement of every batch whose id is listed and returns
// how many were released. Other batches are left untouched.
func Release(batches []model.Batch, ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	n := 0
	for i := range batches {
		if _, ok := want[batches[i].ID]; ok {
			batches[i].Release()
			n++
		}
	}
	return n
}

// ReleaseCandidates returns the ids re-planned by default: batches without an
// entry date and batches flagged as not fitting.
func ReleaseCandidates(batches []model.Batch) []string {
	var ids []string
	for _, b := range batches {
		if !b.Placed() || b.Fits == model.FitNo {
			ids = append(ids, b.ID)
		}
	}
	return ids
}
