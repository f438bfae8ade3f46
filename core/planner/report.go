package planner

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/capacity"
	"github.com/kilianp07/saltplan/core/model"
)

// Report is the daily stabilization-chamber occupancy of a set of batches.
type Report struct {
	Days    []model.StabilizationDay `json:"days"`
	Summary ReportSummary            `json:"summary"`
}

// ReportSummary condenses a Report.
type ReportSummary struct {
	Days             int       `json:"days"`
	PeakDate         time.Time `json:"peak_date"`
	Peak             int       `json:"peak"`
	MeanUtilization  float64   `json:"mean_utilization_pct"`
	MaxUtilization   float64   `json:"max_utilization_pct"`
	DaysOverCapacity int       `json:"days_over_capacity"`
	TotalExcess      int       `json:"total_excess"`
}

// StabilizationReport computes chamber occupancy from the entry dates of
// batches. Batches entering on their reception day, without quantity or
// malformed are ignored.
func StabilizationReport(batches []model.Batch, policy capacity.Policy) Report {
	type load struct{ total, ham, shoulder int }
	days := map[time.Time]*load{}
	for _, b := range batches {
		if b.EntryDate == nil || b.Quantity <= 0 || b.Malformed() {
			continue
		}
		from, to, ok := capacity.StabilizationRange(b.ReceptionDate, *b.EntryDate)
		if !ok {
			continue
		}
		fam := b.Family()
		for d := from; !d.After(to); d = calendar.AddDays(d, 1) {
			l, ok := days[d]
			if !ok {
				l = &load{}
				days[d] = l
			}
			l.total += b.Quantity
			switch fam {
			case model.FamilyHam:
				l.ham += b.Quantity
			case model.FamilyShoulder:
				l.shoulder += b.Quantity
			}
		}
	}

	dates := make([]time.Time, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	rep := Report{Days: make([]model.StabilizationDay, 0, len(dates))}
	utils := make([]float64, 0, len(dates))
	for _, d := range dates {
		l := days[d]
		cp := policy.StabilizationCapacity(d)
		row := model.StabilizationDay{
			Date:     d,
			Total:    l.total,
			Ham:      l.ham,
			Shoulder: l.shoulder,
			Capacity: cp,
			Excess:   max(0, l.total-cp),
		}
		if cp > 0 {
			row.Utilization = math.Round(float64(l.total)/float64(cp)*1000) / 10
		}
		rep.Days = append(rep.Days, row)
		utils = append(utils, row.Utilization)
	}
	rep.Summary = summarize(rep.Days, utils)
	return rep
}

func summarize(days []model.StabilizationDay, utils []float64) ReportSummary {
	sum := ReportSummary{Days: len(days)}
	if len(days) == 0 {
		return sum
	}
	for _, d := range days {
		if d.Total > sum.Peak {
			sum.Peak = d.Total
			sum.PeakDate = d.Date
		}
		if d.Excess > 0 {
			sum.DaysOverCapacity++
			sum.TotalExcess += d.Excess
		}
	}
	sum.MeanUtilization = math.Round(stat.Mean(utils, nil)*10) / 10
	sum.MaxUtilization = floats.Max(utils)
	return sum
}
