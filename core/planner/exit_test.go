package planner

import (
	"testing"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
)

func TestExitRule(t *testing.T) {
	cal := calendar.New([]time.Time{day("2025-03-05"), day("2025-03-10"), day("2025-03-14")})
	rule := ExitRule{Calendar: cal, AdjustWeekends: true, AdjustHolidays: true}
	loads := func(m map[string]int) LoadFunc {
		return func(d time.Time) int { return m[d.Format(calendar.Layout)] }
	}

	cases := []struct {
		name  string
		rule  ExitRule
		entry string
		dwell int
		load  LoadFunc
		want  string
	}{
		{"plain", rule, "2025-03-03", 1, nil, "2025-03-04"},
		{"saturday back to friday", rule, "2025-03-03", 5, nil, "2025-03-07"},
		{"sunday forward past monday holiday", rule, "2025-03-03", 6, nil, "2025-03-11"},
		{"monday holiday forward", rule, "2025-03-03", 7, nil, "2025-03-11"},
		{"friday holiday back", rule, "2025-03-11", 3, nil, "2025-03-13"},
		{"saturday back past friday holiday", rule, "2025-03-10", 5, nil, "2025-03-13"},
		{"midweek tie picks earlier", rule, "2025-03-03", 2, loads(nil), "2025-03-04"},
		{"midweek lighter next", rule, "2025-03-03", 2, loads(map[string]int{"2025-03-04": 10}), "2025-03-06"},
		{"midweek lighter previous", rule, "2025-03-03", 2, loads(map[string]int{"2025-03-06": 10}), "2025-03-04"},
		{"weekends off", ExitRule{Calendar: cal, AdjustHolidays: true}, "2025-03-03", 5, nil, "2025-03-08"},
		{"holidays off", ExitRule{Calendar: cal, AdjustWeekends: true}, "2025-03-03", 2, nil, "2025-03-05"},
		{"zero dwell", rule, "2025-03-06", 0, nil, "2025-03-06"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.rule.Exit(day(tc.entry), tc.dwell, tc.load)
			if got.Format(calendar.Layout) != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got.Format(calendar.Layout))
			}
		})
	}
}
