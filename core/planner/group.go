package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kilianp07/saltplan/core/calendar"
	"github.com/kilianp07/saltplan/core/capacity"
	"github.com/kilianp07/saltplan/core/events"
	"github.com/kilianp07/saltplan/core/model"
)

// GroupPolicy selects how a product group is co-scheduled.
type GroupPolicy int

const (
	// GroupUnit places every pending batch of the group on one entry date.
	GroupUnit GroupPolicy = iota
	// GroupJoint tries all codes together and falls back to one unit group
	// per code, in declaration order, when that fails.
	GroupJoint
)

// String returns the configuration name of the policy.
func (p GroupPolicy) String() string {
	if p == GroupJoint {
		return "joint"
	}
	return "unit"
}

// ParseGroupPolicy maps a configuration value onto a GroupPolicy.
func ParseGroupPolicy(s string) (GroupPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unit":
		return GroupUnit, nil
	case "joint", "joint-with-fallback":
		return GroupJoint, nil
	default:
		return GroupUnit, fmt.Errorf("unknown group policy %q", s)
	}
}

// Group is a parsed product group.
type Group struct {
	Name          string
	Policy        GroupPolicy
	Codes         []string
	FlagOnFailure bool
}

// GroupResult records the outcome of one co-scheduling attempt.
type GroupResult struct {
	Group    string     `json:"group"`
	Codes    []string   `json:"codes"`
	Placed   bool       `json:"placed"`
	Empty    bool       `json:"empty,omitempty"`
	Fallback bool       `json:"fallback,omitempty"`
	Entry    *time.Time `json:"entry,omitempty"`
	Tier     int        `json:"tier,omitempty"`
	BatchIDs []string   `json:"batch_ids,omitempty"`
}

func (r GroupResult) outcome() string {
	switch {
	case r.Placed:
		return "placed"
	case r.Empty:
		return "empty"
	default:
		return "failed"
	}
}

// scheduleGroup runs one declared group, including the per-code fallback of
// joint groups.
func (s *state) scheduleGroup(g Group) []GroupResult {
	res := s.coSchedule(g.Name, g.Codes, g.FlagOnFailure, false)
	out := []GroupResult{res}
	if g.Policy != GroupJoint || res.Placed || res.Empty {
		return out
	}
	s.log.Infof("group %s: joint placement failed, falling back per code", g.Name)
	for _, code := range g.Codes {
		out = append(out, s.coSchedule(g.Name+"/"+code, []string{code}, g.FlagOnFailure, true))
	}
	return out
}

// coSchedule places every pending batch with one of codes on a single shared
// entry date, or none of them.
func (s *state) coSchedule(name string, codes []string, flag, fallback bool) GroupResult {
	res := GroupResult{Group: name, Codes: append([]string(nil), codes...), Fallback: fallback}
	inGroup := make(map[string]bool, len(codes))
	for _, c := range codes {
		inGroup[c] = true
	}

	var pending []int
	for i, b := range s.batches {
		if !b.Placed() && !b.Malformed() && inGroup[b.ProductCode] {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		res.Empty = true
		s.publishGroup(res)
		return res
	}
	for _, i := range pending {
		res.BatchIDs = append(res.BatchIDs, s.batches[i].ID)
	}

	var start, end time.Time
	for k, i := range pending {
		earliest, latest := s.window(s.batches[i])
		if k == 0 || earliest.After(start) {
			start = earliest
		}
		if k == 0 || latest.Before(end) {
			end = latest
		}
	}
	if start.After(end) {
		s.log.Warnf("group %s: empty common window", name)
		s.failGroup(pending, flag)
		s.publishGroup(res)
		return res
	}

	candidates := s.groupCandidates(inGroup, start, end)
	s.log.Debugw("group candidates", map[string]any{"group": name, "pending": len(pending), "candidates": len(candidates)})
	for _, tier := range capacity.Tiers {
		for _, d := range candidates {
			exits, ok := s.jointFeasible(pending, d, tier)
			if !ok {
				continue
			}
			for k, i := range pending {
				s.commit(i, d, exits[k], tier, true)
			}
			entry := d
			res.Placed = true
			res.Entry = &entry
			res.Tier = int(tier)
			s.log.Infof("group %s: %d batches placed on %s (%s)", name, len(pending), d.Format(calendar.Layout), tier)
			s.publishGroup(res)
			return res
		}
	}
	s.log.Warnf("group %s: no common entry date in %s..%s", name, start.Format(calendar.Layout), end.Format(calendar.Layout))
	s.failGroup(pending, flag)
	s.publishGroup(res)
	return res
}

func (s *state) failGroup(pending []int, flag bool) {
	if !flag {
		return
	}
	for _, i := range pending {
		s.batches[i].Fits = model.FitNo
	}
}

// groupCandidates lists entry dates already used by the group first, then
// every business day of the window, without duplicates. A used date inside the
// window is kept even when it is not a business day.
func (s *state) groupCandidates(inGroup map[string]bool, start, end time.Time) []time.Time {
	seen := map[time.Time]bool{}
	var existing []time.Time
	for _, b := range s.batches {
		if !b.Placed() || b.Malformed() || !inGroup[b.ProductCode] {
			continue
		}
		d := calendar.Day(*b.EntryDate)
		if seen[d] || d.Before(start) || d.After(end) {
			continue
		}
		seen[d] = true
		existing = append(existing, d)
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].Before(existing[j]) })

	out := existing
	for d := s.cal.OnOrAfter(start); !d.After(end); d = s.cal.Next(d) {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out
}

// jointFeasible checks whether all pending batches fit when entering on d at
// the given tier and returns their exit dates in pending order.
func (s *state) jointFeasible(pending []int, d time.Time, tier capacity.Tier) ([]time.Time, bool) {
	total := 0
	for _, i := range pending {
		total += s.batches[i].Quantity
	}
	if s.ledgers.Entry.Load(d)+total > s.policy.EntryCapacity(d, tier) {
		return nil, false
	}

	stab := map[time.Time]int{}
	for _, i := range pending {
		b := s.batches[i]
		from, to, ok := capacity.StabilizationRange(b.ReceptionDate, d)
		if !ok {
			continue
		}
		for day := from; !day.After(to); day = calendar.AddDays(day, 1) {
			if s.ledgers.Stabilization.Load(day)+stab[day]+b.Quantity > s.policy.StabilizationCapacity(day) {
				return nil, false
			}
			stab[day] += b.Quantity
		}
	}

	adds := map[time.Time]int{}
	load := func(x time.Time) int { return s.ledgers.Exit.Load(x) + adds[x] }
	exits := make([]time.Time, len(pending))
	for k, i := range pending {
		b := s.batches[i]
		exit := s.rule.Exit(d, b.OptimalDwellDays, load)
		adds[exit] += b.Quantity
		exits[k] = exit
	}
	for day, qty := range adds {
		if s.ledgers.Exit.Load(day)+qty > s.policy.ExitCapacity(day, tier) {
			return nil, false
		}
	}
	return exits, true
}

func (s *state) publishGroup(r GroupResult) {
	s.stats.Groups = append(s.stats.Groups, r)
	if s.bus == nil {
		return
	}
	ev := events.GroupEvent{
		Group:    r.Group,
		Codes:    r.Codes,
		Outcome:  r.outcome(),
		Fallback: r.Fallback,
		Tier:     r.Tier,
		BatchIDs: r.BatchIDs,
	}
	if r.Entry != nil {
		ev.Entry = *r.Entry
	}
	s.bus.Publish(ev)
}
