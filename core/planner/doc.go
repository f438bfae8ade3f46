// Package planner assigns salting-line entry and exit dates to production
// batches.
//
// A run seeds the entry, exit and stabilization ledgers from batches that
// already carry dates, co-schedules the configured product groups on shared
// entry dates, places the remaining batches greedily in reception order and
// finally produces deficit suggestions for batches that fit nowhere. Plan
// never mutates its input slice; every run starts from a fresh state.
package planner
