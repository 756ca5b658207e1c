// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package incidentstats computes the aggregate incident counters shown
// on the dashboard. The buckets are a pure function of the incident
// set: the aggregator holds no state between calls, so recomputing
// from a fresh snapshot after every change notification is always
// safe.
package incidentstats

import "github.com/DavidCapener182/compact-event-control/lib/schema/event"

// Stats is the bucket breakdown for one event's incidents. Buckets
// are not mutually exclusive — an ejection is counted in Total,
// HighPriority, Ejections, and one of Open/InProgress/Closed.
type Stats struct {
	// Total counts every incident, including sit reps.
	Total int

	// HighPriority counts ejections and the three medical codes.
	HighPriority int

	// Logged counts sit reps. Sit reps are informational and are
	// excluded from the Open/InProgress/Closed accounting entirely.
	Logged int

	// Open counts non-sit-rep incidents that are not closed.
	Open int

	// InProgress counts open incidents with an action recorded.
	// Always a subset of Open.
	InProgress int

	// Closed counts non-sit-rep incidents that are closed.
	Closed int

	// Category counters.
	Refusals  int
	Ejections int
	Medical   int
}

// Compute aggregates the buckets for the given incident set in a
// single pass. Order of the input does not affect the result.
func Compute(incidents []event.Incident) Stats {
	var stats Stats
	for _, incident := range incidents {
		stats.Total++

		if incident.Type.HighPriority() {
			stats.HighPriority++
		}
		if incident.Type.Medical() {
			stats.Medical++
		}
		switch incident.Type {
		case event.TypeRefusal:
			stats.Refusals++
		case event.TypeEjection:
			stats.Ejections++
		}

		// Sit reps are logged-only: they never appear in the
		// open/closed/in-progress counters.
		if incident.Type == event.TypeSitRep {
			stats.Logged++
			continue
		}

		if incident.Closed {
			stats.Closed++
			continue
		}
		stats.Open++
		if incident.ActionTaken != "" {
			stats.InProgress++
		}
	}
	return stats
}
