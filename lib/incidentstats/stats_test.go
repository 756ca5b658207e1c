// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package incidentstats

import (
	"testing"

	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
)

// TestComputeBuckets verifies the bucket definitions against a mixed
// incident set: one sit rep, one open ejection, one closed refusal.
func TestComputeBuckets(t *testing.T) {
	incidents := []event.Incident{
		{ID: "1", Type: event.TypeSitRep},
		{ID: "2", Type: event.TypeEjection},
		{ID: "3", Type: event.TypeRefusal, Closed: true},
	}

	stats := Compute(incidents)

	want := Stats{
		Total:        3,
		HighPriority: 1,
		Logged:       1,
		Open:         1,
		Closed:       1,
		Refusals:     1,
		Ejections:    1,
	}
	if stats != want {
		t.Fatalf("Compute = %+v, want %+v", stats, want)
	}
}

// TestComputeIdempotent verifies that recomputing over an unchanged
// set yields identical buckets — no hidden accumulation.
func TestComputeIdempotent(t *testing.T) {
	incidents := []event.Incident{
		{ID: "1", Type: event.TypeCodeGreen, ActionTaken: "medic dispatched"},
		{ID: "2", Type: event.TypeSitRep},
		{ID: "3", Type: event.TypeEjection, Closed: true},
	}

	first := Compute(incidents)
	second := Compute(incidents)
	if first != second {
		t.Fatalf("recompute changed buckets: first %+v, second %+v", first, second)
	}
}

// TestComputeInProgressSubsetOfOpen verifies that only open incidents
// with an action recorded count as in-progress, and that a closed
// incident's action does not.
func TestComputeInProgressSubsetOfOpen(t *testing.T) {
	incidents := []event.Incident{
		{ID: "1", Type: event.TypeAggressive, ActionTaken: "response team sent"},
		{ID: "2", Type: event.TypeAggressive},
		{ID: "3", Type: event.TypeAggressive, ActionTaken: "resolved", Closed: true},
	}

	stats := Compute(incidents)
	if stats.Open != 2 {
		t.Fatalf("Open = %d, want 2", stats.Open)
	}
	if stats.InProgress != 1 {
		t.Fatalf("InProgress = %d, want 1", stats.InProgress)
	}
	if stats.Closed != 1 {
		t.Fatalf("Closed = %d, want 1", stats.Closed)
	}
}

// TestComputeMedicalCodes verifies all three medical codes count as
// both medical and high-priority.
func TestComputeMedicalCodes(t *testing.T) {
	incidents := []event.Incident{
		{ID: "1", Type: event.TypeCodeGreen},
		{ID: "2", Type: event.TypeCodeBlack},
		{ID: "3", Type: event.TypeCodePink},
	}

	stats := Compute(incidents)
	if stats.Medical != 3 {
		t.Fatalf("Medical = %d, want 3", stats.Medical)
	}
	if stats.HighPriority != 3 {
		t.Fatalf("HighPriority = %d, want 3", stats.HighPriority)
	}
}

// TestComputeSitRepClosedFlagIgnored verifies a closed sit rep still
// counts only as logged.
func TestComputeSitRepClosedFlagIgnored(t *testing.T) {
	stats := Compute([]event.Incident{{ID: "1", Type: event.TypeSitRep, Closed: true}})
	if stats.Logged != 1 || stats.Closed != 0 || stats.Open != 0 {
		t.Fatalf("closed sit rep miscounted: %+v", stats)
	}
}

// TestComputeEmpty verifies the zero-incident case yields zero buckets.
func TestComputeEmpty(t *testing.T) {
	if stats := Compute(nil); stats != (Stats{}) {
		t.Fatalf("Compute(nil) = %+v, want zero", stats)
	}
}

// TestComputeUnknownCategory verifies an unrecognized backend category
// still counts toward total and the open/closed accounting.
func TestComputeUnknownCategory(t *testing.T) {
	stats := Compute([]event.Incident{{ID: "1", Type: "noise_complaint"}})
	if stats.Total != 1 || stats.Open != 1 || stats.HighPriority != 0 {
		t.Fatalf("unknown category miscounted: %+v", stats)
	}
}
