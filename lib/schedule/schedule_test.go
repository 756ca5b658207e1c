// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"testing"
	"time"

	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
)

// at builds a wall-clock instant on a fixed show day.
func at(hour, minute, second int) time.Time {
	return time.Date(2026, 6, 20, hour, minute, second, 0, time.UTC)
}

// TestUpcomingDropsPassedEntries verifies the canonical case: with
// doors at 18:00, main act at 20:00, curfew at 23:00 and now 19:00,
// the strip shows exactly main act (next) and curfew.
func TestUpcomingDropsPassedEntries(t *testing.T) {
	active := event.Event{
		DoorsOpen:    "18:00",
		MainActStart: "20:00",
		Curfew:       "23:00",
	}

	entries := Upcoming(active, at(19, 0, 0))

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}
	if entries[0].Title != "Main Act" || !entries[0].Next {
		t.Fatalf("first entry = %+v, want Main Act flagged next", entries[0])
	}
	if entries[1].Title != "Curfew" || entries[1].Next {
		t.Fatalf("second entry = %+v, want Curfew not flagged", entries[1])
	}
}

// TestUpcomingCapsAtThree verifies a full schedule yields the nearest
// three milestones, sorted ascending.
func TestUpcomingCapsAtThree(t *testing.T) {
	active := event.Event{
		SecurityCall: "16:00",
		DoorsOpen:    "18:00",
		MainActStart: "20:00",
		ShowStopMeet: "21:30",
		ShowDown:     "22:45",
		Curfew:       "23:00",
	}

	entries := Upcoming(active, at(15, 0, 0))

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Minutes >= entries[i].Minutes {
			t.Fatalf("entries not strictly before-or-equal sorted: %+v", entries)
		}
	}
	if entries[0].Title != "Security Call" {
		t.Fatalf("nearest = %q, want Security Call", entries[0].Title)
	}
}

// TestUpcomingStrictlyFuture verifies a milestone at exactly the
// current minute is dropped — only strictly future entries qualify.
func TestUpcomingStrictlyFuture(t *testing.T) {
	active := event.Event{DoorsOpen: "18:00", Curfew: "23:00"}

	entries := Upcoming(active, at(18, 0, 30))
	if len(entries) != 1 || entries[0].Title != "Curfew" {
		t.Fatalf("18:00 entry should be dropped at 18:00:30, got %+v", entries)
	}
}

// TestUpcomingTieKeepsScheduleOrder verifies the stable tie-break:
// two milestones at the same clock time keep show-day order.
func TestUpcomingTieKeepsScheduleOrder(t *testing.T) {
	active := event.Event{ShowDown: "23:00", Curfew: "23:00"}

	entries := Upcoming(active, at(22, 0, 0))
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Title != "Show Down" || entries[1].Title != "Curfew" {
		t.Fatalf("tie order = [%s, %s], want [Show Down, Curfew]",
			entries[0].Title, entries[1].Title)
	}
}

// TestUpcomingUnsetAndMalformedSkipped verifies unset and malformed
// clock times are discarded without error.
func TestUpcomingUnsetAndMalformedSkipped(t *testing.T) {
	active := event.Event{
		DoorsOpen:    "",
		MainActStart: "soon",
		Curfew:       "23:00",
	}

	entries := Upcoming(active, at(12, 0, 0))
	if len(entries) != 1 || entries[0].Title != "Curfew" {
		t.Fatalf("got %+v, want only Curfew", entries)
	}
}

// TestUpcomingAllPassed verifies an empty strip after the last
// milestone — a valid display state, not an error.
func TestUpcomingAllPassed(t *testing.T) {
	active := event.Event{DoorsOpen: "18:00", Curfew: "23:00"}
	if entries := Upcoming(active, at(23, 30, 0)); len(entries) != 0 {
		t.Fatalf("got %+v, want empty after curfew", entries)
	}
}

// TestTargetToday verifies a future clock time resolves to today.
func TestTargetToday(t *testing.T) {
	now := at(19, 59, 30)
	target, err := Target("20:00", now)
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	if !target.Equal(at(20, 0, 0)) {
		t.Fatalf("target = %v, want today 20:00", target)
	}
	if got := Remaining(target, now); got != "0h 0m 30s" {
		t.Fatalf("Remaining = %q, want \"0h 0m 30s\"", got)
	}
}

// TestTargetRollsToTomorrow verifies an elapsed clock time rolls
// forward exactly one day.
func TestTargetRollsToTomorrow(t *testing.T) {
	now := at(20, 0, 1)
	target, err := Target("20:00", now)
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	want := at(20, 0, 0).AddDate(0, 0, 1)
	if !target.Equal(want) {
		t.Fatalf("target = %v, want tomorrow 20:00", target)
	}
}

// TestRemainingClampsNegative verifies a stale target renders as zero
// rather than a negative duration.
func TestRemainingClampsNegative(t *testing.T) {
	if got := Remaining(at(20, 0, 0), at(20, 0, 5)); got != "0h 0m 0s" {
		t.Fatalf("Remaining = %q, want \"0h 0m 0s\"", got)
	}
}

// TestRemainingWholeUnits verifies hour/minute/second decomposition.
func TestRemainingWholeUnits(t *testing.T) {
	if got := Remaining(at(23, 0, 0), at(20, 30, 15)); got != "2h 29m 45s" {
		t.Fatalf("Remaining = %q, want \"2h 29m 45s\"", got)
	}
}
