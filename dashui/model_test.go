// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DavidCapener182/compact-event-control/lib/clock"
	"github.com/DavidCapener182/compact-event-control/lib/incidentstats"
	"github.com/DavidCapener182/compact-event-control/lib/occupancy"
	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
)

// testSnapshot builds a snapshot with three incidents (one closed,
// one medical, one sit rep) for a mid-show event.
func testSnapshot(now time.Time) Snapshot {
	active := event.Event{
		ID:           "evt-1",
		Name:         "Arena Show — Night 2",
		Venue:        "Riverside Arena",
		Capacity:     5000,
		Current:      true,
		DoorsOpen:    "18:00",
		MainActStart: "21:00",
		Curfew:       "23:00",
	}
	incidents := []event.Incident{
		{
			ID:         "inc-1",
			EventID:    "evt-1",
			Type:       event.TypeEjection,
			Occurrence: "Ejection from pit barrier",
			Closed:     true,
			LoggedAt:   now.Add(-30 * time.Minute),
		},
		{
			ID:         "inc-2",
			EventID:    "evt-1",
			Type:       event.TypeCodeGreen,
			Occurrence: "Collapse near bar 3",
			Notes:      "Patient **responsive**, medics on scene.",
			LoggedAt:   now.Add(-10 * time.Minute),
		},
		{
			ID:         "inc-3",
			EventID:    "evt-1",
			Type:       event.TypeSitRep,
			Occurrence: "All positions checked in",
			LoggedAt:   now.Add(-5 * time.Minute),
		},
	}
	return Snapshot{
		Event:     active,
		Incidents: incidents,
		Stats:     incidentstats.Compute(incidents),
		Occupancy: occupancy.View{
			Count: 4200, Capacity: 5000, Percent: 84, BarPercent: 84,
			Level: occupancy.LevelNormal, HasBar: true,
		},
		FetchedAt: now,
	}
}

// testModel returns a sized model with a fake clock pinned mid-show,
// so the 21:00 and 23:00 milestones are upcoming.
func testModel(t *testing.T) (Model, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 6, 20, 19, 30, 0, 0, time.UTC))
	model := NewModel(nil, fake)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(Model), fake
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModelSnapshotSortsNewestFirst(t *testing.T) {
	model, fake := testModel(t)

	updated, _ := model.Update(SnapshotMsg{Snapshot: testSnapshot(fake.Now())})
	model = updated.(Model)

	if !model.haveSnapshot {
		t.Fatal("model should have a snapshot")
	}
	if len(model.incidents) != 3 {
		t.Fatalf("expected 3 incidents, got %d", len(model.incidents))
	}
	if model.incidents[0].ID != "inc-3" || model.incidents[2].ID != "inc-1" {
		t.Errorf("incidents not newest first: %s, %s, %s",
			model.incidents[0].ID, model.incidents[1].ID, model.incidents[2].ID)
	}
}

func TestModelNavigation(t *testing.T) {
	model, fake := testModel(t)
	updated, _ := model.Update(SnapshotMsg{Snapshot: testSnapshot(fake.Now())})
	model = updated.(Model)

	if model.cursor != 0 {
		t.Fatalf("initial cursor should be 0, got %d", model.cursor)
	}

	updated, _ = model.Update(keyPress('j'))
	model = updated.(Model)
	if model.cursor != 1 {
		t.Errorf("cursor after j should be 1, got %d", model.cursor)
	}
	if model.selectedID != "inc-2" {
		t.Errorf("selectedID should be inc-2, got %s", model.selectedID)
	}

	// Clamped at the last row.
	for range 5 {
		updated, _ = model.Update(keyPress('j'))
		model = updated.(Model)
	}
	if model.cursor != 2 {
		t.Errorf("cursor should clamp at 2, got %d", model.cursor)
	}

	updated, _ = model.Update(keyPress('k'))
	model = updated.(Model)
	if model.cursor != 1 {
		t.Errorf("cursor after k should be 1, got %d", model.cursor)
	}

	// g and G jump to the ends.
	updated, _ = model.Update(keyPress('G'))
	model = updated.(Model)
	if model.cursor != 2 {
		t.Errorf("cursor after G should be 2, got %d", model.cursor)
	}
	updated, _ = model.Update(keyPress('g'))
	model = updated.(Model)
	if model.cursor != 0 {
		t.Errorf("cursor after g should be 0, got %d", model.cursor)
	}
}

// A live update that inserts a newer incident must keep the cursor on
// the same incident, not the same row index.
func TestModelStableSelectionAcrossUpdates(t *testing.T) {
	model, fake := testModel(t)
	snapshot := testSnapshot(fake.Now())
	updated, _ := model.Update(SnapshotMsg{Snapshot: snapshot})
	model = updated.(Model)

	updated, _ = model.Update(keyPress('j'))
	model = updated.(Model)
	if model.selectedID != "inc-2" {
		t.Fatalf("selectedID should be inc-2, got %s", model.selectedID)
	}

	snapshot.Incidents = append(snapshot.Incidents, event.Incident{
		ID:         "inc-4",
		EventID:    "evt-1",
		Type:       event.TypeRefusal,
		Occurrence: "Refusal at gate C",
		LoggedAt:   fake.Now(),
	})
	updated, _ = model.Update(SnapshotMsg{Snapshot: snapshot})
	model = updated.(Model)

	if model.selectedID != "inc-2" {
		t.Errorf("selection should survive the update, got %s", model.selectedID)
	}
	if model.cursor != 2 {
		t.Errorf("cursor should move with the incident to row 2, got %d", model.cursor)
	}
}

func TestModelCountdownRecomputesOnTick(t *testing.T) {
	model, fake := testModel(t)
	updated, _ := model.Update(SnapshotMsg{Snapshot: testSnapshot(fake.Now())})
	model = updated.(Model)

	if len(model.upcoming) != 2 {
		t.Fatalf("expected 2 upcoming milestones at 19:30, got %d", len(model.upcoming))
	}
	if model.upcoming[0].Title != "Main Act" || !model.upcoming[0].Next {
		t.Errorf("nearest milestone should be Main Act, got %+v", model.upcoming[0])
	}
	if model.remaining != "1h 30m 0s" {
		t.Errorf("remaining should be 1h 30m 0s, got %q", model.remaining)
	}

	fake.Advance(time.Second)
	updated, _ = model.Update(countdownTickMsg{})
	model = updated.(Model)
	if model.remaining != "1h 29m 59s" {
		t.Errorf("remaining after one tick should be 1h 29m 59s, got %q", model.remaining)
	}

	// Past the main act: the strip drops to the curfew milestone.
	fake.Advance(2 * time.Hour)
	updated, _ = model.Update(countdownTickMsg{})
	model = updated.(Model)
	if len(model.upcoming) != 1 || model.upcoming[0].Title != "Curfew" {
		t.Errorf("expected only Curfew upcoming at 21:30, got %+v", model.upcoming)
	}
}

func TestModelNoEventState(t *testing.T) {
	model, fake := testModel(t)
	updated, _ := model.Update(SnapshotMsg{Snapshot: testSnapshot(fake.Now())})
	model = updated.(Model)

	updated, _ = model.Update(NoEventMsg{})
	model = updated.(Model)

	if model.haveSnapshot || !model.noEvent {
		t.Error("NoEventMsg should clear the snapshot and set noEvent")
	}
	view := model.View()
	if !strings.Contains(view, "No active event") {
		t.Error("view should show the no-event notice")
	}
}

func TestModelStaleBanner(t *testing.T) {
	model, fake := testModel(t)
	updated, _ := model.Update(SnapshotMsg{Snapshot: testSnapshot(fake.Now()), Stale: true})
	model = updated.(Model)

	if !strings.Contains(model.View(), "STALE") {
		t.Error("view should show the stale banner")
	}

	updated, _ = model.Update(SnapshotMsg{Snapshot: testSnapshot(fake.Now())})
	model = updated.(Model)
	if strings.Contains(model.View(), "STALE") {
		t.Error("a live snapshot should clear the stale banner")
	}
}

func TestModelViewContent(t *testing.T) {
	model, fake := testModel(t)
	updated, _ := model.Update(SnapshotMsg{Snapshot: testSnapshot(fake.Now())})
	model = updated.(Model)

	view := model.View()
	for _, want := range []string{
		"Arena Show — Night 2",
		"Riverside Arena",
		"Main Act",
		"Occupancy",
		"84%",
		"Collapse near bar 3",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}

func TestModelFocusToggle(t *testing.T) {
	model, fake := testModel(t)
	updated, _ := model.Update(SnapshotMsg{Snapshot: testSnapshot(fake.Now())})
	model = updated.(Model)

	if model.focusRegion != FocusList {
		t.Fatal("initial focus should be the list")
	}
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	model = updated.(Model)
	if model.focusRegion != FocusDetail {
		t.Error("tab should move focus to the detail pane")
	}
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyTab})
	model = updated.(Model)
	if model.focusRegion != FocusList {
		t.Error("tab should move focus back to the list")
	}
}

func TestModelQuit(t *testing.T) {
	model, _ := testModel(t)
	_, cmd := model.Update(keyPress('q'))
	if cmd == nil {
		t.Fatal("q should produce a command")
	}
	if msg := cmd(); msg != nil {
		if _, isQuit := msg.(tea.QuitMsg); !isQuit {
			t.Errorf("expected QuitMsg, got %T", msg)
		}
	} else {
		t.Error("quit command produced no message")
	}
}

func TestModelLogNotice(t *testing.T) {
	model, fake := testModel(t)
	updated, _ := model.Update(SnapshotMsg{Snapshot: testSnapshot(fake.Now())})
	model = updated.(Model)

	updated, cmd := model.Update(logRecordMsg{Summary: "changefeed reconnecting"})
	model = updated.(Model)
	if cmd == nil {
		t.Fatal("log notice should schedule a fade")
	}
	if !strings.Contains(model.View(), "changefeed reconnecting") {
		t.Error("status bar should show the log notice")
	}

	updated, _ = model.Update(logRecordFadeMsg{})
	model = updated.(Model)
	if strings.Contains(model.View(), "changefeed reconnecting") {
		t.Error("fade message should clear the notice")
	}
}
