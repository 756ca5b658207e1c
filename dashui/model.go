// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DavidCapener182/compact-event-control/lib/clock"
	"github.com/DavidCapener182/compact-event-control/lib/schedule"
	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
	"github.com/DavidCapener182/compact-event-control/lib/weather"
)

// FocusRegion identifies which pane has keyboard focus.
type FocusRegion int

const (
	// FocusList means navigation keys move the incident list cursor.
	FocusList FocusRegion = iota
	// FocusDetail means navigation keys scroll the detail viewport.
	FocusDetail
)

// countdownTickMsg drives the once-per-second countdown recompute.
// A fresh tick is scheduled after each one; the chain starts in Init.
type countdownTickMsg struct{}

// Model is the top-level bubbletea model for the operations dashboard.
type Model struct {
	source *Source
	theme  Theme
	keys   KeyMap
	clock  clock.Clock

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// Snapshot state. noEvent and haveSnapshot are both false until
	// the first message arrives; the view shows a connecting notice.
	snapshot     Snapshot
	haveSnapshot bool
	stale        bool
	noEvent      bool

	// Weather panel state. Hidden until a reading arrives.
	weather      weather.Reading
	haveWeather  bool
	weatherStale bool

	// Countdown state, recomputed every tick and on snapshot change
	// so the milestone selection and remaining time never disagree.
	upcoming  []schedule.Entry
	remaining string

	// Incident list state. incidents is the snapshot's log sorted
	// newest first. selectedID tracks the selection by row ID so a
	// live update that reorders the list keeps the same incident
	// under the cursor.
	incidents    []event.Incident
	cursor       int
	scrollOffset int
	selectedID   string

	// Two-pane layout.
	focusRegion FocusRegion
	detailPane  viewport.Model

	// Status bar notice from the log handler. Cleared by the fade
	// message.
	statusNotice string
}

// NewModel creates a Model wired to the given source. The source must
// be started (Source.Start) with the program running this model.
func NewModel(source *Source, clk clock.Clock) Model {
	if clk == nil {
		clk = clock.Real()
	}
	return Model{
		source: source,
		theme:  DefaultTheme,
		keys:   DefaultKeyMap,
		clock:  clk,
	}
}

// Init implements tea.Model. Starts the countdown tick chain.
func (model Model) Init() tea.Cmd {
	return countdownTick()
}

// countdownTick schedules the next once-per-second countdown update.
func countdownTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return countdownTickMsg{}
	})
}

// Update implements tea.Model.
func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		model.width = msg.Width
		model.height = msg.Height
		model.ready = true
		model.layout()
		return model, nil

	case SnapshotMsg:
		model.applySnapshot(msg)
		return model, nil

	case NoEventMsg:
		model.noEvent = true
		model.haveSnapshot = false
		model.stale = false
		model.incidents = nil
		model.upcoming = nil
		model.remaining = ""
		model.cursor = 0
		model.scrollOffset = 0
		model.selectedID = ""
		model.detailPane.SetContent("")
		return model, nil

	case WeatherMsg:
		model.weather = msg.Reading
		model.haveWeather = true
		model.weatherStale = msg.Stale
		return model, nil

	case countdownTickMsg:
		model.recomputeCountdown()
		return model, countdownTick()

	case logRecordMsg:
		model.statusNotice = msg.Summary
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{}
		})

	case logRecordFadeMsg:
		model.statusNotice = ""
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(msg)
	}
	return model, nil
}

// handleKey dispatches a key press. Navigation is context-sensitive:
// it moves the list cursor or scrolls the detail pane depending on
// which has focus.
func (model Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(msg, model.keys.Refresh):
		if model.source != nil {
			model.source.Refresh()
		}
		return model, nil

	case key.Matches(msg, model.keys.FocusToggle):
		if model.focusRegion == FocusList {
			model.focusRegion = FocusDetail
		} else {
			model.focusRegion = FocusList
		}
		return model, nil

	case key.Matches(msg, model.keys.Up):
		if model.focusRegion == FocusDetail {
			model.detailPane.LineUp(1)
		} else {
			model.moveCursor(-1)
		}
		return model, nil

	case key.Matches(msg, model.keys.Down):
		if model.focusRegion == FocusDetail {
			model.detailPane.LineDown(1)
		} else {
			model.moveCursor(1)
		}
		return model, nil

	case key.Matches(msg, model.keys.PageUp):
		if model.focusRegion == FocusDetail {
			model.detailPane.HalfViewUp()
		} else {
			model.moveCursor(-model.listHeight() / 2)
		}
		return model, nil

	case key.Matches(msg, model.keys.PageDown):
		if model.focusRegion == FocusDetail {
			model.detailPane.HalfViewDown()
		} else {
			model.moveCursor(model.listHeight() / 2)
		}
		return model, nil

	case key.Matches(msg, model.keys.Home):
		if model.focusRegion == FocusDetail {
			model.detailPane.GotoTop()
		} else {
			model.setCursor(0)
		}
		return model, nil

	case key.Matches(msg, model.keys.End):
		if model.focusRegion == FocusDetail {
			model.detailPane.GotoBottom()
		} else {
			model.setCursor(len(model.incidents) - 1)
		}
		return model, nil
	}
	return model, nil
}

// applySnapshot installs a fresh snapshot: sorts the incident log
// newest first, restores the cursor onto the previously selected
// incident if it still exists, and recomputes the countdown so the
// schedule strip reflects the new event immediately rather than on
// the next tick.
func (model *Model) applySnapshot(msg SnapshotMsg) {
	model.snapshot = msg.Snapshot
	model.haveSnapshot = true
	model.stale = msg.Stale
	model.noEvent = false

	incidents := make([]event.Incident, len(msg.Snapshot.Incidents))
	copy(incidents, msg.Snapshot.Incidents)
	sort.SliceStable(incidents, func(i, j int) bool {
		return incidents[i].LoggedAt.After(incidents[j].LoggedAt)
	})
	model.incidents = incidents

	if model.selectedID != "" {
		for i, incident := range incidents {
			if incident.ID == model.selectedID {
				model.setCursor(i)
				model.recomputeCountdown()
				model.refreshDetail()
				return
			}
		}
	}
	model.setCursor(model.cursor)
	model.recomputeCountdown()
	model.refreshDetail()
}

// recomputeCountdown reselects the upcoming milestones and reformats
// the remaining time against the injected clock.
func (model *Model) recomputeCountdown() {
	if !model.haveSnapshot {
		model.upcoming = nil
		model.remaining = ""
		return
	}
	now := model.clock.Now()
	model.upcoming = schedule.Upcoming(model.snapshot.Event, now)
	model.remaining = ""
	if len(model.upcoming) > 0 {
		target, err := schedule.Target(model.upcoming[0].Time, now)
		if err == nil {
			model.remaining = schedule.Remaining(target, now)
		}
	}
}

// moveCursor shifts the list cursor by delta rows, clamped.
func (model *Model) moveCursor(delta int) {
	model.setCursor(model.cursor + delta)
}

// setCursor clamps and applies a cursor position, keeps it visible
// within the list window, and records the selected incident ID for
// stable focus across live updates.
func (model *Model) setCursor(position int) {
	if len(model.incidents) == 0 {
		model.cursor = 0
		model.scrollOffset = 0
		model.selectedID = ""
		model.detailPane.SetContent("")
		return
	}
	if position < 0 {
		position = 0
	}
	if position >= len(model.incidents) {
		position = len(model.incidents) - 1
	}
	changed := position != model.cursor || model.incidents[position].ID != model.selectedID
	model.cursor = position
	model.selectedID = model.incidents[position].ID

	visible := model.listHeight()
	if visible > 0 {
		if model.cursor < model.scrollOffset {
			model.scrollOffset = model.cursor
		}
		if model.cursor >= model.scrollOffset+visible {
			model.scrollOffset = model.cursor - visible + 1
		}
	}
	if changed {
		model.refreshDetail()
	}
}

// selected returns the incident under the cursor.
func (model *Model) selected() (event.Incident, bool) {
	if model.cursor < 0 || model.cursor >= len(model.incidents) {
		return event.Incident{}, false
	}
	return model.incidents[model.cursor], true
}

// refreshDetail re-renders the detail pane for the current selection.
func (model *Model) refreshDetail() {
	incident, ok := model.selected()
	if !ok {
		model.detailPane.SetContent("")
		return
	}
	model.detailPane.SetContent(model.renderDetail(incident))
	model.detailPane.GotoTop()
}

// layout recomputes pane dimensions after a terminal resize.
func (model *Model) layout() {
	detailWidth := model.width - model.listWidth() - 1
	if detailWidth < 0 {
		detailWidth = 0
	}
	model.detailPane.Width = detailWidth
	model.detailPane.Height = model.paneHeight()
	model.refreshDetail()
	if model.cursor >= 0 {
		model.setCursor(model.cursor)
	}
}
