// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package occupancy derives the venue occupancy view from the latest
// attendance record and the event's capacity.
package occupancy

import (
	"math"

	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
)

// Level is the three-tier occupancy status.
type Level int

const (
	// LevelNormal is below 90% of capacity.
	LevelNormal Level = iota
	// LevelWarning is 90% up to and including 100% of capacity.
	LevelWarning
	// LevelOver is above 100% of capacity.
	LevelOver
)

// View is the derived occupancy state for display.
type View struct {
	// Count is the current number of people in the venue. Zero when
	// no attendance record exists yet.
	Count int

	// Capacity is the event's licensed capacity. Zero means unknown.
	Capacity int

	// Percent is Count as a rounded percentage of Capacity. NOT
	// clamped: an over-capacity venue reads above 100. Zero when
	// Capacity is zero.
	Percent int

	// BarPercent is Percent clamped to [0, 100] for rendering the
	// bar width.
	BarPercent int

	// Level is the three-tier status derived from Percent.
	Level Level

	// HasBar reports whether the bar and percentage are meaningful.
	// False when Capacity is zero, which suppresses both.
	HasBar bool
}

// Derive computes the occupancy view. records may be in any order;
// the latest by timestamp wins. An empty record set is the valid
// "no readings yet" state, not an error.
func Derive(records []event.AttendanceRecord, capacity int) View {
	view := View{Capacity: capacity}

	if latest, ok := Latest(records); ok {
		view.Count = latest.Count
	}

	if capacity <= 0 {
		return view
	}
	view.HasBar = true
	view.Percent = int(math.Round(float64(view.Count) / float64(capacity) * 100))
	view.BarPercent = view.Percent
	if view.BarPercent > 100 {
		view.BarPercent = 100
	}

	switch {
	case view.Percent > 100:
		view.Level = LevelOver
	case view.Percent >= 90:
		view.Level = LevelWarning
	default:
		view.Level = LevelNormal
	}
	return view
}

// Latest returns the attendance record with the greatest timestamp.
// The backend keeps timestamps monotonic per event, but Derive does
// not rely on input order.
func Latest(records []event.AttendanceRecord) (event.AttendanceRecord, bool) {
	if len(records) == 0 {
		return event.AttendanceRecord{}, false
	}
	latest := records[0]
	for _, record := range records[1:] {
		if record.RecordedAt.After(latest.RecordedAt) {
			latest = record
		}
	}
	return latest, true
}
