// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"time"
)

// Event is a row in the backend's "events" table: one show at one
// venue on one day. The backend enforces that at most one event has
// Current set at a time; this client assumes that invariant and never
// writes event rows.
//
// Schedule times are clock times in the venue's local day, encoded as
// "HH:MM" strings (the backend stores them as SQL time columns). An
// empty string means the milestone is not scheduled for this event.
type Event struct {
	// ID is the backend row identifier.
	ID string `json:"id"`

	// Name is the display name of the event (e.g., "Arena Show —
	// Night 2").
	Name string `json:"event_name"`

	// Venue is the venue display name.
	Venue string `json:"venue_name"`

	// Capacity is the licensed venue capacity used for occupancy
	// percentage. Zero means capacity is unknown; occupancy
	// percentages are suppressed rather than divided by zero.
	Capacity int `json:"venue_capacity"`

	// Current marks the single event the dashboard follows by
	// default. Backend-enforced: at most one row has this set.
	Current bool `json:"is_current"`

	// Latitude and Longitude locate the venue for the weather panel.
	// Both zero means no coordinates are recorded.
	Latitude  float64 `json:"venue_latitude,omitempty"`
	Longitude float64 `json:"venue_longitude,omitempty"`

	// Schedule milestones, in show-day order. Empty string = unset.
	SecurityCall string `json:"security_call_time,omitempty"`
	DoorsOpen    string `json:"doors_open_time,omitempty"`
	MainActStart string `json:"main_act_start_time,omitempty"`
	ShowStopMeet string `json:"show_stop_meeting_time,omitempty"`
	ShowDown     string `json:"show_down_time,omitempty"`
	Curfew       string `json:"curfew_time,omitempty"`
}

// ScheduleEntry is one named milestone on an event's schedule.
type ScheduleEntry struct {
	// Title is the milestone's display name (e.g., "Doors Open").
	Title string

	// Time is the clock time string as stored on the event ("HH:MM").
	Time string
}

// Schedule returns the event's milestones in show-day order, including
// unset ones (empty Time). The order is fixed — it is also the
// tie-break order when two milestones share a clock time.
func (e Event) Schedule() []ScheduleEntry {
	return []ScheduleEntry{
		{Title: "Security Call", Time: e.SecurityCall},
		{Title: "Doors Open", Time: e.DoorsOpen},
		{Title: "Main Act", Time: e.MainActStart},
		{Title: "Show Stop Meeting", Time: e.ShowStopMeet},
		{Title: "Show Down", Time: e.ShowDown},
		{Title: "Curfew", Time: e.Curfew},
	}
}

// IncidentType is the fixed category enumeration for incident rows.
// The dashboard's statistics buckets are defined over these values;
// unknown strings are counted in the total but match no named bucket.
type IncidentType string

const (
	// TypeRefusal is a refused entry at the gate.
	TypeRefusal IncidentType = "refusal"
	// TypeEjection is a removal from the venue.
	TypeEjection IncidentType = "ejection"
	// TypeCodeGreen is the medical code for a casualty requiring
	// treatment on site.
	TypeCodeGreen IncidentType = "code_green"
	// TypeCodeBlack is the medical code for a critical casualty.
	TypeCodeBlack IncidentType = "code_black"
	// TypeCodePink is the medical code for a welfare/vulnerable
	// person case.
	TypeCodePink IncidentType = "code_pink"
	// TypeSitRep is an informational situation report. Sit reps are
	// logged but never "open": they are excluded from the
	// open/closed/in-progress accounting.
	TypeSitRep IncidentType = "sit_rep"
	// TypeAggressive is aggressive or threatening behaviour.
	TypeAggressive IncidentType = "aggressive_behaviour"
	// TypeSuspicious is suspicious behaviour or an unattended item.
	TypeSuspicious IncidentType = "suspicious_behaviour"
	// TypeLostProperty is a lost property report.
	TypeLostProperty IncidentType = "lost_property"
	// TypeWelfare is a welfare check that is not a medical code.
	TypeWelfare IncidentType = "welfare"
)

// HighPriority reports whether this incident type is counted in the
// high-priority bucket: ejections and the three medical codes.
func (t IncidentType) HighPriority() bool {
	switch t {
	case TypeEjection, TypeCodeGreen, TypeCodeBlack, TypeCodePink:
		return true
	}
	return false
}

// Medical reports whether this incident type is one of the three
// medical codes.
func (t IncidentType) Medical() bool {
	switch t {
	case TypeCodeGreen, TypeCodeBlack, TypeCodePink:
		return true
	}
	return false
}

// Label returns the display name for an incident type. Unknown values
// are returned as-is so new backend categories still render.
func (t IncidentType) Label() string {
	switch t {
	case TypeRefusal:
		return "Refusal"
	case TypeEjection:
		return "Ejection"
	case TypeCodeGreen:
		return "Code Green"
	case TypeCodeBlack:
		return "Code Black"
	case TypeCodePink:
		return "Code Pink"
	case TypeSitRep:
		return "Sit Rep"
	case TypeAggressive:
		return "Aggressive Behaviour"
	case TypeSuspicious:
		return "Suspicious Behaviour"
	case TypeLostProperty:
		return "Lost Property"
	case TypeWelfare:
		return "Welfare"
	}
	return string(t)
}

// Incident is a row in the "incidents" table. Incidents belong to
// exactly one event and are created and mutated only by the backend's
// reporting clients; this dashboard reads them and reacts to change
// notifications.
type Incident struct {
	// ID is the backend row identifier.
	ID string `json:"id"`

	// EventID is the owning event.
	EventID string `json:"event_id"`

	// Type is the incident category.
	Type IncidentType `json:"incident_type"`

	// Occurrence is the free-text description of what happened.
	Occurrence string `json:"occurrence,omitempty"`

	// ActionTaken records what the response team did. Non-empty
	// means the incident counts as in-progress while open.
	ActionTaken string `json:"action_taken,omitempty"`

	// Notes is a longer markdown annotation shown in the detail pane.
	Notes string `json:"notes,omitempty"`

	// Closed marks the incident resolved. Ignored for sit reps,
	// which are informational regardless of this flag.
	Closed bool `json:"is_closed"`

	// LoggedAt is when the incident was reported.
	LoggedAt time.Time `json:"created_at"`
}

// AttendanceRecord is a row in the "attendance_records" table: one
// occupancy reading for one event. The backend guarantees timestamps
// are monotonically increasing per event, so the latest record by
// timestamp is the current occupancy.
type AttendanceRecord struct {
	// ID is the backend row identifier.
	ID string `json:"id"`

	// EventID is the owning event.
	EventID string `json:"event_id"`

	// Count is the number of people in the venue at RecordedAt.
	Count int `json:"count"`

	// RecordedAt is when the reading was taken.
	RecordedAt time.Time `json:"timestamp"`
}

// ParseClockTime parses an "HH:MM" clock time string into
// minutes-since-midnight. Accepts "HH:MM:SS" as well (seconds
// discarded) since SQL time columns often serialize with seconds.
func ParseClockTime(value string) (int, error) {
	var hour, minute int
	count, err := fmt.Sscanf(value, "%d:%d", &hour, &minute)
	if err != nil || count != 2 {
		return 0, fmt.Errorf("event: malformed clock time %q", value)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("event: clock time %q out of range", value)
	}
	return hour*60 + minute, nil
}
