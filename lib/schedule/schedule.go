// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package schedule computes the "what's next" strip of the dashboard:
// the up-to-three upcoming milestones of the active event and the
// countdown to the nearest one.
//
// Selection is deliberately bounded to the current day: a milestone
// whose clock time has already passed today is dropped, not rolled to
// tomorrow. Show schedules are per-day data — after curfew the strip
// goes empty until the next event's times are loaded. The countdown
// target, by contrast, does roll forward a day when the selected
// milestone slips into the past between recomputations, so the
// displayed remaining time never goes negative.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
)

// maxUpcoming is how many milestones the strip shows.
const maxUpcoming = 3

// Entry is one upcoming milestone.
type Entry struct {
	// Title is the milestone name ("Doors Open").
	Title string

	// Time is the milestone clock time as stored ("HH:MM").
	Time string

	// Minutes is the milestone's minutes-since-midnight.
	Minutes int

	// Next marks the nearest upcoming milestone. Set only on the
	// first entry.
	Next bool
}

// Upcoming selects the event's next milestones relative to now: unset
// and malformed times are discarded, only times strictly in the
// future within now's day are kept, and the nearest three are
// returned in ascending order with the first flagged Next. Ties on
// clock time keep the event's fixed schedule order.
func Upcoming(active event.Event, now time.Time) []Entry {
	nowMinutes := now.Hour()*60 + now.Minute()

	var entries []Entry
	for _, milestone := range active.Schedule() {
		if milestone.Time == "" {
			continue
		}
		minutes, err := event.ParseClockTime(milestone.Time)
		if err != nil {
			// Malformed backend data: treated as unset. The row is
			// display-only so there is nothing to repair here.
			continue
		}
		if minutes <= nowMinutes {
			continue
		}
		entries = append(entries, Entry{
			Title:   milestone.Title,
			Time:    milestone.Time,
			Minutes: minutes,
		})
	}

	// Stable: equal clock times keep schedule order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Minutes < entries[j].Minutes
	})

	if len(entries) > maxUpcoming {
		entries = entries[:maxUpcoming]
	}
	if len(entries) > 0 {
		entries[0].Next = true
	}
	return entries
}

// Target resolves a milestone clock time to the concrete instant the
// countdown runs toward: today at that time in now's location, or
// tomorrow if that instant has already passed. The one-day roll
// covers the gap between the minute-cadence selector and the
// second-cadence countdown — a milestone can elapse between the two.
func Target(clockTime string, now time.Time) (time.Time, error) {
	minutes, err := event.ParseClockTime(clockTime)
	if err != nil {
		return time.Time{}, err
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), minutes/60, minutes%60, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target, nil
}

// Remaining formats the duration from now until target as whole
// hours, minutes, and seconds ("1h 23m 45s"). Negative durations
// clamp to zero; the caller re-resolves the target instead.
func Remaining(target, now time.Time) string {
	remaining := target.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	remaining = remaining.Round(time.Second)

	hours := int(remaining / time.Hour)
	minutes := int(remaining % time.Hour / time.Minute)
	seconds := int(remaining % time.Minute / time.Second)
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
