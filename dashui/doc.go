// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashui implements the terminal dashboard for live event
// control: the active event's show-day schedule with a countdown to
// the next milestone, incident statistics, venue occupancy, current
// weather, and a scrollable incident log with a detail pane.
//
// The interface is a bubbletea program. Live data arrives through a
// [Source], which owns the backend subscriptions and delivers
// complete snapshots as messages; the model itself never talks to the
// network. Wall-clock concerns (the 1-second countdown, the
// once-a-minute schedule refresh) run on an injected clock so tests
// can drive them deterministically.
package dashui
