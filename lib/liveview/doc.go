// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package liveview runs the live-data lifecycle behind each dashboard
// view: subscribe to the backend changefeed, fetch a full snapshot,
// and re-fetch on every change notification or refresh tick. The
// snapshot is the only write path into view state — change payloads
// are advisory triggers, never patched in piecemeal.
//
// A [Runner] is Idle until [Runner.Activate] binds it to a key (an
// event ID). Activation with a new key always tears the previous
// channel down before opening the next, so at most one live channel
// exists per runner at any time. A generation counter advances
// synchronously on every activation and deactivation; snapshot
// results and change notifications carrying a stale generation are
// discarded without touching state.
//
// When the changefeed drops, the runner keeps publishing the
// last-known snapshot flagged stale and reconnects with exponential
// backoff, resetting the delay once a connection sticks. A runner
// with no subscribe function is a poll-only view driven entirely by
// its refresh ticker.
package liveview
