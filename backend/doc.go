// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend is the client for the hosted relational backend that
// owns all dashboard data. The dashboard never writes: events,
// incidents, and attendance records are created by the reporting
// clients, and this package only reads rows and consumes row-level
// change notifications.
//
// Two deployment modes implement the same [Backend] interface:
//
// [Client] talks to the hosted service: point-in-time reads go through
// its PostgREST-style HTTP API ([Query] encodes the filter syntax) and
// change notifications arrive over a websocket changefeed
// ([Client.Subscribe]). This is the normal production mode.
//
// [PostgresBackend] connects straight to a self-hosted Postgres with
// pgx: reads are plain SQL and change notifications arrive via
// LISTEN/NOTIFY on the event_control_changes channel, fed by triggers
// installed with the schema.
//
// A [Subscription] is a single channel attempt: when the underlying
// connection fails, the Changes channel closes and Err reports why.
// Reconnection policy (backoff, resubscribe) belongs to the caller —
// the lifecycle manager in lib/liveview owns exactly one subscription
// at a time and decides when to open the next one.
package backend
