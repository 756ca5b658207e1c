// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
)

// notifyChannel is the Postgres NOTIFY channel the schema's triggers
// publish row changes on. One channel for all three tables; the
// payload names the table.
const notifyChannel = "event_control_changes"

// PostgresConfig holds configuration for the direct-Postgres mode.
type PostgresConfig struct {
	// DSN is the Postgres connection string.
	DSN string

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// PostgresBackend implements Backend against a self-hosted Postgres.
// Reads are plain SQL; change notifications arrive via LISTEN/NOTIFY
// from triggers installed alongside the schema.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresBackend opens a connection pool and verifies it with a
// ping. The caller must call Close when done.
func NewPostgresBackend(ctx context.Context, config PostgresConfig) (*PostgresBackend, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("backend: DSN is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("backend: opening postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("backend: pinging postgres: %w", err)
	}

	logger.Info("postgres backend connected")
	return &PostgresBackend{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (b *PostgresBackend) Close() {
	b.pool.Close()
}

// eventColumns is the select list shared by the event queries. Time
// columns are rendered to "HH:MM" strings so both backends hand the
// schema package the same shape.
const eventColumns = `
	id::text, event_name, venue_name, venue_capacity, is_current,
	coalesce(venue_latitude, 0), coalesce(venue_longitude, 0),
	coalesce(to_char(security_call_time, 'HH24:MI'), ''),
	coalesce(to_char(doors_open_time, 'HH24:MI'), ''),
	coalesce(to_char(main_act_start_time, 'HH24:MI'), ''),
	coalesce(to_char(show_stop_meeting_time, 'HH24:MI'), ''),
	coalesce(to_char(show_down_time, 'HH24:MI'), ''),
	coalesce(to_char(curfew_time, 'HH24:MI'), '')`

// scanEvent reads one event row in eventColumns order.
func scanEvent(row pgx.Row) (event.Event, error) {
	var result event.Event
	err := row.Scan(
		&result.ID, &result.Name, &result.Venue, &result.Capacity, &result.Current,
		&result.Latitude, &result.Longitude,
		&result.SecurityCall, &result.DoorsOpen, &result.MainActStart,
		&result.ShowStopMeet, &result.ShowDown, &result.Curfew,
	)
	return result, err
}

// CurrentEvent returns the single event flagged current.
func (b *PostgresBackend) CurrentEvent(ctx context.Context) (event.Event, bool, error) {
	row := b.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE is_current LIMIT 1`)
	result, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return event.Event{}, false, nil
	}
	if err != nil {
		return event.Event{}, false, fmt.Errorf("backend: reading current event: %w", err)
	}
	return result, true, nil
}

// EventByID returns one event by row ID.
func (b *PostgresBackend) EventByID(ctx context.Context, id string) (event.Event, bool, error) {
	row := b.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id::text = $1 LIMIT 1`, id)
	result, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return event.Event{}, false, nil
	}
	if err != nil {
		return event.Event{}, false, fmt.Errorf("backend: reading event %s: %w", id, err)
	}
	return result, true, nil
}

// Incidents returns all incidents for an event, newest first.
func (b *PostgresBackend) Incidents(ctx context.Context, eventID string) ([]event.Incident, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id::text, event_id::text, incident_type,
		       coalesce(occurrence, ''), coalesce(action_taken, ''),
		       coalesce(notes, ''), is_closed, created_at
		FROM incidents WHERE event_id::text = $1
		ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("backend: reading incidents: %w", err)
	}
	defer rows.Close()

	var incidents []event.Incident
	for rows.Next() {
		var incident event.Incident
		if err := rows.Scan(
			&incident.ID, &incident.EventID, &incident.Type,
			&incident.Occurrence, &incident.ActionTaken,
			&incident.Notes, &incident.Closed, &incident.LoggedAt,
		); err != nil {
			return nil, fmt.Errorf("backend: scanning incident: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("backend: reading incidents: %w", err)
	}
	return incidents, nil
}

// Attendance returns the attendance records for an event, newest first.
func (b *PostgresBackend) Attendance(ctx context.Context, eventID string) ([]event.AttendanceRecord, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT id::text, event_id::text, count, timestamp
		FROM attendance_records WHERE event_id::text = $1
		ORDER BY timestamp DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("backend: reading attendance: %w", err)
	}
	defer rows.Close()

	var records []event.AttendanceRecord
	for rows.Next() {
		var record event.AttendanceRecord
		if err := rows.Scan(&record.ID, &record.EventID, &record.Count, &record.RecordedAt); err != nil {
			return nil, fmt.Errorf("backend: scanning attendance record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("backend: reading attendance: %w", err)
	}
	return records, nil
}

// notifyPayload is the JSON shape the schema's triggers put in
// pg_notify: which table, what happened, which event the row belongs
// to, and the row itself.
type notifyPayload struct {
	Table   string          `json:"table"`
	Kind    ChangeKind      `json:"kind"`
	EventID string          `json:"event_id"`
	Row     json.RawMessage `json:"row,omitempty"`
}

// Subscribe opens a LISTEN/NOTIFY subscription on a dedicated
// connection, filtered client-side to the requested table and event.
func (b *PostgresBackend) Subscribe(ctx context.Context, table, eventID string) (*Subscription, error) {
	if table == "" {
		return nil, fmt.Errorf("backend: Subscribe requires a table")
	}

	listenContext, cancel := context.WithCancel(ctx)

	conn, err := b.pool.Acquire(listenContext)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("backend: acquiring listen connection: %w", err)
	}
	if _, err := conn.Exec(listenContext, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		cancel()
		return nil, fmt.Errorf("backend: LISTEN %s: %w", notifyChannel, err)
	}

	subscription := NewSubscription(cancel)

	go func() {
		defer conn.Release()
		for {
			notification, err := conn.Conn().WaitForNotification(listenContext)
			if err != nil {
				if listenContext.Err() != nil {
					subscription.Finish(nil)
				} else {
					subscription.Finish(fmt.Errorf("backend: waiting for notification: %w", err))
				}
				return
			}

			var payload notifyPayload
			if err := json.Unmarshal([]byte(notification.Payload), &payload); err != nil {
				b.logger.Warn("malformed change notification",
					"channel", notifyChannel,
					"error", err,
				)
				continue
			}
			if payload.Table != table {
				continue
			}
			if eventID != "" && payload.EventID != eventID {
				continue
			}
			subscription.Deliver(Change{
				Kind:  payload.Kind,
				Table: payload.Table,
				Row:   payload.Row,
			})
		}
	}()

	b.logger.Info("postgres change subscription opened",
		"table", table,
		"event_id", eventID,
	)
	return subscription, nil
}
