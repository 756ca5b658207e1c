// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
)

// ClientConfig holds configuration for creating a hosted-backend Client.
type ClientConfig struct {
	// BaseURL is the root of the hosted service (e.g.,
	// "https://ops.example.com"). Reads go to BaseURL/rest/v1, the
	// changefeed to the websocket form of BaseURL/feed/v1.
	BaseURL string

	// ServiceKey authenticates every request. Sent as both the
	// apikey header and a bearer token, which is what the hosted
	// service expects.
	ServiceKey string

	// HTTPClient is used for all reads. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Client talks to the hosted backend over HTTP and websocket. Safe
// for concurrent use.
type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a hosted-backend client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("backend: BaseURL is required")
	}
	if config.ServiceKey == "" {
		return nil, fmt.Errorf("backend: ServiceKey is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("backend: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		serviceKey: config.ServiceKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Read performs one point-in-time read and decodes the row array into
// dest (a pointer to a slice). Zero rows decode to an empty slice —
// not-found is a result, not an error.
func (c *Client) Read(ctx context.Context, query Query, dest any) error {
	if query.Table == "" {
		return fmt.Errorf("backend: query has no table")
	}

	requestURL := c.baseURL + "/rest/v1/" + query.Table
	if encoded := query.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("backend: creating request: %w", err)
	}
	request.Header.Set("apikey", c.serviceKey)
	request.Header.Set("Authorization", "Bearer "+c.serviceKey)
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("backend: read %s failed: %w", query.Table, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("backend: reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return readError(response.StatusCode, body)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("backend: decoding %s rows: %w", query.Table, err)
	}
	return nil
}

// readError shapes a non-2xx response into an *Error. The hosted
// service sends {"message": ...} bodies; anything else is kept raw.
func readError(statusCode int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &Error{StatusCode: statusCode, Message: payload.Message}
	}
	return &Error{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
}

// CurrentEvent returns the single event flagged current, or false
// when no event is selected.
func (c *Client) CurrentEvent(ctx context.Context) (event.Event, bool, error) {
	var rows []event.Event
	query := Query{
		Table:   TableEvents,
		Filters: []Filter{Eq("is_current", "true")},
		Limit:   1,
	}
	if err := c.Read(ctx, query, &rows); err != nil {
		return event.Event{}, false, err
	}
	if len(rows) == 0 {
		return event.Event{}, false, nil
	}
	return rows[0], true, nil
}

// EventByID returns one event by row ID.
func (c *Client) EventByID(ctx context.Context, id string) (event.Event, bool, error) {
	var rows []event.Event
	query := Query{
		Table:   TableEvents,
		Filters: []Filter{Eq("id", id)},
		Limit:   1,
	}
	if err := c.Read(ctx, query, &rows); err != nil {
		return event.Event{}, false, err
	}
	if len(rows) == 0 {
		return event.Event{}, false, nil
	}
	return rows[0], true, nil
}

// Incidents returns all incidents for an event, newest first.
func (c *Client) Incidents(ctx context.Context, eventID string) ([]event.Incident, error) {
	var rows []event.Incident
	query := Query{
		Table:      TableIncidents,
		Filters:    []Filter{Eq("event_id", eventID)},
		OrderBy:    "created_at",
		Descending: true,
	}
	if err := c.Read(ctx, query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Attendance returns the attendance records for an event, newest
// first. The caller usually only needs the first row, but the full
// list feeds the occupancy history sparkline.
func (c *Client) Attendance(ctx context.Context, eventID string) ([]event.AttendanceRecord, error) {
	var rows []event.AttendanceRecord
	query := Query{
		Table:      TableAttendance,
		Filters:    []Filter{Eq("event_id", eventID)},
		OrderBy:    "timestamp",
		Descending: true,
	}
	if err := c.Read(ctx, query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
