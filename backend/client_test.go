// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient points a Client at an httptest server.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(ClientConfig{
		BaseURL:    server.URL,
		ServiceKey: "test-key",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

// TestClientCurrentEvent verifies the current-event read hits the
// right endpoint with auth headers and decodes the row.
func TestClientCurrentEvent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/events" {
			t.Errorf("path = %q, want /rest/v1/events", r.URL.Path)
		}
		if got := r.URL.Query().Get("is_current"); got != "eq.true" {
			t.Errorf("is_current filter = %q, want eq.true", got)
		}
		if got := r.Header.Get("apikey"); got != "test-key" {
			t.Errorf("apikey header = %q, want test-key", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization header = %q, want Bearer test-key", got)
		}
		w.Write([]byte(`[{"id": "7", "event_name": "Arena Night", "venue_capacity": 3500, "is_current": true}]`))
	}))

	current, ok, err := client.CurrentEvent(context.Background())
	if err != nil {
		t.Fatalf("CurrentEvent: %v", err)
	}
	if !ok {
		t.Fatal("CurrentEvent: ok = false, want true")
	}
	if current.ID != "7" || current.Name != "Arena Night" || current.Capacity != 3500 {
		t.Fatalf("CurrentEvent = %+v", current)
	}
}

// TestClientCurrentEventNone verifies an empty row set is the valid
// no-event state, not an error.
func TestClientCurrentEventNone(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	_, ok, err := client.CurrentEvent(context.Background())
	if err != nil {
		t.Fatalf("CurrentEvent: %v", err)
	}
	if ok {
		t.Fatal("CurrentEvent: ok = true, want false for empty result")
	}
}

// TestClientIncidentsOrder verifies the incidents read requests
// newest-first ordering and decodes multiple rows.
func TestClientIncidentsOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("order"); got != "created_at.desc" {
			t.Errorf("order = %q, want created_at.desc", got)
		}
		if got := r.URL.Query().Get("event_id"); got != "eq.7" {
			t.Errorf("event_id filter = %q, want eq.7", got)
		}
		w.Write([]byte(`[
			{"id": "2", "event_id": "7", "incident_type": "ejection", "is_closed": false},
			{"id": "1", "event_id": "7", "incident_type": "sit_rep", "is_closed": false}
		]`))
	}))

	incidents, err := client.Incidents(context.Background(), "7")
	if err != nil {
		t.Fatalf("Incidents: %v", err)
	}
	if len(incidents) != 2 || incidents[0].ID != "2" {
		t.Fatalf("Incidents = %+v", incidents)
	}
}

// TestClientReadError verifies non-2xx responses surface as *Error
// with the backend's message.
func TestClientReadError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "invalid service key"}`))
	}))

	_, err := client.Attendance(context.Background(), "7")
	var backendError *Error
	if !errors.As(err, &backendError) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if backendError.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", backendError.StatusCode)
	}
	if backendError.Message != "invalid service key" {
		t.Errorf("Message = %q", backendError.Message)
	}
	if backendError.IsNotFound() {
		t.Error("IsNotFound() = true for a 401")
	}
}

// TestNewClientValidation verifies the required-field checks.
func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{ServiceKey: "k"}); err == nil {
		t.Error("NewClient without BaseURL succeeded")
	}
	if _, err := NewClient(ClientConfig{BaseURL: "https://ops.example.com"}); err == nil {
		t.Error("NewClient without ServiceKey succeeded")
	}
}
