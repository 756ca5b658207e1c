// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestClientCurrent verifies the request shape and response decoding.
func TestClientCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/forecast" {
			t.Errorf("path = %q, want /v1/forecast", r.URL.Path)
		}
		if got := r.URL.Query().Get("latitude"); got != "51.5074" {
			t.Errorf("latitude = %q, want 51.5074", got)
		}
		if got := r.URL.Query().Get("current_weather"); got != "true" {
			t.Errorf("current_weather = %q, want true", got)
		}
		w.Write([]byte(`{"current_weather": {"temperature": 18.3, "windspeed": 12.1, "weathercode": 61}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	reading, err := client.Current(context.Background(), 51.5074, -0.1278)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if reading.TemperatureCelsius != 18.3 || reading.WindSpeedKMH != 12.1 {
		t.Fatalf("reading = %+v", reading)
	}
	if reading.Condition != "Rain" {
		t.Fatalf("Condition = %q, want Rain", reading.Condition)
	}
}

// TestClientCurrentServerError verifies non-200 responses surface as
// errors rather than zero readings.
func TestClientCurrentServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	if _, err := client.Current(context.Background(), 0, 0); err == nil {
		t.Fatal("Current succeeded on a 429")
	}
}

// TestCondition verifies the WMO code buckets the panel relies on.
func TestCondition(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{0, "Clear"},
		{2, "Partly cloudy"},
		{3, "Overcast"},
		{48, "Fog"},
		{53, "Drizzle"},
		{65, "Rain"},
		{73, "Snow"},
		{81, "Showers"},
		{96, "Thunderstorm"},
		{42, "Unknown"},
	}
	for _, c := range cases {
		if got := Condition(c.code); got != c.want {
			t.Errorf("Condition(%d) = %q, want %q", c.code, got, c.want)
		}
	}
}
