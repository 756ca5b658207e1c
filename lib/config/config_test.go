// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event-control.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("environment = %s, want development", cfg.Environment)
	}
	if cfg.Backend.Mode != ModeHosted {
		t.Errorf("backend.mode = %s, want hosted", cfg.Backend.Mode)
	}
	if cfg.Weather.RefreshInterval.Std() != 15*time.Minute {
		t.Errorf("weather.refresh_interval = %v, want 15m", cfg.Weather.RefreshInterval)
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	t.Setenv("EVENT_CONTROL_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when EVENT_CONTROL_CONFIG not set")
	}
	if !strings.Contains(err.Error(), "EVENT_CONTROL_CONFIG") {
		t.Errorf("error does not name the variable: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
environment: production
backend:
  mode: hosted
  base_url: https://ops.example.com
  service_key_file: /etc/event-control/service.key
weather:
  enabled: true
  refresh_interval: 30m
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Environment != Production {
		t.Errorf("environment = %s", cfg.Environment)
	}
	if cfg.Backend.BaseURL != "https://ops.example.com" {
		t.Errorf("base_url = %s", cfg.Backend.BaseURL)
	}
	if cfg.Weather.RefreshInterval.Std() != 30*time.Minute {
		t.Errorf("refresh_interval = %v", cfg.Weather.RefreshInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
environment: staging
backend:
  mode: hosted
  base_url: https://ops.example.com
  service_key_file: /etc/event-control/service.key
staging:
  backend:
    base_url: https://staging.ops.example.com
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Backend.BaseURL != "https://staging.ops.example.com" {
		t.Errorf("base_url = %s, want staging override", cfg.Backend.BaseURL)
	}
	// Non-overridden fields keep their base values.
	if cfg.Backend.ServiceKeyFile != "/etc/event-control/service.key" {
		t.Errorf("service_key_file = %s", cfg.Backend.ServiceKeyFile)
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/operator")
	path := writeConfig(t, `
environment: development
backend:
  mode: postgres
  dsn: postgres://localhost/event_control
paths:
  root: ${HOME}/.cache/event-control
  cache: ${EVENT_CONTROL_ROOT}/snapshots.db
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Paths.Root != "/home/operator/.cache/event-control" {
		t.Errorf("root = %s", cfg.Paths.Root)
	}
	if cfg.Paths.Cache != "/home/operator/.cache/event-control/snapshots.db" {
		t.Errorf("cache = %s", cfg.Paths.Cache)
	}
}

func TestValidateHostedRequiresKeyAndURL(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendConfig{Mode: ModeHosted}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted hosted mode without base_url or key")
	}
	message := err.Error()
	if !strings.Contains(message, "base_url") || !strings.Contains(message, "service_key_file") {
		t.Errorf("joined error missing fields: %v", err)
	}
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendConfig{Mode: ModePostgres}

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted postgres mode without dsn")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Backend.Mode = "carrier-pigeon"
	cfg.Backend.BaseURL = "https://ops.example.com"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted an unknown backend mode")
	}
}
