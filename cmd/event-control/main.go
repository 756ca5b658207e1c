// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// event-control is the terminal dashboard for live-event security
// operations. It follows the backend's active event (or a pinned one
// via --event), renders the incident log, schedule countdown,
// statistics, and occupancy, and keeps all of it current over the
// backend's change notifications.
//
// Two backend modes, selected in the config file:
//
// Hosted (default): reads over the hosted service's HTTP API and
// subscribes to its websocket changefeed, authenticated by a service
// key (optionally age-encrypted on disk).
//
// Postgres: connects straight to a self-hosted Postgres and uses
// LISTEN/NOTIFY for change notifications.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/DavidCapener182/compact-event-control/backend"
	"github.com/DavidCapener182/compact-event-control/dashui"
	"github.com/DavidCapener182/compact-event-control/lib/config"
	"github.com/DavidCapener182/compact-event-control/lib/credential"
	"github.com/DavidCapener182/compact-event-control/lib/snapcache"
	"github.com/DavidCapener182/compact-event-control/lib/version"
	"github.com/DavidCapener182/compact-event-control/lib/weather"
)

// expiryWarningWindow is how close to service key expiry the startup
// warning fires.
const expiryWarningWindow = 7 * 24 * time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var eventID string
	var logOutput string
	var logLevel string

	flagSet := pflag.NewFlagSet("event-control", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file path (default: $EVENT_CONTROL_CONFIG)")
	flagSet.StringVar(&eventID, "event", "", "pin the dashboard to one event ID instead of following the active event")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file (in addition to TUI display)")
	flagSet.StringVar(&logLevel, "log-level", "warn", "minimum level for TUI status-bar notices (debug, info, warn, error)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("event-control")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	if logOutput == "" {
		logOutput = cfg.Paths.LogOutput
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}

	// Background logging routes through the TUI status bar rather
	// than stderr, which the alt-screen display occupies. An
	// optional file logger captures everything for post-mortem
	// debugging.
	tuiHandler := dashui.NewTUILogHandler(level)
	var logger *slog.Logger
	if logOutput != "" {
		fileHandler, closeFile, fileErr := openFileLogHandler(logOutput)
		if fileErr != nil {
			return fmt.Errorf("cannot open log file %s: %w", logOutput, fileErr)
		}
		defer closeFile()
		logger = slog.New(fanoutHandler{tuiHandler, fileHandler})
	} else {
		logger = slog.New(tuiHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dataBackend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	var cache *snapcache.Store
	if cfg.Paths.Cache != "" {
		cache, err = snapcache.Open(cfg.Paths.Cache, logger)
		if err != nil {
			// The cache only provides instant-on display; the
			// dashboard works without it.
			logger.Warn("snapshot cache unavailable", "path", cfg.Paths.Cache, "error", err)
		} else {
			defer cache.Close()
		}
	}

	var weatherClient *weather.Client
	if cfg.Weather.Enabled {
		weatherClient = weather.NewClient(weather.ClientConfig{
			BaseURL: cfg.Weather.BaseURL,
			Logger:  logger,
		})
	}

	source, err := dashui.NewSource(dashui.SourceConfig{
		Backend:         dataBackend,
		PinnedEventID:   eventID,
		Cache:           cache,
		Weather:         weatherClient,
		WeatherInterval: cfg.Weather.RefreshInterval.Std(),
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer source.Close()

	model := dashui.NewModel(source, nil)
	program := tea.NewProgram(model, tea.WithAltScreen())
	tuiHandler.SetProgram(program)
	source.Start(program)

	_, err = program.Run()
	return err
}

// loadConfig loads from the --config path when given, otherwise from
// EVENT_CONTROL_CONFIG.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// openBackend constructs the configured backend. In hosted mode the
// service key is loaded (and decrypted when the file carries a .age
// suffix) and inspected for impending expiry, which is worth a
// warning before the operator is mid-show with a dead key.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (backend.Backend, func(), error) {
	switch cfg.Backend.Mode {
	case config.ModePostgres:
		pg, err := backend.NewPostgresBackend(ctx, backend.PostgresConfig{
			DSN:    cfg.Backend.DSN,
			Logger: logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil

	case config.ModeHosted:
		serviceKey, err := credential.Load(cfg.Backend.ServiceKeyFile, cfg.Backend.IdentityFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading service key: %w", err)
		}
		if info, inspectErr := credential.Inspect(serviceKey); inspectErr == nil {
			if info.ExpiresWithin(time.Now(), expiryWarningWindow) {
				logger.Warn("service key expires soon",
					"role", info.Role,
					"expires_at", info.ExpiresAt)
			}
		}
		client, err := backend.NewClient(backend.ClientConfig{
			BaseURL:    cfg.Backend.BaseURL,
			ServiceKey: serviceKey,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend mode %q", cfg.Backend.Mode)
	}
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Event Control — terminal dashboard for live-event security operations.

Follows the backend's active event by default: when control staff flag
a different event as current, the dashboard switches to it live. Use
--event to pin one event instead.

Usage:
  event-control [flags]

Examples:
  # Follow the active event
  event-control --config /etc/event-control.yaml

  # Pin to a specific event
  event-control --event 42

  # Capture background logs for post-mortem debugging
  event-control --log-output /tmp/event-control.jsonl

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

// openFileLogHandler creates a slog.JSONHandler that writes to the
// given file path. Returns the handler, a cleanup function to close
// the file, and any error. The file is created or truncated.
func openFileLogHandler(path string) (slog.Handler, func(), error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return handler, func() { file.Close() }, nil
}

// fanoutHandler is a slog.Handler that sends each record to multiple
// underlying handlers. A record is enabled if any sub-handler is
// enabled for that level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
