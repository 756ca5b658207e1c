// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// event-control-status prints a one-shot snapshot of the active event
// to stdout and exits: event, schedule, incident counters, and
// occupancy. Useful from scripts, cron, and shift-handover notes
// where the full TUI is unnecessary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/DavidCapener182/compact-event-control/backend"
	"github.com/DavidCapener182/compact-event-control/lib/config"
	"github.com/DavidCapener182/compact-event-control/lib/credential"
	"github.com/DavidCapener182/compact-event-control/lib/incidentstats"
	"github.com/DavidCapener182/compact-event-control/lib/occupancy"
	"github.com/DavidCapener182/compact-event-control/lib/schedule"
	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
	"github.com/DavidCapener182/compact-event-control/lib/version"
)

// fetchTimeout bounds the whole one-shot run.
const fetchTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var eventID string

	flagSet := pflag.NewFlagSet("event-control-status", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file path (default: $EVENT_CONTROL_CONFIG)")
	flagSet.StringVar(&eventID, "event", "", "report on this event ID instead of the active event")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("event-control-status")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			flagSet.PrintDefaults()
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		flagSet.SetOutput(os.Stderr)
		flagSet.PrintDefaults()
		return nil
	}

	logger := newLogger()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	dataBackend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	return printStatus(ctx, os.Stdout, dataBackend, eventID)
}

// newLogger colors log output when stderr is a terminal and falls
// back to JSON when redirected, so piped runs stay machine-readable.
func newLogger() *slog.Logger {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// openBackend mirrors the dashboard's backend construction without
// the TUI plumbing.
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

// printStatus fetches one snapshot and writes the report.
func printStatus(ctx context.Context, out *os.File, dataBackend backend.Backend, eventID string) error {
	var active event.Event
	if eventID != "" {
		row, found, err := dataBackend.EventByID(ctx, eventID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("event %s not found", eventID)
		}
		active = row
	} else {
		row, found, err := dataBackend.CurrentEvent(ctx)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(out, "No active event.")
			return nil
		}
		active = row
	}

	incidents, err := dataBackend.Incidents(ctx, active.ID)
	if err != nil {
		return err
	}
	records, err := dataBackend.Attendance(ctx, active.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	stats := incidentstats.Compute(incidents)
	occupancyView := occupancy.Derive(records, active.Capacity)
	upcoming := schedule.Upcoming(active, now)

	title := active.Name
	if active.Venue != "" {
		title += " · " + active.Venue
	}
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, strings.Repeat("─", len([]rune(title))))

	if len(upcoming) == 0 {
		fmt.Fprintln(out, "Schedule: no upcoming milestones today")
	} else {
		fmt.Fprintln(out, "Schedule:")
		for _, entry := range upcoming {
			marker := " "
			if entry.Next {
				marker = "▸"
			}
			line := fmt.Sprintf("  %s %s  %s", marker, entry.Time, entry.Title)
			if entry.Next {
				if target, targetErr := schedule.Target(entry.Time, now); targetErr == nil {
					line += fmt.Sprintf("  (T-%s)", schedule.Remaining(target, now))
				}
			}
			fmt.Fprintln(out, line)
		}
	}

	fmt.Fprintf(out, "Incidents: %d total, %d high priority, %d open, %d in progress, %d closed, %d sit reps\n",
		stats.Total, stats.HighPriority, stats.Open, stats.InProgress, stats.Closed, stats.Logged)
	fmt.Fprintf(out, "           %d refusals, %d ejections, %d medical\n",
		stats.Refusals, stats.Ejections, stats.Medical)

	if occupancyView.HasBar {
		fmt.Fprintf(out, "Occupancy: %d / %d (%d%%)\n",
			occupancyView.Count, occupancyView.Capacity, occupancyView.Percent)
	} else {
		fmt.Fprintf(out, "Occupancy: %d (capacity unknown)\n", occupancyView.Count)
	}
	return nil
}
