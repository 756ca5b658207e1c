// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DavidCapener182/compact-event-control/backend"
	"github.com/DavidCapener182/compact-event-control/lib/clock"
	"github.com/DavidCapener182/compact-event-control/lib/incidentstats"
	"github.com/DavidCapener182/compact-event-control/lib/liveview"
	"github.com/DavidCapener182/compact-event-control/lib/occupancy"
	"github.com/DavidCapener182/compact-event-control/lib/schema/event"
	"github.com/DavidCapener182/compact-event-control/lib/snapcache"
	"github.com/DavidCapener182/compact-event-control/lib/weather"
)

// Snapshot is everything the dashboard renders for one event: the
// event row, its incident log, and the aggregates derived from them.
// Aggregates are computed here, in the fetch path, so every update —
// initial load, change notification, manual refresh — produces them
// the same way.
type Snapshot struct {
	Event     event.Event         `cbor:"event"`
	Incidents []event.Incident    `cbor:"incidents"`
	Stats     incidentstats.Stats `cbor:"stats"`
	Occupancy occupancy.View      `cbor:"occupancy"`
	FetchedAt time.Time           `cbor:"fetched_at"`
}

// SnapshotMsg delivers a snapshot to the model. Stale is set when the
// data is last-known rather than live (changefeed down, fetch failed,
// or served from the on-disk cache).
type SnapshotMsg struct {
	Snapshot Snapshot
	Stale    bool
}

// NoEventMsg tells the model no event is currently active. This is a
// valid, renderable state.
type NoEventMsg struct{}

// WeatherMsg delivers a weather reading to the model.
type WeatherMsg struct {
	Reading weather.Reading
	Stale   bool
}

// SourceConfig holds configuration for creating a Source.
type SourceConfig struct {
	// Backend supplies reads and change subscriptions. Required.
	Backend backend.Backend

	// PinnedEventID fixes the dashboard on one event. Empty follows
	// the backend's active event, including live handover when the
	// active flag moves.
	PinnedEventID string

	// Cache persists the last good snapshot per event. Optional.
	Cache *snapcache.Store

	// Weather fetches venue conditions. Nil disables the panel.
	Weather *weather.Client

	// WeatherInterval is the weather poll cadence. Zero defaults to
	// 15 minutes.
	WeatherInterval time.Duration

	// Clock drives the runners' timers. If nil, clock.Real() is
	// used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Source owns the live-data machinery behind the dashboard: an event
// selector that tracks which event is active, a snapshot runner bound
// to that event, and an optional poll-only weather runner. It pumps
// every update into the bubbletea program as messages.
type Source struct {
	backend backend.Backend
	pinned  string
	cache   *snapcache.Store
	weather *weather.Client
	clock   clock.Clock
	logger  *slog.Logger

	selector      *liveview.Runner[string]
	snapshot      *liveview.Runner[Snapshot]
	weatherRunner *liveview.Runner[weather.Reading]

	cancel context.CancelFunc
}

// NewSource creates a Source. Call Start with the tea.Program to
// begin delivery and Close on shutdown.
func NewSource(config SourceConfig) (*Source, error) {
	if config.Backend == nil {
		return nil, fmt.Errorf("dashui: Backend is required")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	weatherInterval := config.WeatherInterval
	if weatherInterval <= 0 {
		weatherInterval = 15 * time.Minute
	}

	source := &Source{
		backend: config.Backend,
		pinned:  config.PinnedEventID,
		cache:   config.Cache,
		weather: config.Weather,
		clock:   clk,
		logger:  logger,
	}

	var err error
	source.snapshot, err = liveview.NewRunner(liveview.Config[Snapshot]{
		Name:      "snapshot",
		Fetch:     source.fetchSnapshot,
		Subscribe: source.subscribeSnapshot,
		// Safety net against missed notifications: a full re-fetch
		// once a minute even on a quiet changefeed.
		RefreshInterval: time.Minute,
		Clock:           clk,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	if config.PinnedEventID == "" {
		source.selector, err = liveview.NewRunner(liveview.Config[string]{
			Name:  "event-selector",
			Fetch: source.fetchActiveEventID,
			Subscribe: func(ctx context.Context, _ string) (*backend.Subscription, error) {
				// Whole-table subscription: the interesting change is
				// the active flag moving between rows.
				return config.Backend.Subscribe(ctx, backend.TableEvents, "")
			},
			RefreshInterval: time.Minute,
			Clock:           clk,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
	}

	if config.Weather != nil {
		source.weatherRunner, err = liveview.NewRunner(liveview.Config[weather.Reading]{
			Name:            "weather",
			Fetch:           source.fetchWeather,
			RefreshInterval: weatherInterval,
			Clock:           clk,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
	}

	return source, nil
}

// Start begins delivery of messages to the program. The forwarding
// goroutine runs until Close.
func (s *Source) Start(program *tea.Program) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.forward(ctx, program)

	if s.pinned != "" {
		s.primeFromCache(program, s.pinned)
		s.snapshot.Activate(s.pinned)
		return
	}
	s.selector.Activate("active")
}

// Close tears down every runner and the forwarding goroutine.
func (s *Source) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.selector != nil {
		s.selector.Close()
	}
	s.snapshot.Close()
	if s.weatherRunner != nil {
		s.weatherRunner.Close()
	}
}

// Refresh forces an immediate snapshot re-fetch.
func (s *Source) Refresh() {
	s.snapshot.Refresh()
	if s.selector != nil {
		s.selector.Refresh()
	}
}

// forward pumps runner updates into the bubbletea program. The
// selector's output drives the snapshot runner's key: when the active
// event changes, the old subscription closes before the new one
// opens, inside the runner's Activate.
func (s *Source) forward(ctx context.Context, program *tea.Program) {
	var selectorUpdates <-chan liveview.Update[string]
	if s.selector != nil {
		selectorUpdates = s.selector.Updates()
	}
	var weatherUpdates <-chan liveview.Update[weather.Reading]
	if s.weatherRunner != nil {
		weatherUpdates = s.weatherRunner.Updates()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case update := <-selectorUpdates:
			s.onActiveEvent(program, update)

		case update := <-s.snapshot.Updates():
			s.onSnapshot(program, update)

		case update := <-weatherUpdates:
			program.Send(WeatherMsg{Reading: update.Snapshot, Stale: update.Stale})
		}
	}
}

// onActiveEvent rebinds the snapshot runner when the active event
// changes. An empty ID deactivates it entirely — timers and
// subscription stop together.
func (s *Source) onActiveEvent(program *tea.Program, update liveview.Update[string]) {
	eventID := update.Snapshot
	if eventID == "" {
		s.snapshot.Deactivate()
		if s.weatherRunner != nil {
			s.weatherRunner.Deactivate()
		}
		program.Send(NoEventMsg{})
		return
	}
	if eventID != s.snapshot.Key() {
		s.logger.Info("active event changed", "event_id", eventID)
		s.primeFromCache(program, eventID)
	}
	s.snapshot.Activate(eventID)
}

// onSnapshot forwards a snapshot to the model, persists it to the
// cache, and keeps the weather runner bound to the venue coordinates.
func (s *Source) onSnapshot(program *tea.Program, update liveview.Update[Snapshot]) {
	program.Send(SnapshotMsg{Snapshot: update.Snapshot, Stale: update.Stale})

	if !update.Stale && s.cache != nil && update.Key != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.cache.Put(ctx, update.Key, update.Snapshot, update.Snapshot.FetchedAt); err != nil {
			s.logger.Warn("caching snapshot failed", "event_id", update.Key, "error", err)
		}
		cancel()
	}

	if s.weatherRunner != nil {
		active := update.Snapshot.Event
		if active.Latitude != 0 || active.Longitude != 0 {
			s.weatherRunner.Activate(weatherKey(active.Latitude, active.Longitude))
		}
	}
}

// primeFromCache renders the last good snapshot immediately, marked
// stale, while the live fetch is in flight.
func (s *Source) primeFromCache(program *tea.Program, eventID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var cached Snapshot
	_, ok, err := s.cache.Get(ctx, eventID, &cached)
	if err != nil {
		s.logger.Warn("reading cached snapshot failed", "event_id", eventID, "error", err)
		return
	}
	if !ok {
		return
	}
	program.Send(SnapshotMsg{Snapshot: cached, Stale: true})
}

// fetchActiveEventID resolves which event the dashboard should show.
// Empty means none — a valid state, not an error.
func (s *Source) fetchActiveEventID(ctx context.Context, _ string) (string, error) {
	active, ok, err := s.backend.CurrentEvent(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return active.ID, nil
}

// fetchSnapshot reads the complete view state for one event: the
// event row, its incidents, and its attendance records, with the
// aggregates computed in the same pass. Related collections that come
// back empty produce zero-valued aggregates, not errors.
func (s *Source) fetchSnapshot(ctx context.Context, eventID string) (Snapshot, error) {
	active, ok, err := s.backend.EventByID(ctx, eventID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading event: %w", err)
	}
	if !ok {
		return Snapshot{}, fmt.Errorf("event %s not found", eventID)
	}

	incidents, err := s.backend.Incidents(ctx, eventID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading incidents: %w", err)
	}
	attendance, err := s.backend.Attendance(ctx, eventID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading attendance: %w", err)
	}

	return Snapshot{
		Event:     active,
		Incidents: incidents,
		Stats:     incidentstats.Compute(incidents),
		Occupancy: occupancy.Derive(attendance, active.Capacity),
		FetchedAt: s.clock.Now(),
	}, nil
}

// subscribeSnapshot opens the incident changefeed for the event. The
// attendance feed rides the same notification channel in postgres
// mode; in hosted mode the one-minute refresh tick covers attendance
// drift between incident notifications.
func (s *Source) subscribeSnapshot(ctx context.Context, eventID string) (*backend.Subscription, error) {
	return s.backend.Subscribe(ctx, backend.TableIncidents, eventID)
}

// fetchWeather reads current conditions for the coordinates encoded
// in the runner key.
func (s *Source) fetchWeather(ctx context.Context, key string) (weather.Reading, error) {
	var latitude, longitude float64
	if _, err := fmt.Sscanf(key, "%f,%f", &latitude, &longitude); err != nil {
		return weather.Reading{}, fmt.Errorf("bad coordinate key %q: %w", key, err)
	}
	return s.weather.Current(ctx, latitude, longitude)
}

// weatherKey encodes venue coordinates as a runner key, so a venue
// change rebinds the weather runner like any other key change.
func weatherKey(latitude, longitude float64) string {
	return fmt.Sprintf("%.4f,%.4f", latitude, longitude)
}
