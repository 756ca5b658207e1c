// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

package liveview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DavidCapener182/compact-event-control/backend"
	"github.com/DavidCapener182/compact-event-control/lib/clock"
)

// State is the lifecycle state of a [Runner].
type State int

const (
	// StateIdle means no key is bound and no channel is live.
	StateIdle State = iota
	// StateActive means a key is bound and the runner is connecting
	// or connected.
	StateActive
	// StateTearingDown means the previous channel is being closed.
	// The state is transient: Activate and Deactivate both wait for
	// teardown to finish before returning.
	StateTearingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateTearingDown:
		return "tearing-down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Backoff parameters for reconnection after changefeed disconnects.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Update is one published view state: the full snapshot for the bound
// key, plus a staleness flag set while the changefeed is down and the
// snapshot is last-known rather than live.
type Update[Snapshot any] struct {
	// Key is the key the snapshot was fetched for.
	Key string

	// Snapshot is the complete view state.
	Snapshot Snapshot

	// Stale is set when the changefeed is disconnected and Snapshot
	// is the last successful fetch rather than live data.
	Stale bool
}

// Config configures a [Runner].
type Config[Snapshot any] struct {
	// Name identifies the view in log output.
	Name string

	// Fetch reads a complete snapshot for the key. Required. Every
	// update flows through Fetch — change notifications only trigger
	// it, their payloads are never applied directly.
	Fetch func(ctx context.Context, key string) (Snapshot, error)

	// Subscribe opens the changefeed for the key. Nil makes the
	// runner poll-only, driven by RefreshInterval alone.
	Subscribe func(ctx context.Context, key string) (*backend.Subscription, error)

	// RefreshInterval re-fetches periodically even without change
	// notifications. Zero disables the ticker.
	RefreshInterval time.Duration

	// Clock drives backoff and refresh timers. If nil, clock.Real()
	// is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Runner owns the live-data lifecycle for one view. Zero or one
// changefeed channel is live at any time; see the package doc for the
// state machine. Safe for concurrent use.
type Runner[Snapshot any] struct {
	name            string
	fetch           func(ctx context.Context, key string) (Snapshot, error)
	subscribe       func(ctx context.Context, key string) (*backend.Subscription, error)
	refreshInterval time.Duration
	clock           clock.Clock
	logger          *slog.Logger

	updates chan Update[Snapshot]

	// lifecycle serializes Activate, Deactivate, and Close so a
	// teardown always completes before the next channel opens.
	lifecycle sync.Mutex

	// mu guards the fields below. Held only for short reads and
	// writes, never across a teardown wait.
	mu         sync.Mutex
	state      State
	generation uint64
	current    *run[Snapshot]
}

// run is one activation: a bound key, the goroutine driving it, and
// the generation that stamps everything it publishes.
type run[Snapshot any] struct {
	key        string
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	refresh    chan struct{}

	// last is the most recent successful snapshot. Owned by the run
	// goroutine; used to republish stale data during reconnection.
	last    Snapshot
	hasLast bool
}

// NewRunner creates an idle Runner. Call Activate to bind it to a key
// and Close when done.
func NewRunner[Snapshot any](config Config[Snapshot]) (*Runner[Snapshot], error) {
	if config.Fetch == nil {
		return nil, fmt.Errorf("liveview: Fetch is required")
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner[Snapshot]{
		name:            config.Name,
		fetch:           config.Fetch,
		subscribe:       config.Subscribe,
		refreshInterval: config.RefreshInterval,
		clock:           clk,
		logger:          logger,
		updates:         make(chan Update[Snapshot], 1),
	}, nil
}

// Updates delivers published snapshots. The channel has capacity 1
// with latest-wins semantics: a consumer that falls behind sees only
// the newest snapshot, which is always complete.
func (r *Runner[Snapshot]) Updates() <-chan Update[Snapshot] {
	return r.updates
}

// State returns the current lifecycle state.
func (r *Runner[Snapshot]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Key returns the bound key, or empty when idle.
func (r *Runner[Snapshot]) Key() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return ""
	}
	return r.current.key
}

// Activate binds the runner to key. A runner already bound to the
// same key is untouched. A different key (or an idle runner) tears
// the previous channel down completely, then opens the new one —
// the old and new channels are never live at the same time. The
// generation advances before the teardown starts, so results from
// the outgoing run are already defunct while it unwinds.
func (r *Runner[Snapshot]) Activate(key string) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	if r.current != nil && r.current.key == key {
		r.mu.Unlock()
		return
	}
	r.teardownLocked()

	r.generation++
	ctx, cancel := context.WithCancel(context.Background())
	active := &run[Snapshot]{
		key:        key,
		generation: r.generation,
		cancel:     cancel,
		done:       make(chan struct{}),
		refresh:    make(chan struct{}, 1),
	}
	r.current = active
	r.state = StateActive
	r.mu.Unlock()

	r.logger.Info("live view activated", "view", r.name, "key", key)
	go r.runLoop(ctx, active)
}

// Deactivate unbinds the runner and closes the live channel. Returns
// once the teardown has finished. Idempotent.
func (r *Runner[Snapshot]) Deactivate() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	if r.current == nil {
		r.mu.Unlock()
		return
	}
	key := r.current.key
	r.teardownLocked()
	r.state = StateIdle
	r.mu.Unlock()

	r.logger.Info("live view deactivated", "view", r.name, "key", key)
}

// Close is Deactivate under a name that reads right at shutdown.
func (r *Runner[Snapshot]) Close() {
	r.Deactivate()
}

// teardownLocked advances the generation, cancels the current run,
// and waits for its goroutine to exit. Called with mu held; drops and
// reacquires it around the wait. The generation bump happens before
// anything else so late results from the outgoing run are discarded
// even while it unwinds.
func (r *Runner[Snapshot]) teardownLocked() {
	previous := r.current
	if previous == nil {
		return
	}
	r.generation++
	r.current = nil
	r.state = StateTearingDown
	previous.cancel()

	r.mu.Unlock()
	<-previous.done
	r.mu.Lock()
	r.state = StateIdle
}

// Refresh triggers an immediate re-fetch on the active run. A no-op
// when idle or when a refresh is already pending.
func (r *Runner[Snapshot]) Refresh() {
	r.mu.Lock()
	active := r.current
	r.mu.Unlock()
	if active == nil {
		return
	}
	select {
	case active.refresh <- struct{}{}:
	default:
	}
}

// runLoop drives one activation: connect, stream, and reconnect with
// exponential backoff until the run is cancelled.
func (r *Runner[Snapshot]) runLoop(ctx context.Context, active *run[Snapshot]) {
	defer close(active.done)

	backoff := initialBackoff
	for {
		err := r.runOnce(ctx, active, &backoff)
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("live view disconnected",
			"view", r.name,
			"key", active.key,
			"error", err,
			"backoff", backoff,
		)

		// Keep showing the last-known snapshot, flagged stale, while
		// reconnecting.
		if active.hasLast {
			r.publish(active.generation, Update[Snapshot]{
				Key:      active.key,
				Snapshot: active.last,
				Stale:    true,
			})
		}

		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// runOnce establishes a single changefeed connection — subscribing
// BEFORE the initial fetch so no change can slip between snapshot and
// stream — then funnels every trigger into the same full re-fetch.
// Returns the error that ended the connection.
func (r *Runner[Snapshot]) runOnce(ctx context.Context, active *run[Snapshot], backoff *time.Duration) error {
	var changes <-chan backend.Change
	var subscription *backend.Subscription
	if r.subscribe != nil {
		var err error
		subscription, err = r.subscribe(ctx, active.key)
		if err != nil {
			return fmt.Errorf("subscribing: %w", err)
		}
		defer subscription.Close()
		changes = subscription.Changes()
	}

	// The connection is up: reset the backoff so the next disconnect
	// starts the ladder from the bottom again.
	*backoff = initialBackoff

	r.fetchAndPublish(ctx, active)

	var tick <-chan time.Time
	if r.refreshInterval > 0 {
		ticker := r.clock.NewTicker(r.refreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				if err := subscription.Err(); err != nil {
					return err
				}
				return fmt.Errorf("changefeed closed")
			}
			r.fetchAndPublish(ctx, active)
		case <-tick:
			r.fetchAndPublish(ctx, active)
		case <-active.refresh:
			r.fetchAndPublish(ctx, active)
		}
	}
}

// fetchAndPublish reads a full snapshot and publishes it. A fetch
// error is logged and leaves the previous snapshot standing (flagged
// stale when one exists, the zero value otherwise) — read failures
// never surface as broken view state.
func (r *Runner[Snapshot]) fetchAndPublish(ctx context.Context, active *run[Snapshot]) {
	snapshot, err := r.fetch(ctx, active.key)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("snapshot fetch failed",
			"view", r.name,
			"key", active.key,
			"error", err,
		)
		r.publish(active.generation, Update[Snapshot]{
			Key:      active.key,
			Snapshot: active.last,
			Stale:    active.hasLast,
		})
		return
	}
	active.last = snapshot
	active.hasLast = true
	r.publish(active.generation, Update[Snapshot]{Key: active.key, Snapshot: snapshot})
}

// publish delivers an update unless its generation is defunct. The
// updates channel keeps only the newest snapshot: a pending update
// the consumer has not collected yet is replaced, not queued behind.
func (r *Runner[Snapshot]) publish(generation uint64, update Update[Snapshot]) {
	r.mu.Lock()
	live := generation == r.generation
	r.mu.Unlock()
	if !live {
		r.logger.Debug("stale update discarded",
			"view", r.name,
			"key", update.Key,
		)
		return
	}

	select {
	case r.updates <- update:
	default:
		select {
		case <-r.updates:
		default:
		}
		select {
		case r.updates <- update:
		default:
		}
	}
}
