// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for the dashboard's timers so tests can
// drive the countdown and refresh cadences deterministically.
// Production code injects Real(); tests inject Fake() and call Advance.
package clock

import "time"

// Clock is the time source injected into every component that reads
// the current time or schedules work. Code under this module never
// calls time.Now or time.NewTicker directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives once, after d elapses.
	// If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering on C every d. Panics if
	// d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. The channel has capacity 1;
// ticks are dropped, not queued, when the consumer falls behind. Call
// Stop to release the ticker.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. C is not closed.
func (t *Ticker) Stop() { t.stop() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stop: ticker.Stop}
}
