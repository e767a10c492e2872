package pool

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// backoffState tracks the empty-queue delay. A zero duration means polling
// is unrestricted; otherwise the duration doubles on consecutive empty
// observations up to the configured maximum and snaps back to zero once
// work reappears.
type backoffState struct {
	engine    *backoff.ExponentialBackOff
	current   time.Duration
	lastEmpty time.Time
}

func newBackoffState(initial, max time.Duration) *backoffState {
	engine := backoff.NewExponentialBackOff()
	engine.InitialInterval = initial
	engine.RandomizationFactor = 0
	engine.Multiplier = 2
	engine.MaxInterval = max
	// The pool decides when to probe again; the engine must never give up.
	engine.MaxElapsedTime = 0
	engine.Reset()
	return &backoffState{engine: engine}
}

// observeEmpty advances the doubling sequence and refreshes the timestamp
// of the last empty-queue observation.
func (b *backoffState) observeEmpty(now time.Time) {
	b.current = b.engine.NextBackOff()
	b.lastEmpty = now
}

func (b *backoffState) reset() {
	b.engine.Reset()
	b.current = 0
}

func (b *backoffState) active() bool {
	return b.current > 0
}

func (b *backoffState) expired(now time.Time) bool {
	return now.Sub(b.lastEmpty) >= b.current
}
