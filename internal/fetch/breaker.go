package fetch

import (
	"sync"
	"time"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker is a process-wide circuit breaker shared by all upstream calls.
// After threshold consecutive failures it opens and fails fast for the
// cooldown period; the first call after cooldown half-opens the circuit as a
// trial, whose outcome closes or reopens it.
type Breaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
	now       func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and stays open for cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. While open it fails fast with a
// circuit_open error; once the cooldown has elapsed exactly one caller is let
// through as the half-open trial.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return nil
	case breakerHalfOpen:
		// A trial call is already in flight.
		return domain.E(domain.KindCircuitOpen, "upstream circuit open, trial call in progress").
			WithHint("retry after the trial call settles")
	default:
		if b.now().Sub(b.openedAt) < b.cooldown {
			remaining := b.cooldown - b.now().Sub(b.openedAt)
			return domain.E(domain.KindCircuitOpen, "upstream circuit open").
				WithHint("retry in " + remaining.Round(time.Second).String())
		}
		b.state = breakerHalfOpen
		return nil
	}
}

// Success records a successful call, closing the circuit.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
}

// Failure records a failed call. In half-open it reopens immediately; in
// closed it opens once the consecutive-failure threshold is reached.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = b.now()
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = b.now()
	}
}
