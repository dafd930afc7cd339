// Package resilience provides failover across the assistant's speech and
// chat providers. A flaky whisper server or an unreachable chat gateway
// should degrade one turn, not every turn: each provider sits behind a
// [Breaker], a three-state circuit breaker (closed → open → half-open), and
// a [FallbackGroup] routes around providers whose breaker is open so a
// healthy fallback answers instead.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Execute] when the breaker is open
// and the reset timeout has not yet elapsed.
var ErrBreakerOpen = errors.New("resilience: breaker is open")

// State is the operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls; the provider is considered healthy.
	StateClosed State = iota

	// StateOpen rejects calls immediately with [ErrBreakerOpen]. Entered
	// after too many consecutive failures, left when the reset timeout
	// elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through after the
	// reset timeout. Successful probes close the breaker, a failing probe
	// re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds tuning knobs for a [Breaker].
type BreakerConfig struct {
	// Name labels the guarded provider in log messages.
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before allowing
	// probes. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is how many probe calls the half-open state admits before
	// the breaker decides to close or re-open. Default: 3.
	HalfOpenMax int
}

// Breaker guards one provider with the three-state circuit breaker pattern.
// It is safe for concurrent use from multiple goroutines.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu          sync.Mutex
	state       State
	failStreak  int
	lastFailure time.Time
	probeCalls  int
	probeFails  int
}

// NewBreaker creates a [Breaker]. Zero-value config fields get defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &Breaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker admits the call, then accounts for the
// outcome. In the open state it returns [ErrBreakerOpen] without calling fn.
func (b *Breaker) Execute(fn func() error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}

	err = fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure(probe)
	} else {
		b.onSuccess(probe)
	}
	return err
}

// admit decides whether a call may proceed, performing the open → half-open
// transition when the reset timeout has elapsed. It reports whether the
// admitted call counts as a half-open probe.
func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) < b.resetTimeout {
			return false, ErrBreakerOpen
		}
		b.state = StateHalfOpen
		b.probeCalls = 0
		b.probeFails = 0
		slog.Info("provider breaker probing", "provider", b.name)

	case StateHalfOpen:
		if b.probeCalls >= b.halfOpenMax {
			// Probe budget spent; wait for the verdict.
			return false, ErrBreakerOpen
		}
	}

	if b.state == StateHalfOpen {
		b.probeCalls++
		return true, nil
	}
	return false, nil
}

// onFailure accounts for a failed call. Must be called with b.mu held.
func (b *Breaker) onFailure(probe bool) {
	b.lastFailure = time.Now()

	if probe {
		// One failed probe is enough to re-open.
		b.probeFails++
		b.state = StateOpen
		b.failStreak = b.maxFailures
		slog.Warn("provider breaker re-opened", "provider", b.name)
		return
	}

	b.failStreak++
	if b.failStreak >= b.maxFailures {
		b.state = StateOpen
		slog.Warn("provider breaker opened",
			"provider", b.name, "consecutive_failures", b.failStreak)
	}
}

// onSuccess accounts for a successful call. Must be called with b.mu held.
func (b *Breaker) onSuccess(probe bool) {
	if probe {
		if b.probeCalls-b.probeFails >= b.halfOpenMax {
			b.state = StateClosed
			b.failStreak = 0
			b.probeCalls = 0
			b.probeFails = 0
			slog.Info("provider breaker closed", "provider", b.name)
		}
		return
	}
	b.failStreak = 0
}

// State returns the current [State]. An open breaker whose reset timeout has
// elapsed reports [StateHalfOpen]; the stored transition happens on the next
// [Breaker.Execute] call.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.lastFailure) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failStreak = 0
	b.probeCalls = 0
	b.probeFails = 0
	slog.Info("provider breaker reset", "provider", b.name)
}
