package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vortexai/vortex-edge/internal/observe"
)

// ErrAllFailed is returned when every provider in a [FallbackGroup] failed
// or had an open breaker.
var ErrAllFailed = errors.New("resilience: every provider failed")

// FallbackConfig configures a [FallbackGroup].
type FallbackConfig struct {
	// Breaker is the per-provider breaker tuning. The Name field is
	// overwritten with each provider's own name.
	Breaker BreakerConfig

	// Metrics receives per-provider request and error counts. Nil means
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// fallbackEntry pairs a provider with its dedicated breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// FallbackGroup tries a primary and zero or more fallback instances of one
// provider type in registration order, skipping providers whose breaker is
// open. The stage label ("stt", "tts", "chat") tags log messages and
// metrics.
//
// FallbackGroup is safe for concurrent use once assembly is done.
type FallbackGroup[T any] struct {
	stage   string
	entries []fallbackEntry[T]
	cfg     FallbackConfig
	metrics *observe.Metrics
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first
// entry. Fallbacks are registered via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](stage, primaryName string, primary T, cfg FallbackConfig) *FallbackGroup[T] {
	m := cfg.Metrics
	if m == nil {
		m = observe.DefaultMetrics()
	}
	g := &FallbackGroup[T]{stage: stage, cfg: cfg, metrics: m}
	g.add(primaryName, primary)
	return g
}

// AddFallback appends a fallback provider. Fallbacks are tried in the order
// they are added, after the primary.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	fg.add(name, fallback)
}

func (fg *FallbackGroup[T]) add(name string, value T) {
	bc := fg.cfg.Breaker
	bc.Name = fg.stage + "/" + name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(bc),
	})
}

// Execute tries fn against each provider in order until one succeeds.
// Providers with an open breaker are skipped without counting a request.
// Returns [ErrAllFailed] wrapping the last error when no provider succeeds.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(T) error) error {
	_, err := ExecuteWithResult(ctx, fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult tries fn against each provider in the group until one
// succeeds, returning its result. A package-level function because Go does
// not support method-level type parameters.
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			fg.metrics.RecordProviderRequest(ctx, entry.name, fg.stage, "ok")
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping provider, breaker open",
				"stage", fg.stage, "provider", entry.name)
			continue
		}
		fg.metrics.RecordProviderRequest(ctx, entry.name, fg.stage, "error")
		fg.metrics.RecordProviderError(ctx, entry.name, fg.stage)
		slog.Warn("provider failed, trying next",
			"stage", fg.stage, "provider", entry.name, "error", err)
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
