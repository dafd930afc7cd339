package resilience

import (
	"context"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/provider/tts"
)

// TTSFallback implements [tts.Speaker] with automatic failover across multiple
// speech backends. Each backend has its own circuit breaker.
type TTSFallback struct {
	group *FallbackGroup[tts.Speaker]

	mu     sync.Mutex
	active tts.Speaker
}

// Compile-time interface assertion.
var _ tts.Speaker = (*TTSFallback)(nil)

// NewTTSFallback creates a [TTSFallback] with primary as the preferred backend.
func NewTTSFallback(primary tts.Speaker, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group: NewFallbackGroup("tts", primaryName, primary, cfg),
	}
}

// AddFallback registers an additional speaker as a fallback.
func (f *TTSFallback) AddFallback(name string, speaker tts.Speaker) {
	f.group.AddFallback(name, speaker)
}

// Speak plays the text on the first healthy speaker. If the primary fails,
// subsequent fallbacks are tried with the same text.
func (f *TTSFallback) Speak(ctx context.Context, text string) error {
	return f.group.Execute(ctx, func(s tts.Speaker) error {
		f.mu.Lock()
		f.active = s
		f.mu.Unlock()
		return s.Speak(ctx, text)
	})
}

// Stop halts playback on the speaker currently in flight, if any.
func (f *TTSFallback) Stop() {
	f.mu.Lock()
	active := f.active
	f.mu.Unlock()
	if active != nil {
		active.Stop()
	}
}
