package resilience

import (
	"context"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with automatic failover across multiple
// transcription backends. Each backend has its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{
		group: NewFallbackGroup("stt", primaryName, primary, cfg),
	}
}

// AddFallback registers an additional STT provider as a fallback.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs the utterance against the first healthy provider. If the
// primary fails, subsequent fallbacks are tried with the same utterance.
func (f *STTFallback) Transcribe(ctx context.Context, utt audio.Utterance, language string) (string, error) {
	return ExecuteWithResult(ctx, f.group, func(p stt.Provider) (string, error) {
		return p.Transcribe(ctx, utt, language)
	})
}
