// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a transcription service (e.g., a local whisper-server,
// a Wyoming protocol daemon, or a cloud API) and exposes a uniform batch
// interface: one captured utterance in, one transcript out. Endpointing and
// voice-activity detection happen upstream in the recorder; providers receive
// complete utterances.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe converts a captured utterance to text. language is an
	// optional hint (e.g., "en", "de"); an empty string lets the provider
	// auto-detect or use its configured default.
	//
	// An empty string result with a nil error means the provider heard no
	// speech; callers treat that as a soft failure, not an error.
	Transcribe(ctx context.Context, utt audio.Utterance, language string) (string, error)
}
