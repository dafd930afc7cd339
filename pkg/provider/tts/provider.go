// Package tts defines the Speaker interface for text-to-speech backends.
//
// A speaker owns both synthesis and playback: Speak blocks until the given
// text has been rendered and played on the output device, and Stop halts
// playback immediately. Keeping playback inside the speaker lets the
// interruption monitor cut off speech with a single call, without knowing
// which synthesis engine is active.
//
// Implementations must be safe for concurrent use: Stop may be called from a
// different goroutine while Speak is in flight.
package tts

import "context"

// Speaker is the abstraction over any text-to-speech backend.
type Speaker interface {
	// Speak synthesizes text and plays it. It returns once playback has
	// finished, was stopped via Stop, or ctx was cancelled. A Stop-initiated
	// halt is not an error.
	Speak(ctx context.Context, text string) error

	// Stop aborts in-flight synthesis and playback immediately. No-op when
	// idle.
	Stop()
}
