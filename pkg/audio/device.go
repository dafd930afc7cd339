package audio

import "context"

// StreamConfig describes how an input stream should be opened.
type StreamConfig struct {
	// SampleRate in Hz. Zero means the adapter's default (16000).
	SampleRate int

	// FrameSize is the number of samples per delivered frame. Zero means
	// the adapter's default (512).
	FrameSize int

	// Buffer is the capacity of the frame channel. Zero means a small
	// default chosen by the adapter. When the consumer falls behind, the
	// adapter drops the oldest frames rather than blocking the device.
	Buffer int
}

// FrameStream delivers captured audio frames until closed.
//
// The channel returned by Frames is closed when the stream is closed or the
// device fails. Callers own the stream and must call Close exactly when they
// are done; at most one stream may be open per [Input] at a time.
type FrameStream interface {
	// Frames returns the receive channel of captured frames. The same
	// channel is returned on every call.
	Frames() <-chan Frame

	// Close stops capture and closes the frame channel. Safe to call more
	// than once.
	Close() error
}

// Input opens capture streams over a microphone or equivalent source.
type Input interface {
	// OpenStream starts capturing and returns the stream. The ctx governs
	// the open attempt only; the stream lives until Close.
	OpenStream(ctx context.Context, cfg StreamConfig) (FrameStream, error)
}

// Output plays PCM audio on a speaker or equivalent sink.
//
// Implementations must be safe for concurrent use: Stop may be called from a
// different goroutine while Play is blocked.
type Output interface {
	// Play blocks until the given little-endian int16 mono PCM has been
	// played, the ctx is cancelled, or Stop is called. Returns nil when
	// playback was stopped early.
	Play(ctx context.Context, pcm []byte, sampleRate int) error

	// Stop aborts any in-flight Play immediately. No-op when idle.
	Stop()
}

// Device combines capture and playback on one physical device pair.
type Device interface {
	Input
	Output
}
