// Package mock provides in-memory mock implementations of the [audio.Input],
// [audio.Output], and [audio.FrameStream] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so that
// tests can assert on call counts and arguments, and they expose exported fields
// that the test can set to control return values.
//
// Typical usage:
//
//	stream := mock.NewStream(16)
//	in := &mock.Input{OpenStreamResult: stream}
//	stream.Push(audio.Frame{Data: loudPCM, SampleRate: 16000, Channels: 1})
//	got, err := in.OpenStream(ctx, audio.StreamConfig{})
package mock

import (
	"context"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

// ─── Stream ───────────────────────────────────────────────────────────────────

// Stream is a mock implementation of [audio.FrameStream]. Tests feed it frames
// with [Stream.Push] and close it with [Stream.Close] or end-of-input via
// [Stream.Finish].
type Stream struct {
	mu sync.Mutex

	// CloseError is returned by [Stream.Close].
	CloseError error

	// CallCountClose records how many times Close was called.
	CallCountClose int

	ch     chan audio.Frame
	closed bool
}

// NewStream returns a Stream whose frame channel has the given capacity.
func NewStream(buffer int) *Stream {
	return &Stream{ch: make(chan audio.Frame, buffer)}
}

// Frames implements [audio.FrameStream].
func (s *Stream) Frames() <-chan audio.Frame {
	return s.ch
}

// Close implements [audio.FrameStream]. Closes the frame channel on first call.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return s.CloseError
}

// Push delivers a frame to the stream's consumer. It blocks when the channel
// buffer is full and panics if the stream was closed, mirroring a programming
// error in the test.
func (s *Stream) Push(f audio.Frame) {
	s.ch <- f
}

// Finish closes the frame channel without counting as a consumer Close call.
// Use it to simulate the device ending the stream.
func (s *Stream) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// ─── Input ────────────────────────────────────────────────────────────────────

// OpenStreamCall records the arguments of a single [Input.OpenStream] invocation.
type OpenStreamCall struct {
	// Config is the stream config passed to OpenStream.
	Config audio.StreamConfig
}

// Input is a mock implementation of [audio.Input].
// Set the exported Result fields before use; inspect the recorded calls after.
type Input struct {
	mu sync.Mutex

	// OpenStreamResult is the stream returned by OpenStream. When nil and
	// OpenStreamError is nil, a fresh empty [Stream] is returned.
	OpenStreamResult audio.FrameStream

	// OpenStreamError is the error returned by OpenStream.
	OpenStreamError error

	// OpenStreamCalls records all OpenStream invocations.
	OpenStreamCalls []OpenStreamCall
}

// OpenStream implements [audio.Input].
func (i *Input) OpenStream(_ context.Context, cfg audio.StreamConfig) (audio.FrameStream, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.OpenStreamCalls = append(i.OpenStreamCalls, OpenStreamCall{Config: cfg})
	if i.OpenStreamError != nil {
		return nil, i.OpenStreamError
	}
	if i.OpenStreamResult == nil {
		return NewStream(1), nil
	}
	return i.OpenStreamResult, nil
}

// ─── Output ───────────────────────────────────────────────────────────────────

// PlayCall records the arguments of a single [Output.Play] invocation.
type PlayCall struct {
	// PCM is the audio passed to Play.
	PCM []byte
	// SampleRate is the rate passed to Play.
	SampleRate int
}

// Output is a mock implementation of [audio.Output].
type Output struct {
	mu sync.Mutex

	// PlayError is returned by [Output.Play].
	PlayError error

	// BlockUntilStopped makes Play block until Stop is called or the ctx is
	// cancelled, which lets tests exercise interruption paths.
	BlockUntilStopped bool

	// PlayCalls records all Play invocations.
	PlayCalls []PlayCall

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	stopped chan struct{}
}

// Play implements [audio.Output]. Records the call and returns PlayError.
func (o *Output) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	o.mu.Lock()
	o.PlayCalls = append(o.PlayCalls, PlayCall{PCM: pcm, SampleRate: sampleRate})
	block := o.BlockUntilStopped
	if block && o.stopped == nil {
		o.stopped = make(chan struct{})
	}
	stopped := o.stopped
	err := o.PlayError
	o.mu.Unlock()

	if block {
		select {
		case <-stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Stop implements [audio.Output]. Unblocks a pending Play.
func (o *Output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.CallCountStop++
	if o.stopped != nil {
		select {
		case <-o.stopped:
		default:
			close(o.stopped)
		}
		o.stopped = nil
	}
}

var (
	_ audio.FrameStream = (*Stream)(nil)
	_ audio.Input       = (*Input)(nil)
	_ audio.Output      = (*Output)(nil)
)
