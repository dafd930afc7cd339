// Package chat defines the client interfaces for conversation backends.
//
// A chat client forwards one user transcript to the assistant backend and
// returns the reply. Backends that can deliver the reply incrementally also
// implement [StreamingClient]; the turn engine resolves that capability once
// at wiring time and then speaks streamed replies sentence by sentence.
//
// Implementations must be safe for concurrent use.
package chat

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrBackend marks failures of the conversation backend itself (unreachable
// service, error status, malformed reply). The session controller reacts to
// a backend failure by abandoning the session and returning to wake
// listening. Implementations wrap it: errors.Is(err, ErrBackend).
var ErrBackend = errors.New("chat backend failure")

// Request is one user turn sent to the backend.
type Request struct {
	// Text is the transcribed user utterance.
	Text string

	// SessionID is the opaque conversation identifier. The backend may
	// return a different one in the reply, which replaces it for
	// subsequent requests.
	SessionID string

	// Debug requests verbose backend-side processing when supported.
	Debug bool
}

// Reply is the backend's complete answer to one request.
type Reply struct {
	// Text is the assistant's reply, ready for speech synthesis.
	Text string

	// SessionID echoes or replaces the conversation identifier. Empty
	// means the backend left the session unchanged.
	SessionID string
}

// Client is the abstraction over any conversation backend.
type Client interface {
	// Chat sends one user turn and waits for the full reply.
	Chat(ctx context.Context, req Request) (Reply, error)
}

// StreamingClient is implemented by backends that can deliver the reply
// incrementally. Callers check for this capability once, when the client is
// constructed, never per call.
type StreamingClient interface {
	Client

	// ChatStream sends one user turn and returns a stream of reply text
	// chunks. The returned error is non-nil only when the stream cannot be
	// started; failures after that are reported by [Stream.Err].
	ChatStream(ctx context.Context, req Request) (*Stream, error)
}

// Stream delivers reply text chunks as the backend produces them.
//
// The consumer reads Chunks until the channel closes, then checks Err to
// distinguish normal completion from a mid-stream failure. Abandoning the
// channel without draining it may block the producer; use audio.Drain when
// cutting a stream short.
type Stream struct {
	ch  chan string
	err atomic.Pointer[error]

	// SessionID is set by the producer before the chunk channel closes;
	// read it only after Chunks is exhausted.
	SessionID string
}

// NewStream creates a stream with the given chunk buffer capacity.
// Called by client implementations, not consumers.
func NewStream(buffer int) *Stream {
	return &Stream{ch: make(chan string, buffer)}
}

// Chunks returns the receive channel of reply fragments. The same channel is
// returned on every call; it is closed when the reply is complete or failed.
func (s *Stream) Chunks() <-chan string { return s.ch }

// Err returns the failure that ended the stream, or nil after a clean end.
// Only meaningful once Chunks is closed.
func (s *Stream) Err() error {
	if p := s.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Push delivers one chunk, honoring ctx cancellation. It reports false when
// the chunk was not delivered. Producer side only.
func (s *Stream) Push(ctx context.Context, chunk string) bool {
	select {
	case s.ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close ends the stream cleanly. Producer side only; call exactly once.
func (s *Stream) Close() { close(s.ch) }

// CloseWithError records err and ends the stream. Producer side only; call
// exactly once.
func (s *Stream) CloseWithError(err error) {
	if err != nil {
		s.err.Store(&err)
	}
	close(s.ch)
}
