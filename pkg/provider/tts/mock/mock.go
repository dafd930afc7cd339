// Package mock provides an in-memory mock implementation of [tts.Speaker]
// for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/provider/tts"
)

// Speaker is a mock implementation of [tts.Speaker].
// Set the exported fields before use; inspect the recorded calls after.
type Speaker struct {
	mu sync.Mutex

	// SpeakError is returned by every Speak call.
	SpeakError error

	// BlockUntilStopped makes Speak block until Stop is called or the ctx
	// is cancelled, which lets tests exercise interruption paths.
	BlockUntilStopped bool

	// OnSpeak, when non-nil, runs at the start of each Speak call with the
	// text about to be spoken. Use it to fire an interruption mid-speech.
	OnSpeak func(text string)

	// Spoken records the text of every Speak invocation in order.
	Spoken []string

	// CallCountStop records how many times Stop was called.
	CallCountStop int

	stopped chan struct{}
}

// Speak implements [tts.Speaker].
func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	s.Spoken = append(s.Spoken, text)
	block := s.BlockUntilStopped
	if block && s.stopped == nil {
		s.stopped = make(chan struct{})
	}
	stopped := s.stopped
	hook := s.OnSpeak
	err := s.SpeakError
	s.mu.Unlock()

	if hook != nil {
		hook(text)
	}
	if block {
		select {
		case <-stopped:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Stop implements [tts.Speaker]. Unblocks a pending Speak.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStop++
	if s.stopped != nil {
		select {
		case <-s.stopped:
		default:
			close(s.stopped)
		}
		s.stopped = nil
	}
}

// SpokenTexts returns a copy of the recorded texts, safe to inspect while
// other goroutines keep speaking.
func (s *Speaker) SpokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Spoken))
	copy(out, s.Spoken)
	return out
}

var _ tts.Speaker = (*Speaker)(nil)
