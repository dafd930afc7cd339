// Package pipeline implements the turn-taking engine: the session loop that
// sequences wake detection, utterance capture, transcription, backend
// dialogue, and sentence-by-sentence speech synthesis, with barge-in
// interruption and follow-up listening between turns.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

// CancelToken is the one-shot interruption signal scoped to a single
// interaction cycle. Fire is idempotent; a token is never reused across
// cycles, so a stale signal from a finished cycle cannot suppress a later
// one.
type CancelToken struct {
	fired atomic.Bool
	once  sync.Once
	done  chan struct{}
}

// NewCancelToken creates an unfired token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Fire sets the token. Safe to call from any goroutine, any number of times.
func (t *CancelToken) Fire() {
	t.once.Do(func() {
		t.fired.Store(true)
		close(t.done)
	})
}

// Fired reports whether the token has been set.
func (t *CancelToken) Fired() bool {
	return t.fired.Load()
}

// Done returns a channel closed when the token fires.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// InterruptionMonitor watches the audio input while synthesized speech
// plays and fires the cycle's CancelToken the moment the user appears to
// start speaking.
type InterruptionMonitor struct {
	input      audio.Input
	threshold  float64
	sampleRate int
	frameSize  int
	log        *slog.Logger
}

// NewInterruptionMonitor creates a monitor reading from input. threshold is
// the normalized mean-absolute amplitude above which a frame counts as
// speech.
func NewInterruptionMonitor(input audio.Input, threshold float64, log *slog.Logger) *InterruptionMonitor {
	if log == nil {
		log = slog.Default()
	}
	return &InterruptionMonitor{
		input:      input,
		threshold:  threshold,
		sampleRate: defaultSampleRate,
		frameSize:  defaultFrameSize,
		log:        log,
	}
}

// Watch opens the input stream and watches frames in a background goroutine
// until the returned stop function is called. The first frame above the
// threshold fires token exactly once and invokes onInterrupt; afterwards the
// monitor is inert until torn down. stop always joins the goroutine, on
// every exit path of the window.
//
// When the input device cannot be opened, the window runs unmonitored: the
// failure is logged and stop is a no-op.
func (m *InterruptionMonitor) Watch(ctx context.Context, token *CancelToken, onInterrupt func()) (stop func()) {
	stream, err := m.input.OpenStream(ctx, audio.StreamConfig{
		SampleRate: m.sampleRate,
		FrameSize:  m.frameSize,
		Buffer:     16,
	})
	if err != nil {
		m.log.Warn("interruption monitoring unavailable", "error", err)
		return func() {}
	}

	closed := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		fired := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-closed:
				return
			case frame, ok := <-stream.Frames():
				if !ok {
					return
				}
				if fired {
					continue
				}
				if audio.MeanAbsAmplitude(frame.Data) >= m.threshold {
					fired = true
					token.Fire()
					if onInterrupt != nil {
						onInterrupt()
					}
				}
			}
		}
	}()

	var stopOnce sync.Once
	return func() {
		stopOnce.Do(func() {
			close(closed)
			stream.Close()
			<-done
		})
	}
}
