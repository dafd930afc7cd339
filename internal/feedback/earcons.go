// Package feedback plays short synthesized audio cues (earcons) that mark
// assistant state changes: waking up, capture done, hearing nothing, waiting
// on the backend, starting to speak, a backend error, and going back to
// sleep. Cues are generated sine tones, so no asset files are needed.
package feedback

import (
	"context"
	"log/slog"
	"math"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

const (
	sampleRate = 16000
	amplitude  = 0.25
)

// Earcons plays state-change cues on an audio output. A nil *Earcons or one
// constructed without an output is silent, so callers never need to guard
// their cue calls. Each cue is individually failable: playback errors are
// logged and swallowed.
type Earcons struct {
	out audio.Output
	log *slog.Logger
}

// NewEarcons creates an Earcons player. out may be nil to disable all cues.
func NewEarcons(out audio.Output, log *slog.Logger) *Earcons {
	if log == nil {
		log = slog.Default()
	}
	return &Earcons{out: out, log: log}
}

// Wake plays the ascending session-start cue.
func (e *Earcons) Wake(ctx context.Context) {
	e.play(ctx, "wake", tone(660, 90), tone(880, 130))
}

// NoSpeech plays the double low blip used when a capture produced no
// transcript.
func (e *Earcons) NoSpeech(ctx context.Context) {
	e.play(ctx, "no_speech", tone(330, 70), silence(40), tone(330, 70))
}

// Processing plays the falling double beep used when recording has stopped
// and the capture is being transcribed.
func (e *Earcons) Processing(ctx context.Context) {
	e.play(ctx, "processing", tone(700, 80), silence(30), tone(550, 80))
}

// Thinking plays the short mid tone used when the transcript has been sent
// to the backend and the assistant is waiting for the reply.
func (e *Earcons) Thinking(ctx context.Context) {
	e.play(ctx, "thinking", tone(440, 120))
}

// Speaking plays the brief high blip that precedes synthesized speech.
func (e *Earcons) Speaking(ctx context.Context) {
	e.play(ctx, "speaking", tone(990, 60))
}

// Error plays the low buzz used when a turn aborts on a backend failure.
func (e *Earcons) Error(ctx context.Context) {
	e.play(ctx, "error", tone(220, 250))
}

// Sleep plays the descending cue used when the session ends and the
// assistant returns to waiting for the wake signal.
func (e *Earcons) Sleep(ctx context.Context) {
	e.play(ctx, "sleep", tone(880, 90), tone(660, 130))
}

func (e *Earcons) play(ctx context.Context, name string, segments ...[]byte) {
	if e == nil || e.out == nil {
		return
	}
	var pcm []byte
	for _, s := range segments {
		pcm = append(pcm, s...)
	}
	if err := e.out.Play(ctx, pcm, sampleRate); err != nil {
		e.log.Warn("earcon playback failed", "cue", name, "error", err)
	}
}

// tone synthesizes a sine tone with a short linear fade at both ends to
// avoid clicks. durMillis is the length in milliseconds.
func tone(freq float64, durMillis int) []byte {
	samples := sampleRate * durMillis / 1000
	fade := sampleRate / 200 // 5ms
	if fade > samples/2 {
		fade = samples / 2
	}

	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
		switch {
		case i < fade:
			v *= float64(i) / float64(fade)
		case i >= samples-fade:
			v *= float64(samples-1-i) / float64(fade)
		}
		s := int16(v * 32767)
		pcm[2*i] = byte(s)
		pcm[2*i+1] = byte(s >> 8)
	}
	return pcm
}

// silence produces a quiet gap between tones.
func silence(durMillis int) []byte {
	return make([]byte, sampleRate*durMillis/1000*2)
}
