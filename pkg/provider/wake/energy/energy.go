// Package energy provides a wake detector that triggers on sustained input
// energy. It does not recognize a specific phrase; any speech above the
// threshold wakes the assistant.
package energy

import (
	"context"
	"fmt"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/wake"
)

const (
	defaultThreshold  = 0.02
	defaultRunFrames  = 3
	defaultSampleRate = 16000
	defaultFrameSize  = 1600 // 100ms at 16kHz
)

var _ wake.Detector = (*Detector)(nil)

// Option is a functional option for Detector.
type Option func(*Detector)

// WithThreshold sets the normalized mean-absolute amplitude above which a
// frame counts as speech. Default: 0.02.
func WithThreshold(threshold float64) Option {
	return func(d *Detector) { d.threshold = threshold }
}

// WithRunFrames sets how many consecutive loud frames are required before
// waking. Default: 3.
func WithRunFrames(n int) Option {
	return func(d *Detector) { d.runFrames = n }
}

// WithSampleRate sets the capture sample rate. Default: 16000.
func WithSampleRate(rate int) Option {
	return func(d *Detector) { d.sampleRate = rate }
}

// Detector implements wake.Detector by watching input frames for a run of
// consecutive frames above the energy threshold.
type Detector struct {
	input      audio.Input
	threshold  float64
	runFrames  int
	sampleRate int
}

// New creates an energy wake detector reading from input.
func New(input audio.Input, opts ...Option) (*Detector, error) {
	if input == nil {
		return nil, fmt.Errorf("energy: input must not be nil")
	}
	d := &Detector{
		input:      input,
		threshold:  defaultThreshold,
		runFrames:  defaultRunFrames,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// AwaitWake implements wake.Detector. The input stream is opened for the
// duration of the wait and closed before returning, so the session recorder
// can take over the device.
func (d *Detector) AwaitWake(ctx context.Context) (bool, error) {
	stream, err := d.input.OpenStream(ctx, audio.StreamConfig{
		SampleRate: d.sampleRate,
		FrameSize:  defaultFrameSize,
		Buffer:     16,
	})
	if err != nil {
		return false, fmt.Errorf("energy: open input stream: %w", err)
	}
	defer stream.Close()

	run := 0
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case frame, ok := <-stream.Frames():
			if !ok {
				return false, fmt.Errorf("energy: input stream ended while waiting for wake")
			}
			if audio.MeanAbsAmplitude(frame.Data) >= d.threshold {
				run++
				if run >= d.runFrames {
					return true, nil
				}
			} else {
				run = 0
			}
		}
	}
}
