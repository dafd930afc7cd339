package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

const (
	defaultSampleRate = 16000
	defaultFrameSize  = 1600 // 100ms at 16kHz
)

// FollowUpListener decides, within a fixed deadline, whether the user began
// speaking again after a turn ended.
type FollowUpListener struct {
	input     audio.Input
	threshold float64
	log       *slog.Logger
}

// NewFollowUpListener creates a listener reading from input. When input is
// nil the listener degrades to waiting out the deadline and reporting no
// speech; the wall-clock delay is preserved so the session loop cannot spin.
func NewFollowUpListener(input audio.Input, threshold float64, log *slog.Logger) *FollowUpListener {
	if log == nil {
		log = slog.Default()
	}
	return &FollowUpListener{input: input, threshold: threshold, log: log}
}

// Wait blocks until speech is heard or the timeout elapses. It returns true
// the instant any frame exceeds the energy threshold and false when the
// deadline passes first.
func (l *FollowUpListener) Wait(ctx context.Context, timeout time.Duration) (bool, error) {
	if l.input == nil {
		return false, sleep(ctx, timeout)
	}

	stream, err := l.input.OpenStream(ctx, audio.StreamConfig{
		SampleRate: defaultSampleRate,
		FrameSize:  defaultFrameSize,
		Buffer:     16,
	})
	if err != nil {
		l.log.Warn("follow-up listening unavailable, waiting out the window", "error", err)
		return false, sleep(ctx, timeout)
	}
	defer stream.Close()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case frame, ok := <-stream.Frames():
			if !ok {
				l.log.Warn("follow-up input stream ended, waiting out the window")
				select {
				case <-ctx.Done():
					return false, ctx.Err()
				case <-deadline.C:
					return false, nil
				}
			}
			if audio.MeanAbsAmplitude(frame.Data) >= l.threshold {
				return true, nil
			}
		}
	}
}

// sleep waits for d or the context, whichever ends first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
