// Package portaudio adapts the default system capture and playback devices
// to the [audio.Input] and [audio.Output] interfaces using PortAudio.
package portaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pa "github.com/gordonklaus/portaudio"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

const (
	defaultSampleRate = 16000
	defaultFrameSize  = 512
	defaultBuffer     = 32
)

var (
	initOnce sync.Once
	initErr  error
)

// Device wraps the process-wide default input/output device pair.
// Create at most one per process; PortAudio is initialized on first use and
// stays initialized for the process lifetime.
type Device struct {
	playMu   sync.Mutex
	playStop chan struct{}
}

// New initializes PortAudio (once) and returns the device pair.
func New() (*Device, error) {
	initOnce.Do(func() {
		initErr = pa.Initialize()
	})
	if initErr != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", initErr)
	}
	return &Device{}, nil
}

// OpenStream implements [audio.Input]. It opens the default capture device
// in mono int16 and delivers frames until Close. When the consumer falls
// behind, the oldest buffered frame is dropped so the device never blocks.
func (d *Device) OpenStream(_ context.Context, cfg audio.StreamConfig) (audio.FrameStream, error) {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = defaultSampleRate
	}
	frameSize := cfg.FrameSize
	if frameSize <= 0 {
		frameSize = defaultFrameSize
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	in := make([]int16, frameSize)
	stream, err := pa.OpenDefaultStream(1, 0, float64(rate), len(in), in)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open capture stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("portaudio: start capture stream: %w", err)
	}

	fs := &frameStream{
		ch:   make(chan audio.Frame, buffer),
		quit: make(chan struct{}),
	}
	go fs.readLoop(stream, in, rate)
	return fs, nil
}

type frameStream struct {
	ch        chan audio.Frame
	quit      chan struct{}
	closeOnce sync.Once
}

func (fs *frameStream) Frames() <-chan audio.Frame { return fs.ch }

func (fs *frameStream) Close() error {
	fs.closeOnce.Do(func() { close(fs.quit) })
	return nil
}

// readLoop owns the PortAudio stream: it is the only goroutine touching it,
// and it closes both the stream and the frame channel on exit.
func (fs *frameStream) readLoop(stream *pa.Stream, in []int16, rate int) {
	defer close(fs.ch)
	defer stream.Close()
	defer stream.Stop()

	start := time.Now()
	for {
		select {
		case <-fs.quit:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			// Overflows are recoverable; anything else ends the stream.
			if errors.Is(err, pa.InputOverflowed) {
				continue
			}
			return
		}

		data := make([]byte, len(in)*2)
		for i, s := range in {
			data[i*2] = byte(s)
			data[i*2+1] = byte(s >> 8)
		}
		frame := audio.Frame{
			Data:       data,
			SampleRate: rate,
			Channels:   1,
			Timestamp:  time.Since(start),
		}

		select {
		case fs.ch <- frame:
		default:
			// Drop the oldest frame to make room.
			select {
			case <-fs.ch:
			default:
			}
			select {
			case fs.ch <- frame:
			default:
			}
		}
	}
}

// Play implements [audio.Output]. It writes mono int16 PCM to the default
// playback device in fixed-size chunks, checking for cancellation between
// chunks. Returns nil when stopped early via [Device.Stop].
func (d *Device) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("portaudio: invalid sample rate %d", sampleRate)
	}

	stop := make(chan struct{})
	d.playMu.Lock()
	if d.playStop != nil {
		close(d.playStop)
	}
	d.playStop = stop
	d.playMu.Unlock()

	defer func() {
		d.playMu.Lock()
		if d.playStop == stop {
			d.playStop = nil
		}
		d.playMu.Unlock()
	}()

	out := make([]int16, defaultFrameSize)
	stream, err := pa.OpenDefaultStream(0, 1, float64(sampleRate), len(out), &out)
	if err != nil {
		return fmt.Errorf("portaudio: open playback stream: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start playback stream: %w", err)
	}
	defer stream.Stop()

	samples := len(pcm) / 2
	for off := 0; off < samples; off += len(out) {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := min(len(out), samples-off)
		for i := 0; i < n; i++ {
			j := (off + i) * 2
			out[i] = int16(pcm[j]) | int16(pcm[j+1])<<8
		}
		// Zero-pad the final partial chunk.
		for i := n; i < len(out); i++ {
			out[i] = 0
		}
		if err := stream.Write(); err != nil {
			if errors.Is(err, pa.OutputUnderflowed) {
				continue
			}
			return fmt.Errorf("portaudio: write playback chunk: %w", err)
		}
	}
	return nil
}

// Stop implements [audio.Output].
func (d *Device) Stop() {
	d.playMu.Lock()
	defer d.playMu.Unlock()
	if d.playStop != nil {
		close(d.playStop)
		d.playStop = nil
	}
}

var (
	_ audio.Input  = (*Device)(nil)
	_ audio.Output = (*Device)(nil)
	_ audio.Device = (*Device)(nil)
)
