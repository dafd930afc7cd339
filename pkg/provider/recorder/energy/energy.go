// Package energy provides the microphone recorder: it waits for speech,
// captures until the speaker goes quiet, and returns the utterance.
//
// Two voice activity measures are available: plain mean-absolute amplitude
// against a fixed threshold, and spectral flux, which compares successive
// magnitude spectra and reacts to the onset of speech rather than its
// absolute level. A short pre-roll of frames from just before the detected
// onset is prepended so the first syllable is not clipped.
package energy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	wave "github.com/zenwerk/go-wave"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/recorder"
)

// VADMode selects the voice activity measure.
type VADMode string

const (
	// VADAmplitude treats frames above a fixed mean-absolute amplitude as
	// speech.
	VADAmplitude VADMode = "amplitude"
	// VADSpectralFlux detects speech by jumps in the magnitude spectrum
	// between successive frames.
	VADSpectralFlux VADMode = "spectral_flux"
)

const (
	defaultSampleRate      = 16000
	defaultFrameSize       = 480 // 30ms at 16kHz
	defaultThreshold       = 0.02
	defaultSilenceDuration = 1200 * time.Millisecond
	defaultNoSpeechTimeout = 8 * time.Second
	defaultMaxDuration     = 30 * time.Second
	prerollFrames          = 6
)

var _ recorder.Recorder = (*Recorder)(nil)

// Option is a functional option for Recorder.
type Option func(*Recorder)

// WithVADMode selects the voice activity measure. Default: VADAmplitude.
func WithVADMode(mode VADMode) Option {
	return func(r *Recorder) { r.mode = mode }
}

// WithThreshold sets the amplitude-mode speech threshold. Default: 0.02.
func WithThreshold(threshold float64) Option {
	return func(r *Recorder) { r.threshold = threshold }
}

// WithSilenceDuration sets how long the speaker must stay quiet before the
// utterance is considered finished. Default: 1.2s.
func WithSilenceDuration(d time.Duration) Option {
	return func(r *Recorder) { r.silenceDuration = d }
}

// WithNoSpeechTimeout sets how long to wait for speech to begin before
// giving up with an empty utterance. Zero waits forever. Default: 8s.
func WithNoSpeechTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.noSpeechTimeout = d }
}

// WithMaxDuration caps the utterance length once speech has begun.
// Default: 30s.
func WithMaxDuration(d time.Duration) Option {
	return func(r *Recorder) { r.maxDuration = d }
}

// WithSampleRate sets the capture sample rate. Default: 16000.
func WithSampleRate(rate int) Option {
	return func(r *Recorder) { r.sampleRate = rate }
}

// WithCaptureArchive writes every captured utterance as a WAV file into dir
// on the given filesystem. Intended for debugging endpointing behavior.
func WithCaptureArchive(fs afero.Fs, dir string) Option {
	return func(r *Recorder) {
		r.archive = fs
		r.archiveDir = dir
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.log = logger }
}

// Recorder implements recorder.Recorder with energy-based endpointing.
type Recorder struct {
	input      audio.Input
	sampleRate int
	mode       VADMode
	threshold  float64

	silenceDuration time.Duration
	noSpeechTimeout time.Duration
	maxDuration     time.Duration

	archive    afero.Fs
	archiveDir string
	log        *slog.Logger
}

// New creates an endpointing recorder reading from input.
func New(input audio.Input, opts ...Option) (*Recorder, error) {
	if input == nil {
		return nil, fmt.Errorf("energy: input must not be nil")
	}
	r := &Recorder{
		input:           input,
		sampleRate:      defaultSampleRate,
		mode:            VADAmplitude,
		threshold:       defaultThreshold,
		silenceDuration: defaultSilenceDuration,
		noSpeechTimeout: defaultNoSpeechTimeout,
		maxDuration:     defaultMaxDuration,
		log:             slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Record implements recorder.Recorder.
func (r *Recorder) Record(ctx context.Context) (audio.Utterance, error) {
	stream, err := r.input.OpenStream(ctx, audio.StreamConfig{
		SampleRate: r.sampleRate,
		FrameSize:  defaultFrameSize,
		Buffer:     32,
	})
	if err != nil {
		return audio.Utterance{}, fmt.Errorf("energy: open input stream: %w", err)
	}
	defer stream.Close()

	vad := r.newVAD()
	frameDur := time.Duration(defaultFrameSize) * time.Second / time.Duration(r.sampleRate)

	var (
		captured   []byte
		preroll    [][]byte
		speaking   bool
		quietFor   time.Duration
		waitedFor  time.Duration
		speechTime time.Duration
	)

	for {
		select {
		case <-ctx.Done():
			return audio.Utterance{}, ctx.Err()
		case frame, ok := <-stream.Frames():
			if !ok {
				return audio.Utterance{}, fmt.Errorf("energy: input stream ended mid-capture")
			}
			voiced := vad.voiced(frame.Data, speaking)

			if !speaking {
				if !voiced {
					preroll = append(preroll, frame.Data)
					if len(preroll) > prerollFrames {
						preroll = preroll[1:]
					}
					waitedFor += frameDur
					if r.noSpeechTimeout > 0 && waitedFor >= r.noSpeechTimeout {
						return audio.Utterance{}, nil
					}
					continue
				}
				speaking = true
				for _, p := range preroll {
					captured = append(captured, p...)
				}
			}

			captured = append(captured, frame.Data...)
			speechTime += frameDur

			if voiced {
				quietFor = 0
			} else {
				quietFor += frameDur
			}

			if quietFor >= r.silenceDuration || (r.maxDuration > 0 && speechTime >= r.maxDuration) {
				utt := audio.Utterance{PCM: captured, SampleRate: r.sampleRate, Channels: 1}
				r.archiveCapture(utt)
				return utt, nil
			}
		}
	}
}

// archiveCapture dumps the utterance as a WAV file when an archive is
// configured. Failures are logged, never propagated.
func (r *Recorder) archiveCapture(utt audio.Utterance) {
	if r.archive == nil {
		return
	}

	name := filepath.Join(r.archiveDir, fmt.Sprintf("capture-%d.wav", time.Now().UnixNano()))
	file, err := r.archive.Create(name)
	if err != nil {
		r.log.Warn("create capture archive file", "path", name, "error", err)
		return
	}

	writer, err := wave.NewWriter(wave.WriterParam{
		Out:           file,
		Channel:       utt.Channels,
		SampleRate:    utt.SampleRate,
		BitsPerSample: 16,
	})
	if err != nil {
		r.log.Warn("open capture archive writer", "path", name, "error", err)
		file.Close()
		return
	}
	defer writer.Close()

	samples := make([]int16, len(utt.PCM)/2)
	for i := range samples {
		samples[i] = int16(utt.PCM[2*i]) | int16(utt.PCM[2*i+1])<<8
	}
	if _, err := writer.WriteSample16(samples); err != nil {
		r.log.Warn("write capture archive", "path", name, "error", err)
	}
}
