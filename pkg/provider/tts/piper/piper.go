// Package piper provides a TTS speaker backed by the piper CLI. Each Speak
// call runs `piper --model <path> --output-raw` with the text on stdin and
// plays the raw PCM the process writes to stdout.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/tts"
)

const defaultSampleRate = 22050

// Compile-time assertion that Speaker implements tts.Speaker.
var _ tts.Speaker = (*Speaker)(nil)

// Option is a functional option for configuring a Speaker.
type Option func(*Speaker)

// WithBinary sets the piper executable path. Defaults to "piper" on $PATH.
func WithBinary(path string) Option {
	return func(s *Speaker) { s.binary = path }
}

// WithSampleRate sets the PCM rate piper's voice model produces.
// Defaults to 22050, the rate of the published medium-quality voices.
func WithSampleRate(rate int) Option {
	return func(s *Speaker) { s.sampleRate = rate }
}

// Speaker implements tts.Speaker by shelling out to piper.
type Speaker struct {
	binary     string
	modelPath  string
	sampleRate int
	out        audio.Output

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Speaker for the given voice model, playing on out.
func New(modelPath string, out audio.Output, opts ...Option) (*Speaker, error) {
	if modelPath == "" {
		return nil, errors.New("piper: modelPath must not be empty")
	}
	if out == nil {
		return nil, errors.New("piper: output device must not be nil")
	}
	s := &Speaker{
		binary:     "piper",
		modelPath:  modelPath,
		sampleRate: defaultSampleRate,
		out:        out,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Speak synthesizes text through the piper subprocess and plays the result.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	cmd := exec.CommandContext(runCtx, s.binary, "--model", s.modelPath, "--output-raw")
	cmd.Stdin = strings.NewReader(text + "\n")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			// Killed by Stop or caller cancellation.
			return ctx.Err()
		}
		return fmt.Errorf("piper: run %s: %w (stderr: %s)", s.binary, err, strings.TrimSpace(stderr.String()))
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return nil
	}
	if err := s.out.Play(runCtx, pcm, s.sampleRate); err != nil {
		if runCtx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("piper: play synthesized audio: %w", err)
	}
	return nil
}

// Stop kills an in-flight piper process and halts playback.
func (s *Speaker) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.out.Stop()
}
