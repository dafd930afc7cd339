// This file contains the Native provider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
)

// Compile-time assertion that Native satisfies stt.Provider.
var _ stt.Provider = (*Native)(nil)

// Native implements stt.Provider using whisper.cpp Go bindings (CGO),
// eliminating HTTP overhead entirely. The model is loaded once at startup
// and shared across all transcriptions; each Transcribe call creates its own
// whisper context, so concurrent calls do not interfere.
type Native struct {
	model    whisperlib.Model
	language string

	// Contexts are cheap but not free; serialize creation under load.
	mu sync.Mutex
}

// NativeOption is a functional option for configuring a Native provider.
type NativeOption func(*Native)

// WithNativeLanguage sets the language code used when the caller supplies
// none (e.g., "en", "de"). Defaults to "en".
func WithNativeLanguage(lang string) NativeOption {
	return func(p *Native) { p.language = lang }
}

// NewNative creates a Native provider that loads the whisper.cpp model from
// the given file path. The caller must call Close when the provider is no
// longer needed.
func NewNative(modelPath string, opts ...NativeOption) (*Native, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Native{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model. Must be called when the provider is no
// longer needed.
func (p *Native) Close() error {
	if p.model != nil {
		return p.model.Close()
	}
	return nil
}

// Transcribe converts the utterance's PCM to float32 mono samples, runs
// whisper.cpp inference using a fresh context, and returns the concatenated
// segment text.
func (p *Native) Transcribe(ctx context.Context, utt audio.Utterance, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: context cancelled: %w", err)
	}
	if len(utt.PCM) == 0 {
		return "", nil
	}
	lang := language
	if lang == "" {
		lang = p.language
	}

	// whisper.cpp expects 16 kHz mono; downmix and resample as needed.
	pcm := utt.PCM
	if utt.Channels == 2 {
		pcm = audio.StereoToMono(pcm)
	}
	if utt.SampleRate > 0 && utt.SampleRate != whisperlib.SampleRate {
		pcm = audio.ResampleMono16(pcm, utt.SampleRate, whisperlib.SampleRate)
	}
	samples := pcmToFloat32Mono(pcm, 1)

	p.mu.Lock()
	wctx, err := p.model.NewContext()
	p.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

// pcmToFloat32Mono converts little-endian int16 PCM to the normalized
// float32 mono samples whisper.cpp expects, averaging channels when the
// input is multi-channel.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(pcm) / 2 / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum int32
		for c := range channels {
			j := (i*channels + c) * 2
			sum += int32(int16(pcm[j]) | int16(pcm[j+1])<<8)
		}
		out[i] = float32(sum/int32(channels)) / 32768.0
	}
	return out
}
