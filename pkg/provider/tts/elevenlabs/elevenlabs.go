// Package elevenlabs provides an ElevenLabs-backed TTS speaker using the
// HTTP synthesis API with a PCM output format, so the response can be played
// directly without container decoding.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/tts"
)

const (
	defaultEndpoint = "https://api.elevenlabs.io"
	defaultModel    = "eleven_flash_v2_5"
	defaultTimeout  = 60 * time.Second

	// pcm_16000: raw little-endian int16 mono at 16 kHz.
	outputFormat = "pcm_16000"
	sampleRate   = 16000
)

// Compile-time assertion that Speaker implements tts.Speaker.
var _ tts.Speaker = (*Speaker)(nil)

// Option is a functional option for configuring a Speaker.
type Option func(*Speaker)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(s *Speaker) { s.model = model }
}

// WithEndpoint overrides the API endpoint. Used in tests.
func WithEndpoint(endpoint string) Option {
	return func(s *Speaker) { s.endpoint = strings.TrimRight(endpoint, "/") }
}

// Speaker implements tts.Speaker backed by the ElevenLabs synthesis API.
type Speaker struct {
	apiKey   string
	voiceID  string
	model    string
	endpoint string

	httpClient *http.Client
	out        audio.Output

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Speaker using the given API key and voice, playing on out.
func New(apiKey, voiceID string, out audio.Output, opts ...Option) (*Speaker, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	if voiceID == "" {
		return nil, errors.New("elevenlabs: voiceID must not be empty")
	}
	if out == nil {
		return nil, errors.New("elevenlabs: output device must not be nil")
	}
	s := &Speaker{
		apiKey:     apiKey,
		voiceID:    voiceID,
		model:      defaultModel,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		out:        out,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Speak synthesizes text through the ElevenLabs API and plays the PCM reply.
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
		s.cancel = nil
		s.mu.Unlock()
	}()

	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": s.model,
	})
	if err != nil {
		return fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", s.endpoint, s.voiceID, outputFormat)
	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if runCtx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("elevenlabs: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("elevenlabs: server returned HTTP %d: %s", resp.StatusCode, detail)
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("elevenlabs: read response body: %w", err)
	}
	if len(pcm) == 0 {
		return nil
	}

	if err := s.out.Play(runCtx, pcm, sampleRate); err != nil {
		if runCtx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("elevenlabs: play synthesized audio: %w", err)
	}
	return nil
}

// Stop aborts an in-flight request and halts playback.
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
