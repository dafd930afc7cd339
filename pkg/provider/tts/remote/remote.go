// Package remote provides a TTS speaker backed by a synthesis HTTP service:
// POST /synthesize with a JSON body returns a WAV file, which is decoded and
// played on the output device.
package remote

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

const defaultTimeout = 60 * time.Second

// Compile-time assertion that Speaker implements tts.Speaker.
var _ tts.Speaker = (*Speaker)(nil)

// Option is a functional option for configuring a Speaker.
type Option func(*Speaker)

// WithVoice sets the voice name forwarded in every request.
func WithVoice(voice string) Option {
	return func(s *Speaker) { s.voice = voice }
}

// WithHTTPClient replaces the HTTP client, e.g. to adjust the timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Speaker) { s.httpClient = c }
}

// Speaker implements tts.Speaker against a remote synthesis service.
type Speaker struct {
	baseURL    string
	voice      string
	httpClient *http.Client
	out        audio.Output

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Speaker for the service at baseURL, playing on out.
func New(baseURL string, out audio.Output, opts ...Option) (*Speaker, error) {
	if baseURL == "" {
		return nil, errors.New("remote: baseURL must not be empty")
	}
	if out == nil {
		return nil, errors.New("remote: output device must not be nil")
	}
	s := &Speaker{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		out:        out,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Speak requests synthesis of text and plays the returned WAV.
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

	payload := map[string]string{"text": text}
	if s.voice != "" {
		payload["voice"] = s.voice
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("remote: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, s.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("remote: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if runCtx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("remote: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote: server returned HTTP %d", resp.StatusCode)
	}

	wavData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("remote: read response body: %w", err)
	}
	pcm, rate, channels, err := audio.DecodeWAV(wavData)
	if err != nil {
		return fmt.Errorf("remote: decode synthesized audio: %w", err)
	}
	if channels == 2 {
		pcm = audio.StereoToMono(pcm)
	}

	if err := s.out.Play(runCtx, pcm, rate); err != nil {
		if runCtx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("remote: play synthesized audio: %w", err)
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
