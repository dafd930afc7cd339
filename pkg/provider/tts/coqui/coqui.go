// Package coqui provides a TTS speaker backed by a local Coqui TTS server
// (the `tts-server` binary), which synthesizes speech via GET /api/tts and
// returns a WAV file.
package coqui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
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

// WithSpeakerID sets the speaker_id query parameter for multi-speaker models.
func WithSpeakerID(id string) Option {
	return func(s *Speaker) { s.speakerID = id }
}

// WithLanguageID sets the language_id query parameter for multilingual models.
func WithLanguageID(id string) Option {
	return func(s *Speaker) { s.languageID = id }
}

// WithHTTPClient replaces the HTTP client, e.g. to adjust the timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Speaker) { s.httpClient = c }
}

// Speaker implements tts.Speaker against a Coqui TTS server.
type Speaker struct {
	baseURL    string
	speakerID  string
	languageID string
	httpClient *http.Client
	out        audio.Output

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Speaker for the server at baseURL (e.g.,
// "http://localhost:5002"), playing on out.
func New(baseURL string, out audio.Output, opts ...Option) (*Speaker, error) {
	if baseURL == "" {
		return nil, errors.New("coqui: baseURL must not be empty")
	}
	if out == nil {
		return nil, errors.New("coqui: output device must not be nil")
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

	q := url.Values{}
	q.Set("text", text)
	if s.speakerID != "" {
		q.Set("speaker_id", s.speakerID)
	}
	if s.languageID != "" {
		q.Set("language_id", s.languageID)
	}

	req, err := http.NewRequestWithContext(runCtx, http.MethodGet, s.baseURL+"/api/tts?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("coqui: create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if runCtx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("coqui: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coqui: server returned HTTP %d", resp.StatusCode)
	}

	wavData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("coqui: read response body: %w", err)
	}
	pcm, rate, channels, err := audio.DecodeWAV(wavData)
	if err != nil {
		return fmt.Errorf("coqui: decode synthesized audio: %w", err)
	}
	if channels == 2 {
		pcm = audio.StereoToMono(pcm)
	}

	if err := s.out.Play(runCtx, pcm, rate); err != nil {
		if runCtx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("coqui: play synthesized audio: %w", err)
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
