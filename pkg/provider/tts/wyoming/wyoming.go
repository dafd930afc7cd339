// Package wyoming provides a TTS speaker speaking the Wyoming voice protocol
// over TCP, as served by piper's daemon mode and compatible servers.
package wyoming

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/vortexai/vortex-edge/internal/wyoming"
	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/tts"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultSampleRate = 22050
)

// Compile-time assertion that Speaker implements tts.Speaker.
var _ tts.Speaker = (*Speaker)(nil)

// Option is a functional option for configuring a Speaker.
type Option func(*Speaker)

// WithVoice sets the voice name forwarded with every synthesize event.
func WithVoice(voice string) Option {
	return func(s *Speaker) { s.voice = voice }
}

// WithTimeout bounds one full synthesis exchange. Defaults to 60s.
func WithTimeout(d time.Duration) Option {
	return func(s *Speaker) { s.timeout = d }
}

// Speaker implements tts.Speaker over a Wyoming TCP endpoint. Each Speak
// call opens a fresh connection.
type Speaker struct {
	addr    string
	voice   string
	timeout time.Duration
	dialer  net.Dialer
	out     audio.Output

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Speaker for the Wyoming daemon at addr (host:port), playing
// on out.
func New(addr string, out audio.Output, opts ...Option) (*Speaker, error) {
	if addr == "" {
		return nil, errors.New("wyoming: addr must not be empty")
	}
	if out == nil {
		return nil, errors.New("wyoming: output device must not be nil")
	}
	s := &Speaker{addr: addr, timeout: defaultTimeout, out: out}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Speak sends a synthesize event, collects the audio-chunk events until
// audio-stop, and plays the assembled PCM.
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

	raw, err := s.dialer.DialContext(runCtx, "tcp", s.addr)
	if err != nil {
		if runCtx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("wyoming: dial %s: %w", s.addr, err)
	}
	conn := wyoming.NewConn(raw)
	defer conn.Close()
	if d, ok := runCtx.Deadline(); ok {
		conn.SetDeadline(d)
	} else {
		conn.SetDeadline(time.Now().Add(s.timeout))
	}
	// Unblock pending reads when Stop fires mid-synthesis.
	go func() {
		<-runCtx.Done()
		conn.Close()
	}()

	data := map[string]any{"text": text}
	if s.voice != "" {
		data["voice"] = map[string]any{"name": s.voice}
	}
	if err := conn.Write(wyoming.Event{Type: wyoming.TypeSynthesize, Data: data}); err != nil {
		if runCtx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	var pcm []byte
	rate := defaultSampleRate
	for {
		ev, err := conn.Read()
		if err != nil {
			if runCtx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		switch ev.Type {
		case wyoming.TypeAudioStart:
			if r, ok := ev.Data["rate"].(float64); ok && r > 0 {
				rate = int(r)
			}
		case wyoming.TypeAudioChunk:
			pcm = append(pcm, ev.Payload...)
		case wyoming.TypeAudioStop:
			if len(pcm) == 0 {
				return nil
			}
			if err := s.out.Play(runCtx, pcm, rate); err != nil {
				if runCtx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("wyoming: play synthesized audio: %w", err)
			}
			return nil
		case wyoming.TypeError:
			msg, _ := ev.Data["text"].(string)
			return fmt.Errorf("wyoming: daemon error: %s", msg)
		}
	}
}

// Stop aborts an in-flight exchange and halts playback.
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
