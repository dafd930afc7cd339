// Package wyoming provides an STT provider speaking the Wyoming voice
// protocol over TCP, as served by faster-whisper and compatible daemons.
package wyoming

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/vortexai/vortex-edge/internal/wyoming"
	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultChunkSize = 4096
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout bounds one full transcription exchange. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider implements stt.Provider over a Wyoming TCP endpoint. Each
// Transcribe call opens a fresh connection, so concurrent calls are safe.
type Provider struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// New creates a Provider for the Wyoming daemon at addr (host:port).
func New(addr string, opts ...Option) (*Provider, error) {
	if addr == "" {
		return nil, errors.New("wyoming: addr must not be empty")
	}
	p := &Provider{addr: addr, timeout: defaultTimeout}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe streams the utterance to the daemon as transcribe, audio-start,
// audio-chunk*, audio-stop and waits for the transcript event.
func (p *Provider) Transcribe(ctx context.Context, utt audio.Utterance, language string) (string, error) {
	if len(utt.PCM) == 0 {
		return "", nil
	}

	raw, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return "", fmt.Errorf("wyoming: dial %s: %w", p.addr, err)
	}
	conn := wyoming.NewConn(raw)
	defer conn.Close()
	conn.SetDeadline(deadline(ctx, p.timeout))

	format := wyoming.AudioFormat(utt.SampleRate, max(utt.Channels, 1))

	var transcribeData map[string]any
	if language != "" {
		transcribeData = map[string]any{"language": language}
	}
	if err := conn.Write(wyoming.Event{Type: wyoming.TypeTranscribe, Data: transcribeData}); err != nil {
		return "", err
	}
	if err := conn.Write(wyoming.Event{Type: wyoming.TypeAudioStart, Data: format}); err != nil {
		return "", err
	}
	for off := 0; off < len(utt.PCM); off += defaultChunkSize {
		end := min(off+defaultChunkSize, len(utt.PCM))
		ev := wyoming.Event{
			Type:    wyoming.TypeAudioChunk,
			Data:    format,
			Payload: utt.PCM[off:end],
		}
		if err := conn.Write(ev); err != nil {
			return "", err
		}
	}
	if err := conn.Write(wyoming.Event{Type: wyoming.TypeAudioStop, Data: format}); err != nil {
		return "", err
	}

	for {
		ev, err := conn.Read()
		if err != nil {
			return "", err
		}
		switch ev.Type {
		case wyoming.TypeTranscript:
			text, _ := ev.Data["text"].(string)
			return text, nil
		case wyoming.TypeError:
			msg, _ := ev.Data["text"].(string)
			return "", fmt.Errorf("wyoming: daemon error: %s", msg)
		}
		// Skip unrelated events (voice info, pings).
	}
}

func deadline(ctx context.Context, fallback time.Duration) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(fallback)
}
