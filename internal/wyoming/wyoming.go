// Package wyoming implements the Wyoming voice protocol framing: one JSON
// header line per event, optionally followed by a raw binary payload whose
// size is announced in the header. Speech-to-text and text-to-speech daemons
// (faster-whisper, piper) speak this protocol over TCP.
package wyoming

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// Event types used by the ASR and TTS exchanges.
const (
	TypeTranscribe = "transcribe"
	TypeTranscript = "transcript"
	TypeSynthesize = "synthesize"
	TypeAudioStart = "audio-start"
	TypeAudioChunk = "audio-chunk"
	TypeAudioStop  = "audio-stop"
	TypeError      = "error"
)

// Event is one protocol message. Data carries the event-specific fields;
// Payload holds the raw bytes that follow the header, if any.
type Event struct {
	Type    string
	Data    map[string]any
	Payload []byte
}

type header struct {
	Type          string         `json:"type"`
	Data          map[string]any `json:"data,omitempty"`
	PayloadLength *int           `json:"payload_length,omitempty"`
}

// AudioFormat returns the data fields describing 16-bit PCM audio.
func AudioFormat(rate, channels int) map[string]any {
	return map[string]any{
		"rate":     rate,
		"width":    2,
		"channels": channels,
	}
}

// Conn wraps a network connection with buffered protocol framing.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

// NewConn wraps an established connection.
func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

// SetDeadline bounds all subsequent reads and writes.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Write sends one event, flushing the header line and any payload.
func (c *Conn) Write(ev Event) error {
	h := header{Type: ev.Type, Data: ev.Data}
	if len(ev.Payload) > 0 {
		n := len(ev.Payload)
		h.PayloadLength = &n
	}
	line, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("wyoming: marshal header: %w", err)
	}
	if _, err := c.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("wyoming: write header: %w", err)
	}
	if len(ev.Payload) > 0 {
		if _, err := c.w.Write(ev.Payload); err != nil {
			return fmt.Errorf("wyoming: write payload: %w", err)
		}
	}
	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("wyoming: flush: %w", err)
	}
	return nil
}

// Read receives the next event, including its payload when one is announced.
func (c *Conn) Read() (Event, error) {
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return Event{}, fmt.Errorf("wyoming: read header: %w", err)
	}
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return Event{}, fmt.Errorf("wyoming: parse header %q: %w", line, err)
	}
	ev := Event{Type: h.Type, Data: h.Data}
	if h.PayloadLength != nil && *h.PayloadLength > 0 {
		ev.Payload = make([]byte, *h.PayloadLength)
		if _, err := io.ReadFull(c.r, ev.Payload); err != nil {
			return Event{}, fmt.Errorf("wyoming: read payload: %w", err)
		}
	}
	return ev, nil
}
