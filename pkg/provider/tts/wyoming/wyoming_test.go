package wyoming

import (
	"context"
	"net"
	"testing"

	proto "github.com/vortexai/vortex-edge/internal/wyoming"
	"github.com/vortexai/vortex-edge/pkg/audio/mock"
)

// fakeDaemon accepts one connection and answers a synthesize event with two
// audio chunks at 16 kHz.
func fakeDaemon(t *testing.T) (addr string, gotText *string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	text := new(string)
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		conn := proto.NewConn(raw)
		defer conn.Close()
		ev, err := conn.Read()
		if err != nil || ev.Type != proto.TypeSynthesize {
			return
		}
		*text, _ = ev.Data["text"].(string)
		format := proto.AudioFormat(16000, 1)
		conn.Write(proto.Event{Type: proto.TypeAudioStart, Data: format})
		conn.Write(proto.Event{Type: proto.TypeAudioChunk, Data: format, Payload: []byte{1, 2}})
		conn.Write(proto.Event{Type: proto.TypeAudioChunk, Data: format, Payload: []byte{3, 4}})
		conn.Write(proto.Event{Type: proto.TypeAudioStop, Data: format})
	}()
	return ln.Addr().String(), text
}

func TestSpeak(t *testing.T) {
	t.Parallel()

	addr, gotText := fakeDaemon(t)
	out := &mock.Output{}
	s, err := New(addr, out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Speak(context.Background(), "good evening"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if *gotText != "good evening" {
		t.Errorf("daemon saw text %q", *gotText)
	}
	if len(out.PlayCalls) != 1 {
		t.Fatalf("Play called %d times, want 1", len(out.PlayCalls))
	}
	call := out.PlayCalls[0]
	if call.SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", call.SampleRate)
	}
	if string(call.PCM) != "\x01\x02\x03\x04" {
		t.Errorf("pcm = %v, want assembled chunks", call.PCM)
	}
}

func TestSpeakDaemonError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		conn := proto.NewConn(raw)
		defer conn.Close()
		conn.Read()
		conn.Write(proto.Event{Type: proto.TypeError, Data: map[string]any{"text": "no voice"}})
	}()

	s, _ := New(ln.Addr().String(), &mock.Output{})
	if err := s.Speak(context.Background(), "hi"); err == nil {
		t.Fatal("expected error from daemon error event")
	}
}

func TestSpeakBlankText(t *testing.T) {
	t.Parallel()
	s, _ := New("127.0.0.1:1", &mock.Output{})
	if err := s.Speak(context.Background(), " "); err != nil {
		t.Fatalf("Speak: %v", err)
	}
}
