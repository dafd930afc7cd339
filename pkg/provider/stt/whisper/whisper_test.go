package whisper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

func testUtterance() audio.Utterance {
	pcm := make([]byte, 3200)
	for i := 0; i < len(pcm); i += 2 {
		pcm[i] = 0x00
		pcm[i+1] = 0x10
	}
	return audio.Utterance{PCM: pcm, SampleRate: 16000, Channels: 1}
}

func TestNewRequiresServerURL(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty serverURL")
	}
}

func TestTranscribeSendsMultipart(t *testing.T) {
	t.Parallel()

	var gotLanguage, gotModel string
	var gotWAV []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q, want /inference", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		gotWAV, _ = io.ReadAll(f)
		json.NewEncoder(w).Encode(map[string]string{"text": "  hello world \n"})
	}))
	defer srv.Close()

	p, err := New(srv.URL, WithModel("base.en"), WithLanguage("de"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text, err := p.Transcribe(context.Background(), testUtterance(), "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if gotLanguage != "de" {
		t.Errorf("language field = %q, want %q", gotLanguage, "de")
	}
	if gotModel != "base.en" {
		t.Errorf("model field = %q, want %q", gotModel, "base.en")
	}
	if len(gotWAV) < 44 || string(gotWAV[0:4]) != "RIFF" {
		t.Errorf("uploaded payload is not a wav file (%d bytes)", len(gotWAV))
	}
}

func TestTranscribeLanguageArgumentWins(t *testing.T) {
	t.Parallel()

	var gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		gotLanguage = r.FormValue("language")
		json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer srv.Close()

	p, _ := New(srv.URL, WithLanguage("de"))
	if _, err := p.Transcribe(context.Background(), testUtterance(), "fr"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotLanguage != "fr" {
		t.Errorf("language field = %q, want %q", gotLanguage, "fr")
	}
}

func TestTranscribeEmptyUtterance(t *testing.T) {
	t.Parallel()
	p, _ := New("http://unreachable.invalid")
	text, err := p.Transcribe(context.Background(), audio.Utterance{}, "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestTranscribeServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := New(srv.URL)
	if _, err := p.Transcribe(context.Background(), testUtterance(), ""); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestPCMToFloat32Mono(t *testing.T) {
	t.Parallel()

	// Two stereo frames: (16384, -16384) and (0, 0).
	pcm := []byte{0x00, 0x40, 0x00, 0xC0, 0x00, 0x00, 0x00, 0x00}
	got := pcmToFloat32Mono(pcm, 2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] != 0 || got[1] != 0 {
		t.Errorf("samples = %v, want [0 0]", got)
	}

	mono := pcmToFloat32Mono([]byte{0x00, 0x40}, 1)
	if len(mono) != 1 || mono[0] != 0.5 {
		t.Errorf("mono samples = %v, want [0.5]", mono)
	}
}
