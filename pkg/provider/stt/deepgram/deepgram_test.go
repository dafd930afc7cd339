package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vortexai/vortex-edge/pkg/audio"
)

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty apiKey")
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("model"); got != "nova-3" {
			t.Errorf("model = %q, want nova-3", got)
		}
		if got := r.URL.Query().Get("language"); got != "en" {
			t.Errorf("language = %q, want en", got)
		}
		w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"hello"}]}]}}`))
	}))
	defer srv.Close()

	p, err := New("secret", WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	utt := audio.Utterance{PCM: make([]byte, 3200), SampleRate: 16000, Channels: 1}
	text, err := p.Transcribe(context.Background(), utt, "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello" {
		t.Errorf("text = %q, want hello", text)
	}
}

func TestTranscribeNoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results":{"channels":[]}}`))
	}))
	defer srv.Close()

	p, _ := New("secret", WithEndpoint(srv.URL))
	utt := audio.Utterance{PCM: make([]byte, 100), SampleRate: 16000, Channels: 1}
	text, err := p.Transcribe(context.Background(), utt, "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestTranscribeHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, _ := New("wrong", WithEndpoint(srv.URL))
	utt := audio.Utterance{PCM: make([]byte, 100), SampleRate: 16000, Channels: 1}
	if _, err := p.Transcribe(context.Background(), utt, ""); err == nil {
		t.Fatal("expected error for HTTP 401")
	}
}
