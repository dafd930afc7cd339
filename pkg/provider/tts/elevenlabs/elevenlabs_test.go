package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vortexai/vortex-edge/pkg/audio/mock"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()
	out := &mock.Output{}
	if _, err := New("", "voice", out); err == nil {
		t.Error("expected error for empty apiKey")
	}
	if _, err := New("key", "", out); err == nil {
		t.Error("expected error for empty voiceID")
	}
	if _, err := New("key", "voice", nil); err == nil {
		t.Error("expected error for nil output")
	}
}

func TestSpeak(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/v1/text-to-speech/rachel" {
			t.Errorf("path = %q", got)
		}
		if got := r.URL.Query().Get("output_format"); got != "pcm_16000" {
			t.Errorf("output_format = %q", got)
		}
		if got := r.Header.Get("xi-api-key"); got != "secret" {
			t.Errorf("xi-api-key = %q", got)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "hello" {
			t.Errorf("text = %v", body["text"])
		}
		w.Write([]byte{1, 2, 3, 4})
	}))
	defer srv.Close()

	out := &mock.Output{}
	s, err := New("secret", "rachel", out, WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	if len(out.PlayCalls) != 1 {
		t.Fatalf("Play called %d times, want 1", len(out.PlayCalls))
	}
	if out.PlayCalls[0].SampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", out.PlayCalls[0].SampleRate)
	}
}

func TestSpeakAPIError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s, _ := New("secret", "rachel", &mock.Output{}, WithEndpoint(srv.URL))
	if err := s.Speak(context.Background(), "hi"); err == nil {
		t.Fatal("expected error for HTTP 429")
	}
}
