package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func passing(_ context.Context) error { return nil }

func failing(msg string) func(context.Context) error {
	return func(_ context.Context) error { return errors.New(msg) }
}

func decodeReport(t *testing.T, rec *httptest.ResponseRecorder) report {
	t.Helper()
	var body report
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return body
}

// ─── Liveness ─────────────────────────────────────────────────────────────────

func TestHealthzAlwaysOK(t *testing.T) {
	h := New()

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if body := decodeReport(t, rec); body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

// ─── Readiness ────────────────────────────────────────────────────────────────

func TestReadyzAllProbesPass(t *testing.T) {
	h := New(
		Checker{Name: "assistant", Check: passing},
		Checker{Name: "chat-backend", Check: passing},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decodeReport(t, rec)
	if body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
	for _, name := range []string{"assistant", "chat-backend"} {
		if body.Checks[name] != "ok" {
			t.Errorf("%s probe = %q, want %q", name, body.Checks[name], "ok")
		}
	}
}

func TestReadyzOneProbeFails(t *testing.T) {
	h := New(
		Checker{Name: "chat-backend", Check: failing("connection refused")},
		Checker{Name: "assistant", Check: passing},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	body := decodeReport(t, rec)
	if body.Status != "fail" {
		t.Errorf("status = %q, want %q", body.Status, "fail")
	}
	if body.Checks["chat-backend"] != "fail: connection refused" {
		t.Errorf("chat-backend probe = %q", body.Checks["chat-backend"])
	}
	if body.Checks["assistant"] != "ok" {
		t.Errorf("assistant probe = %q, want %q", body.Checks["assistant"], "ok")
	}
}

func TestReadyzEveryProbeFails(t *testing.T) {
	h := New(
		Checker{Name: "stt", Check: failing("timeout")},
		Checker{Name: "tts", Check: failing("no voice configured")},
	)

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	body := decodeReport(t, rec)
	if body.Checks["stt"] != "fail: timeout" {
		t.Errorf("stt probe = %q", body.Checks["stt"])
	}
	if body.Checks["tts"] != "fail: no voice configured" {
		t.Errorf("tts probe = %q", body.Checks["tts"])
	}
}

func TestReadyzWithoutProbes(t *testing.T) {
	h := New()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decodeReport(t, rec); body.Status != "ok" {
		t.Errorf("status = %q, want %q", body.Status, "ok")
	}
}

func TestReadyzRespectsContextCancellation(t *testing.T) {
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

// ─── Routing ──────────────────────────────────────────────────────────────────

func TestRegisterMountsBothRoutes(t *testing.T) {
	h := New(Checker{Name: "assistant", Check: passing})

	mux := http.NewServeMux()
	h.Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}
