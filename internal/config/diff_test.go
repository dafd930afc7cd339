package config_test

import (
	"testing"
	"time"

	"github.com/vortexai/vortex-edge/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Session: config.SessionConfig{
			WakeWord:        "hey vortex",
			FollowUpTimeout: 12 * time.Second,
		},
		Providers: config.ProvidersConfig{
			Chat: config.ProviderEntry{Name: "rest", BaseURL: "http://localhost:8100"},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	if d := config.Diff(old, new); !d.Empty() {
		t.Errorf("diff of identical configs = %+v, want empty", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v, want log level change to debug", d)
	}
	if d.SessionChanged || d.ProvidersChanged {
		t.Errorf("diff = %+v, want only the log level flagged", d)
	}
}

func TestDiff_SessionTuning(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Session.FollowUpTimeout = 5 * time.Second

	d := config.Diff(old, new)
	if !d.SessionChanged {
		t.Fatalf("diff = %+v, want session change", d)
	}
	if d.NewSession.FollowUpTimeout != 5*time.Second {
		t.Errorf("NewSession.FollowUpTimeout = %v", d.NewSession.FollowUpTimeout)
	}
}

func TestDiff_ProviderSwapNeedsRestart(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Providers.STT = config.ProviderEntry{Name: "whisper", BaseURL: "http://localhost:8090"}

	d := config.Diff(old, new)
	if !d.ProvidersChanged {
		t.Errorf("diff = %+v, want providers flagged", d)
	}
	if d.SessionChanged || d.LogLevelChanged {
		t.Errorf("diff = %+v, want only providers flagged", d)
	}
}
