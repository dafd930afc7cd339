package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"wake":     {"console", "energy", "phonetic"},
	"recorder": {"console", "energy"},
	"stt":      {"echo", "whisper", "whisper-native", "wyoming", "deepgram"},
	"tts":      {"console", "piper", "remote", "wyoming", "coqui", "elevenlabs"},
	"chat":     {"rest", "openclaw", "openclaw-http", "llm"},
	"audio":    {"portaudio", "none"},
}

// Defaults applied by [applyDefaults] when the corresponding field is unset.
const (
	DefaultWakeWord           = "hey vortex"
	DefaultFollowUpTimeout    = 12 * time.Second
	DefaultInterruptThreshold = 0.02
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields with their documented defaults. The
// provider defaults give a working console pipeline out of the box.
func applyDefaults(cfg *Config) {
	if cfg.Session.WakeWord == "" {
		cfg.Session.WakeWord = DefaultWakeWord
	}
	if cfg.Session.FollowUpTimeout == 0 {
		cfg.Session.FollowUpTimeout = DefaultFollowUpTimeout
	}
	if cfg.Session.InterruptThreshold == 0 {
		cfg.Session.InterruptThreshold = DefaultInterruptThreshold
	}
	if cfg.Providers.Wake.Name == "" {
		cfg.Providers.Wake.Name = "console"
	}
	if cfg.Providers.Recorder.Name == "" {
		cfg.Providers.Recorder.Name = "console"
	}
	if cfg.Providers.STT.Name == "" {
		cfg.Providers.STT.Name = "echo"
	}
	if cfg.Providers.TTS.Name == "" {
		cfg.Providers.TTS.Name = "console"
	}
	if cfg.Providers.Audio.Name == "" {
		cfg.Providers.Audio.Name = "none"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	if cfg.Session.FollowUpTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.follow_up_timeout %v must not be negative", cfg.Session.FollowUpTimeout))
	}
	if cfg.Session.InterruptThreshold < 0 || cfg.Session.InterruptThreshold >= 1 {
		errs = append(errs, fmt.Errorf("session.interrupt_threshold %.3f is out of range [0, 1)", cfg.Session.InterruptThreshold))
	}

	validateProviderName("wake", cfg.Providers.Wake.Name)
	validateProviderName("recorder", cfg.Providers.Recorder.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("chat", cfg.Providers.Chat.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)

	if cfg.Providers.Chat.Name == "" {
		errs = append(errs, errors.New("providers.chat.name is required; the assistant cannot answer without a conversation backend"))
	}

	// Hardware-backed providers need a capture device.
	if cfg.Providers.Audio.Name == "none" {
		if cfg.Providers.Wake.Name == "energy" || cfg.Providers.Wake.Name == "phonetic" {
			errs = append(errs, fmt.Errorf("providers.wake %q requires an audio device but providers.audio is %q", cfg.Providers.Wake.Name, cfg.Providers.Audio.Name))
		}
		if cfg.Providers.Recorder.Name == "energy" {
			errs = append(errs, fmt.Errorf("providers.recorder %q requires an audio device but providers.audio is %q", cfg.Providers.Recorder.Name, cfg.Providers.Audio.Name))
		}
	}

	// The gateway needs something to authenticate with.
	if cfg.Providers.Chat.Name == "openclaw" &&
		cfg.Providers.Chat.APIKey == "" &&
		cfg.Providers.Chat.StringOption("password", "") == "" {
		slog.Warn("providers.chat (openclaw) has neither api_key nor a password option; the gateway may reject the connection")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
