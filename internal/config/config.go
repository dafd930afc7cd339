// Package config provides the configuration schema, loader, and provider
// registry for the vortex-edge voice assistant.
package config

import "time"

// LogLevel controls log verbosity for the assistant process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for vortex-edge.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Providers ProvidersConfig `yaml:"providers"`
	Identity  IdentityConfig  `yaml:"identity"`
}

// ServerConfig holds network and logging settings for the observability
// endpoint (health checks and metrics).
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// SessionConfig tunes the conversation loop.
type SessionConfig struct {
	// WakeWord is the phrase that starts a session (e.g., "hey vortex").
	WakeWord string `yaml:"wake_word"`

	// Language is the transcription language hint (e.g., "en", "de").
	// Empty lets the STT provider auto-detect.
	Language string `yaml:"language"`

	// ConversationID pins the backend conversation identifier. Empty means
	// a fresh identifier per session.
	ConversationID string `yaml:"conversation_id"`

	// FollowUpTimeout is how long the assistant keeps listening for a
	// follow-up after answering. Zero means the 12s default.
	FollowUpTimeout time.Duration `yaml:"follow_up_timeout"`

	// AllowInterruption enables barge-in: speaking over the assistant stops
	// playback and starts a new turn. Defaults to true when unset.
	AllowInterruption *bool `yaml:"allow_interruption"`

	// InterruptThreshold is the normalized energy level above which input
	// counts as the user speaking. Zero means the 0.02 default.
	InterruptThreshold float64 `yaml:"interrupt_threshold"`

	// Debug forwards a verbosity flag to backends that support it.
	Debug bool `yaml:"debug"`

	// AudioFeedback enables earcons on session state changes. Defaults to
	// true when unset.
	AudioFeedback *bool `yaml:"audio_feedback"`
}

// InterruptionAllowed resolves the AllowInterruption default.
func (s SessionConfig) InterruptionAllowed() bool {
	return s.AllowInterruption == nil || *s.AllowInterruption
}

// FeedbackEnabled resolves the AudioFeedback default.
func (s SessionConfig) FeedbackEnabled() bool {
	return s.AudioFeedback == nil || *s.AudioFeedback
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	Wake     ProviderEntry `yaml:"wake"`
	Recorder ProviderEntry `yaml:"recorder"`
	STT      ProviderEntry `yaml:"stt"`
	TTS      ProviderEntry `yaml:"tts"`
	Chat     ProviderEntry `yaml:"chat"`
	Audio    ProviderEntry `yaml:"audio"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whisper",
	// "piper", "openclaw").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o",
	// "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above. Values may be strings, numbers, booleans,
	// or nested maps.
	Options map[string]any `yaml:"options"`

	// Fallbacks lists additional providers of the same kind, tried in
	// order when this one fails or its circuit breaker is open. Supported
	// for the stt, tts, and chat slots; breaker tuning comes from this
	// entry's "breaker_max_failures" and "breaker_reset_timeout" options.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// StringOption returns the named entry from Options as a string, or def when
// absent or not a string.
func (e ProviderEntry) StringOption(key, def string) string {
	if v, ok := e.Options[key].(string); ok {
		return v
	}
	return def
}

// FloatOption returns the named entry from Options as a float64, or def when
// absent. YAML integers are accepted.
func (e ProviderEntry) FloatOption(key string, def float64) float64 {
	switch v := e.Options[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// BoolOption returns the named entry from Options as a bool, or def when
// absent or not a bool.
func (e ProviderEntry) BoolOption(key string, def bool) bool {
	if v, ok := e.Options[key].(bool); ok {
		return v
	}
	return def
}

// IdentityConfig locates the persisted device identity used for gateway
// pairing.
type IdentityConfig struct {
	// Dir is the directory holding the Ed25519 device keypair. Empty means
	// a default under the user config directory.
	Dir string `yaml:"dir"`

	// DeviceID overrides the generated device identifier.
	DeviceID string `yaml:"device_id"`
}
