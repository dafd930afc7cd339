// Command vortex-edge is the main entry point for the Vortex edge voice
// assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/spf13/afero"

	"github.com/vortexai/vortex-edge/internal/app"
	"github.com/vortexai/vortex-edge/internal/config"
	"github.com/vortexai/vortex-edge/internal/identity"
	"github.com/vortexai/vortex-edge/internal/observe"
	"github.com/vortexai/vortex-edge/internal/resilience"
	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/audio/portaudio"
	"github.com/vortexai/vortex-edge/pkg/provider/chat"
	"github.com/vortexai/vortex-edge/pkg/provider/chat/llmdirect"
	"github.com/vortexai/vortex-edge/pkg/provider/chat/openclaw"
	"github.com/vortexai/vortex-edge/pkg/provider/chat/rest"
	"github.com/vortexai/vortex-edge/pkg/provider/recorder"
	recconsole "github.com/vortexai/vortex-edge/pkg/provider/recorder/console"
	recenergy "github.com/vortexai/vortex-edge/pkg/provider/recorder/energy"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
	"github.com/vortexai/vortex-edge/pkg/provider/stt/deepgram"
	"github.com/vortexai/vortex-edge/pkg/provider/stt/echo"
	"github.com/vortexai/vortex-edge/pkg/provider/stt/whisper"
	sttwyoming "github.com/vortexai/vortex-edge/pkg/provider/stt/wyoming"
	"github.com/vortexai/vortex-edge/pkg/provider/tts"
	ttsconsole "github.com/vortexai/vortex-edge/pkg/provider/tts/console"
	"github.com/vortexai/vortex-edge/pkg/provider/tts/coqui"
	"github.com/vortexai/vortex-edge/pkg/provider/tts/elevenlabs"
	"github.com/vortexai/vortex-edge/pkg/provider/tts/piper"
	"github.com/vortexai/vortex-edge/pkg/provider/tts/remote"
	ttswyoming "github.com/vortexai/vortex-edge/pkg/provider/tts/wyoming"
	"github.com/vortexai/vortex-edge/pkg/provider/wake"
	wakeconsole "github.com/vortexai/vortex-edge/pkg/provider/wake/console"
	wakeenergy "github.com/vortexai/vortex-edge/pkg/provider/wake/energy"
	"github.com/vortexai/vortex-edge/pkg/provider/wake/phonetic"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vortex-edge: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vortex-edge: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("vortex-edge starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Config watcher ────────────────────────────────────────────────────────
	// Log level changes apply live; anything else needs a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, updated *config.Config) {
		diff := config.Diff(old, updated)
		if diff.LogLevelChanged {
			logLevel.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level updated", "level", diff.NewLogLevel)
		}
		if diff.SessionChanged || diff.ProvidersChanged {
			slog.Warn("session or provider config changed, restart to apply")
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(cfg, providers, logger)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("assistant ready, press Ctrl+C to shut down", "wake_word", cfg.Session.WakeWord)

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildProviders instantiates the providers named in cfg, in dependency
// order. The audio device comes first because recorders, wake detectors,
// earcons and speakers all hang off it; the phonetic wake detector
// additionally reuses the recorder and transcriber built before it.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	reg := config.NewRegistry()
	ps := &app.Providers{}

	// ── Audio device ──────────────────────────────────────────────────────────
	reg.RegisterAudio("portaudio", func(config.ProviderEntry) (audio.Device, error) {
		return portaudio.New()
	})
	if name := cfg.Providers.Audio.Name; name != "" && name != "none" {
		dev, err := reg.CreateAudio(cfg.Providers.Audio)
		if err != nil {
			return nil, fmt.Errorf("create audio device %q: %w", name, err)
		}
		ps.Audio = dev
		slog.Info("provider created", "kind", "audio", "name", name)
	}
	var input audio.Input
	var output audio.Output
	if ps.Audio != nil {
		input = ps.Audio
		output = ps.Audio
	}

	// ── STT ───────────────────────────────────────────────────────────────────
	registerSTTProviders(reg)
	sttProv, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	ps.STT = sttProv
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)
	// Wrapped before the wake detectors are registered so the phonetic
	// detector transcribes through the failover group too.
	ps.STT, err = wrapSTT(reg, cfg.Providers.STT, ps.STT)
	if err != nil {
		return nil, err
	}

	// ── TTS ───────────────────────────────────────────────────────────────────
	registerTTSProviders(reg, output)
	ps.TTS, err = reg.CreateTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	slog.Info("provider created", "kind", "tts", "name", cfg.Providers.TTS.Name)
	ps.TTS, err = wrapTTS(reg, cfg.Providers.TTS, ps.TTS)
	if err != nil {
		return nil, err
	}

	// ── Recorder ──────────────────────────────────────────────────────────────
	registerRecorderProviders(reg, input)
	ps.Recorder, err = reg.CreateRecorder(cfg.Providers.Recorder)
	if err != nil {
		return nil, fmt.Errorf("create recorder %q: %w", cfg.Providers.Recorder.Name, err)
	}
	slog.Info("provider created", "kind", "recorder", "name", cfg.Providers.Recorder.Name)

	// ── Wake detector ─────────────────────────────────────────────────────────
	registerWakeProviders(reg, cfg, input, ps.Recorder, ps.STT)
	ps.Wake, err = reg.CreateWake(cfg.Providers.Wake)
	if err != nil {
		return nil, fmt.Errorf("create wake detector %q: %w", cfg.Providers.Wake.Name, err)
	}
	slog.Info("provider created", "kind", "wake", "name", cfg.Providers.Wake.Name)

	// ── Chat backend ──────────────────────────────────────────────────────────
	registerChatProviders(reg, cfg.Identity)
	ps.Chat, err = reg.CreateChat(cfg.Providers.Chat)
	if err != nil {
		return nil, fmt.Errorf("create chat backend %q: %w", cfg.Providers.Chat.Name, err)
	}
	slog.Info("provider created", "kind", "chat", "name", cfg.Providers.Chat.Name)
	ps.Chat, err = wrapChat(reg, cfg.Providers.Chat, ps.Chat)
	if err != nil {
		return nil, err
	}

	return ps, nil
}

// ── Failover wrapping ─────────────────────────────────────────────────────────

// wrapSTT wraps the primary transcriber in a failover group when the config
// entry lists fallback providers. Without fallbacks the primary is returned
// untouched, so single-provider setups carry no breaker.
func wrapSTT(reg *config.Registry, entry config.ProviderEntry, primary stt.Provider) (stt.Provider, error) {
	if len(entry.Fallbacks) == 0 {
		return primary, nil
	}
	fcfg, err := fallbackConfig(entry)
	if err != nil {
		return nil, err
	}
	group := resilience.NewSTTFallback(primary, entry.Name, fcfg)
	for _, fb := range entry.Fallbacks {
		p, err := reg.CreateSTT(fb)
		if err != nil {
			return nil, fmt.Errorf("create stt fallback %q: %w", fb.Name, err)
		}
		group.AddFallback(fb.Name, p)
	}
	slog.Info("failover enabled", "kind", "stt", "primary", entry.Name, "fallbacks", len(entry.Fallbacks))
	return group, nil
}

func wrapTTS(reg *config.Registry, entry config.ProviderEntry, primary tts.Speaker) (tts.Speaker, error) {
	if len(entry.Fallbacks) == 0 {
		return primary, nil
	}
	fcfg, err := fallbackConfig(entry)
	if err != nil {
		return nil, err
	}
	group := resilience.NewTTSFallback(primary, entry.Name, fcfg)
	for _, fb := range entry.Fallbacks {
		s, err := reg.CreateTTS(fb)
		if err != nil {
			return nil, fmt.Errorf("create tts fallback %q: %w", fb.Name, err)
		}
		group.AddFallback(fb.Name, s)
	}
	slog.Info("failover enabled", "kind", "tts", "primary", entry.Name, "fallbacks", len(entry.Fallbacks))
	return group, nil
}

// wrapChat trades streaming for failover: the wrapped client is not a
// [chat.StreamingClient], so replies are spoken whole-reply.
func wrapChat(reg *config.Registry, entry config.ProviderEntry, primary chat.Client) (chat.Client, error) {
	if len(entry.Fallbacks) == 0 {
		return primary, nil
	}
	fcfg, err := fallbackConfig(entry)
	if err != nil {
		return nil, err
	}
	group := resilience.NewChatFallback(primary, entry.Name, fcfg)
	for _, fb := range entry.Fallbacks {
		c, err := reg.CreateChat(fb)
		if err != nil {
			return nil, fmt.Errorf("create chat fallback %q: %w", fb.Name, err)
		}
		group.AddFallback(fb.Name, c)
	}
	slog.Info("failover enabled", "kind", "chat", "primary", entry.Name, "fallbacks", len(entry.Fallbacks))
	return group, nil
}

// fallbackConfig derives breaker tuning for a provider's failover group from
// the primary entry's options. Unset options keep the breaker defaults.
func fallbackConfig(entry config.ProviderEntry) (resilience.FallbackConfig, error) {
	fcfg := resilience.FallbackConfig{
		Breaker: resilience.BreakerConfig{
			MaxFailures: int(entry.FloatOption("breaker_max_failures", 0)),
		},
	}
	d, err := optDuration(entry, "breaker_reset_timeout")
	if err != nil {
		return resilience.FallbackConfig{}, err
	}
	fcfg.Breaker.ResetTimeout = d
	return fcfg, nil
}

func registerSTTProviders(reg *config.Registry) {
	reg.RegisterSTT("echo", func(config.ProviderEntry) (stt.Provider, error) {
		return echo.New(), nil
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.StringOption("model_path", "")
		}
		var opts []whisper.NativeOption
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	reg.RegisterSTT("wyoming", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []sttwyoming.Option
		d, err := optDuration(entry, "timeout")
		if err != nil {
			return nil, err
		}
		if d > 0 {
			opts = append(opts, sttwyoming.WithTimeout(d))
		}
		return sttwyoming.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if endpoint := entry.BaseURL; endpoint != "" {
			opts = append(opts, deepgram.WithEndpoint(endpoint))
		}
		return deepgram.New(entry.APIKey, opts...)
	})
}

func registerTTSProviders(reg *config.Registry, out audio.Output) {
	reg.RegisterTTS("console", func(config.ProviderEntry) (tts.Speaker, error) {
		return ttsconsole.New(), nil
	})

	reg.RegisterTTS("piper", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []piper.Option
		if bin := entry.StringOption("binary", ""); bin != "" {
			opts = append(opts, piper.WithBinary(bin))
		}
		if rate := int(entry.FloatOption("sample_rate", 0)); rate > 0 {
			opts = append(opts, piper.WithSampleRate(rate))
		}
		return piper.New(entry.Model, out, opts...)
	})

	reg.RegisterTTS("remote", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []remote.Option
		if voice := entry.StringOption("voice", ""); voice != "" {
			opts = append(opts, remote.WithVoice(voice))
		}
		return remote.New(entry.BaseURL, out, opts...)
	})

	reg.RegisterTTS("wyoming", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []ttswyoming.Option
		if voice := entry.StringOption("voice", ""); voice != "" {
			opts = append(opts, ttswyoming.WithVoice(voice))
		}
		d, err := optDuration(entry, "timeout")
		if err != nil {
			return nil, err
		}
		if d > 0 {
			opts = append(opts, ttswyoming.WithTimeout(d))
		}
		return ttswyoming.New(entry.BaseURL, out, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []coqui.Option
		if id := entry.StringOption("speaker_id", ""); id != "" {
			opts = append(opts, coqui.WithSpeakerID(id))
		}
		if id := entry.StringOption("language_id", ""); id != "" {
			opts = append(opts, coqui.WithLanguageID(id))
		}
		return coqui.New(entry.BaseURL, out, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Speaker, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		return elevenlabs.New(entry.APIKey, entry.StringOption("voice_id", ""), out, opts...)
	})
}

func registerRecorderProviders(reg *config.Registry, input audio.Input) {
	reg.RegisterRecorder("console", func(config.ProviderEntry) (recorder.Recorder, error) {
		return recconsole.New(), nil
	})

	reg.RegisterRecorder("energy", func(entry config.ProviderEntry) (recorder.Recorder, error) {
		var opts []recenergy.Option
		if mode := entry.StringOption("vad_mode", ""); mode != "" {
			opts = append(opts, recenergy.WithVADMode(recenergy.VADMode(mode)))
		}
		if threshold := entry.FloatOption("threshold", 0); threshold > 0 {
			opts = append(opts, recenergy.WithThreshold(threshold))
		}
		for key, with := range map[string]func(time.Duration) recenergy.Option{
			"silence_duration":  recenergy.WithSilenceDuration,
			"no_speech_timeout": recenergy.WithNoSpeechTimeout,
			"max_duration":      recenergy.WithMaxDuration,
		} {
			d, err := optDuration(entry, key)
			if err != nil {
				return nil, err
			}
			if d > 0 {
				opts = append(opts, with(d))
			}
		}
		if dir := entry.StringOption("capture_dir", ""); dir != "" {
			opts = append(opts, recenergy.WithCaptureArchive(afero.NewOsFs(), dir))
		}
		return recenergy.New(input, opts...)
	})
}

func registerWakeProviders(reg *config.Registry, cfg *config.Config, input audio.Input, rec recorder.Recorder, transcriber stt.Provider) {
	wakeWord := cfg.Session.WakeWord

	reg.RegisterWake("console", func(config.ProviderEntry) (wake.Detector, error) {
		return wakeconsole.New(wakeWord), nil
	})

	reg.RegisterWake("energy", func(entry config.ProviderEntry) (wake.Detector, error) {
		var opts []wakeenergy.Option
		if threshold := entry.FloatOption("threshold", 0); threshold > 0 {
			opts = append(opts, wakeenergy.WithThreshold(threshold))
		}
		if frames := int(entry.FloatOption("run_frames", 0)); frames > 0 {
			opts = append(opts, wakeenergy.WithRunFrames(frames))
		}
		return wakeenergy.New(input, opts...)
	})

	reg.RegisterWake("phonetic", func(entry config.ProviderEntry) (wake.Detector, error) {
		var opts []phonetic.Option
		if threshold := entry.FloatOption("phonetic_threshold", 0); threshold > 0 {
			opts = append(opts, phonetic.WithPhoneticThreshold(threshold))
		}
		if threshold := entry.FloatOption("fuzzy_threshold", 0); threshold > 0 {
			opts = append(opts, phonetic.WithFuzzyThreshold(threshold))
		}
		if cfg.Session.Language != "" {
			opts = append(opts, phonetic.WithLanguage(cfg.Session.Language))
		}
		return phonetic.New(wakeWord, rec, transcriber, opts...)
	})
}

func registerChatProviders(reg *config.Registry, idCfg config.IdentityConfig) {
	reg.RegisterChat("rest", func(entry config.ProviderEntry) (chat.Client, error) {
		var opts []rest.Option
		if entry.APIKey != "" {
			opts = append(opts, rest.WithAuthToken(entry.APIKey))
		}
		return rest.New(entry.BaseURL, opts...)
	})

	reg.RegisterChat("openclaw", func(entry config.ProviderEntry) (chat.Client, error) {
		id, err := identity.Load(identityPath(idCfg))
		if err != nil {
			return nil, err
		}
		deviceID := idCfg.DeviceID
		if deviceID == "" {
			deviceID = defaultDeviceID()
		}
		var opts []openclaw.GatewayOption
		if entry.APIKey != "" {
			opts = append(opts, openclaw.WithToken(entry.APIKey))
		}
		if pw := entry.StringOption("password", ""); pw != "" {
			opts = append(opts, openclaw.WithPassword(pw))
		}
		if key := entry.StringOption("session_key", ""); key != "" {
			opts = append(opts, openclaw.WithSessionKey(key))
		}
		d, err := optDuration(entry, "timeout")
		if err != nil {
			return nil, err
		}
		if d > 0 {
			opts = append(opts, openclaw.WithGatewayTimeout(d))
		}
		return openclaw.NewGateway(entry.BaseURL, deviceID, id, opts...)
	})

	reg.RegisterChat("openclaw-http", func(entry config.ProviderEntry) (chat.Client, error) {
		var opts []openclaw.HTTPOption
		if entry.Model != "" {
			opts = append(opts, openclaw.WithModel(entry.Model))
		}
		if prompt := entry.StringOption("system_prompt", ""); prompt != "" {
			opts = append(opts, openclaw.WithSystemPrompt(prompt))
		}
		return openclaw.NewHTTP(entry.BaseURL, entry.APIKey, opts...)
	})

	reg.RegisterChat("llm", func(entry config.ProviderEntry) (chat.Client, error) {
		var backendOpts []anyllmlib.Option
		if entry.APIKey != "" {
			backendOpts = append(backendOpts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			backendOpts = append(backendOpts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		var opts []llmdirect.Option
		if prompt := entry.StringOption("system_prompt", ""); prompt != "" {
			opts = append(opts, llmdirect.WithSystemPrompt(prompt))
		}
		if n := int(entry.FloatOption("max_history", 0)); n > 0 {
			opts = append(opts, llmdirect.WithMaxHistory(n))
		}
		return llmdirect.New(entry.StringOption("provider", "openai"), entry.Model, backendOpts, opts...)
	})
}

// identityPath resolves the device key file location, defaulting to the
// user config directory.
func identityPath(idCfg config.IdentityConfig) string {
	dir := idCfg.Dir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		dir = filepath.Join(base, "vortex-edge")
	}
	return filepath.Join(dir, "identity.json")
}

// defaultDeviceID derives a stable device identifier from the hostname.
func defaultDeviceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "vortex-edge"
	}
	return "vortex-edge-" + host
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        vortex-edge startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Wake", cfg.Providers.Wake.Name, cfg.Session.WakeWord)
	printProvider("Recorder", cfg.Providers.Recorder.Name, "")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Chat", cfg.Providers.Chat.Name, cfg.Providers.Chat.Model)
	printProvider("Audio", cfg.Providers.Audio.Name, "")
	if cfg.Session.InterruptionAllowed() {
		fmt.Printf("║  Barge-in        : %-19s ║\n", "enabled")
	} else {
		fmt.Printf("║  Barge-in        : %-19s ║\n", "disabled")
	}
	fmt.Printf("║  Follow-up       : %-19s ║\n", cfg.Session.FollowUpTimeout)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, detail string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if detail != "" {
		value = name + " / " + detail
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optDuration parses a duration-valued provider option such as "30s".
// Returns zero when the key is absent.
func optDuration(entry config.ProviderEntry, key string) (time.Duration, error) {
	raw := entry.StringOption(key, "")
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("option %q: %w", key, err)
	}
	return d, nil
}
