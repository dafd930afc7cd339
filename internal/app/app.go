// Package app wires all vortex-edge subsystems into a running application.
//
// [New] connects the configured providers into the turn pipeline and, when a
// listen address is set, prepares an HTTP server exposing health probes and
// the Prometheus metrics endpoint. [App.Run] executes both until the
// assistant stops or the context ends.
//
// Telemetry providers are expected to be initialised by the caller (main)
// before New, so that [observe.DefaultMetrics] binds to the real meter
// provider. For testing, inject mock providers via the [Providers] struct.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vortexai/vortex-edge/internal/config"
	"github.com/vortexai/vortex-edge/internal/feedback"
	"github.com/vortexai/vortex-edge/internal/health"
	"github.com/vortexai/vortex-edge/internal/observe"
	"github.com/vortexai/vortex-edge/internal/pipeline"
	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/chat"
	"github.com/vortexai/vortex-edge/pkg/provider/recorder"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
	"github.com/vortexai/vortex-edge/pkg/provider/tts"
	"github.com/vortexai/vortex-edge/pkg/provider/wake"
)

// shutdownTimeout bounds the graceful HTTP shutdown once the assistant stops.
const shutdownTimeout = 5 * time.Second

// Providers holds one interface value per provider slot. Populated by main
// via the config registry.
type Providers struct {
	Wake     wake.Detector
	Recorder recorder.Recorder
	STT      stt.Provider
	TTS      tts.Speaker
	Chat     chat.Client

	// Audio is the hardware device pair, or nil when the assistant runs
	// without one (console mode). Without it there is no barge-in
	// monitoring, no earcon playback, and follow-up windows degrade to
	// plain waits.
	Audio audio.Device
}

// App owns the assistant loop and the observability HTTP server.
type App struct {
	cfg       *config.Config
	log       *slog.Logger
	assistant *pipeline.Assistant
	server    *http.Server

	ready atomic.Bool
}

// New connects the providers into an assistant pipeline and prepares the
// observability server.
func New(cfg *config.Config, providers *Providers, log *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config must not be nil")
	}
	if providers == nil {
		return nil, errors.New("app: providers must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	a := &App{cfg: cfg, log: log}
	metrics := observe.DefaultMetrics()

	// Audio-dependent extras degrade cleanly without a device.
	var input audio.Input
	var output audio.Output
	if providers.Audio != nil {
		input = providers.Audio
		output = providers.Audio
	}
	var sounds *feedback.Earcons
	if cfg.Session.FeedbackEnabled() && output != nil {
		sounds = feedback.NewEarcons(output, log)
	}

	// The chat backend's streaming capability is resolved exactly once, here.
	streamer, _ := providers.Chat.(chat.StreamingClient)
	if streamer != nil {
		log.Info("chat backend supports streaming, replies will be spoken sentence by sentence")
	}

	opts := []pipeline.Option{
		pipeline.WithFollowUpTimeout(cfg.Session.FollowUpTimeout),
		pipeline.WithLanguage(cfg.Session.Language),
		pipeline.WithSessionID(cfg.Session.ConversationID),
		pipeline.WithDebug(cfg.Session.Debug),
		pipeline.WithInterruptThreshold(cfg.Session.InterruptThreshold),
		pipeline.WithSounds(sounds),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(log),
	}
	if !cfg.Session.InterruptionAllowed() {
		opts = append(opts, pipeline.WithoutInterruption())
	}

	assistant, err := pipeline.New(pipeline.Deps{
		Wake:        providers.Wake,
		Recorder:    providers.Recorder,
		Transcriber: providers.STT,
		Chat:        providers.Chat,
		Stream:      streamer,
		Speaker:     providers.TTS,
		Input:       input,
	}, opts...)
	if err != nil {
		return nil, err
	}
	a.assistant = assistant

	if cfg.Server.ListenAddr != "" {
		a.server = &http.Server{
			Addr:              cfg.Server.ListenAddr,
			Handler:           observe.Middleware(metrics)(a.routes()),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return a, nil
}

// routes builds the observability mux: health probes and Prometheus metrics.
func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	health.New(health.Checker{
		Name: "assistant",
		Check: func(context.Context) error {
			if !a.ready.Load() {
				return errors.New("assistant loop not running")
			}
			return nil
		},
	}).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Run executes the assistant loop and, when configured, the observability
// server. It returns when the assistant stops or either part fails. The HTTP
// server is shut down gracefully before returning.
//
// The assistant can stop with a nil error (wake detector shutdown), so the
// internal context is cancelled explicitly rather than relying on
// [errgroup.WithContext], which only cancels on failure.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group

	if a.server != nil {
		g.Go(func() error {
			defer cancel()
			a.log.Info("observability server listening", "addr", a.server.Addr, "tls", a.cfg.Server.TLS != nil)
			var err error
			if tls := a.cfg.Server.TLS; tls != nil {
				err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
			} else {
				err = a.server.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		a.ready.Store(true)
		defer a.ready.Store(false)
		return a.assistant.Run(ctx)
	})

	return g.Wait()
}
