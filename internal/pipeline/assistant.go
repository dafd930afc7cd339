package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vortexai/vortex-edge/internal/feedback"
	"github.com/vortexai/vortex-edge/internal/observe"
	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/chat"
	"github.com/vortexai/vortex-edge/pkg/provider/recorder"
	"github.com/vortexai/vortex-edge/pkg/provider/stt"
	"github.com/vortexai/vortex-edge/pkg/provider/tts"
	"github.com/vortexai/vortex-edge/pkg/provider/wake"
)

const (
	defaultFollowUpTimeout    = 12 * time.Second
	defaultInterruptThreshold = 0.02
)

// ErrTranscribe wraps speech-to-text failures. They abort the current
// session; the assistant falls back to waiting for the wake signal.
var ErrTranscribe = errors.New("pipeline: transcription failed")

// Deps are the collaborators the assistant drives. Wake, Recorder,
// Transcriber, Chat, and Speaker are required. Stream is the optional
// streaming capability of the same chat backend: resolve it once at wiring
// time (a type assertion in main, not a runtime check per call) and set it
// here when available. Input is the shared audio input used for barge-in
// monitoring and follow-up listening; nil degrades both.
type Deps struct {
	Wake        wake.Detector
	Recorder    recorder.Recorder
	Transcriber stt.Provider
	Chat        chat.Client
	Stream      chat.StreamingClient
	Speaker     tts.Speaker
	Input       audio.Input
}

// Option is a functional option for configuring an Assistant.
type Option func(*Assistant)

// WithFollowUpTimeout sets how long the assistant keeps listening for a
// follow-up after a turn before requiring the wake signal again.
// Default: 12s.
func WithFollowUpTimeout(d time.Duration) Option {
	return func(a *Assistant) { a.followUpTimeout = d }
}

// WithLanguage sets the language hint passed to the transcriber.
func WithLanguage(language string) Option {
	return func(a *Assistant) { a.language = language }
}

// WithSessionID pre-assigns the conversation identifier used for every
// session instead of generating a random one per wake cycle.
func WithSessionID(id string) Option {
	return func(a *Assistant) { a.presetSessionID = id }
}

// WithDebug forwards the debug flag on every backend request.
func WithDebug(debug bool) Option {
	return func(a *Assistant) { a.debug = debug }
}

// WithoutInterruption disables barge-in monitoring; synthesized speech
// always plays to completion.
func WithoutInterruption() Option {
	return func(a *Assistant) { a.allowInterruption = false }
}

// WithInterruptThreshold sets the normalized energy level above which input
// counts as the user speaking, for both barge-in and follow-up detection.
// Default: 0.02.
func WithInterruptThreshold(threshold float64) Option {
	return func(a *Assistant) { a.interruptThreshold = threshold }
}

// WithSounds sets the earcon player for state-change cues.
func WithSounds(sounds *feedback.Earcons) Option {
	return func(a *Assistant) { a.sounds = sounds }
}

// WithMetrics overrides the metrics instance. Defaults to
// observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Assistant) { a.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(a *Assistant) { a.log = log }
}

// Assistant is the session controller: it owns the wake → converse → idle
// lifecycle and drives one interaction cycle at a time. Exactly one session
// is active at any instant, and the audio input has at most one reader
// (recording, barge-in monitoring, and follow-up listening never overlap).
type Assistant struct {
	deps Deps

	followUpTimeout    time.Duration
	language           string
	presetSessionID    string
	debug              bool
	allowInterruption  bool
	interruptThreshold float64

	monitor  *InterruptionMonitor
	followUp *FollowUpListener
	sounds   *feedback.Earcons
	metrics  *observe.Metrics
	log      *slog.Logger
}

// New constructs an Assistant from its collaborators.
func New(deps Deps, opts ...Option) (*Assistant, error) {
	if deps.Wake == nil {
		return nil, fmt.Errorf("pipeline: wake detector must not be nil")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("pipeline: recorder must not be nil")
	}
	if deps.Transcriber == nil {
		return nil, fmt.Errorf("pipeline: transcriber must not be nil")
	}
	if deps.Chat == nil {
		return nil, fmt.Errorf("pipeline: chat client must not be nil")
	}
	if deps.Speaker == nil {
		return nil, fmt.Errorf("pipeline: speaker must not be nil")
	}

	a := &Assistant{
		deps:               deps,
		followUpTimeout:    defaultFollowUpTimeout,
		allowInterruption:  true,
		interruptThreshold: defaultInterruptThreshold,
		log:                slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if a.allowInterruption && deps.Input != nil {
		a.monitor = NewInterruptionMonitor(deps.Input, a.interruptThreshold, a.log)
	}
	a.followUp = NewFollowUpListener(deps.Input, a.interruptThreshold, a.log)
	return a, nil
}

// Run executes the assistant loop until the wake detector requests shutdown,
// the context ends, or an unexpected error escapes a session. Backend and
// transcription failures end the session, not the loop.
func (a *Assistant) Run(ctx context.Context) error {
	for {
		a.log.Info("waiting for wake signal")
		woke, err := a.deps.Wake.AwaitWake(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("pipeline: await wake: %w", err)
		}
		if !woke {
			a.log.Info("shutdown requested")
			return nil
		}

		if err := a.runSession(ctx); err != nil {
			return err
		}
	}
}

// runSession drives interaction cycles from one wake until the user
// disengages or a session-fatal failure occurs. Only unexpected errors are
// returned; session-fatal failures are logged and absorbed so the loop goes
// back to waiting for the wake signal.
func (a *Assistant) runSession(ctx context.Context) error {
	sessionID := a.presetSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	log := a.log.With("session_id", sessionID)
	log.Info("session started")

	a.metrics.ActiveSessions.Add(ctx, 1)
	defer a.metrics.ActiveSessions.Add(ctx, -1)
	a.sounds.Wake(ctx)
	defer a.sounds.Sleep(ctx)

	for {
		result, err := a.runCycle(ctx, sessionID, log)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			if errors.Is(err, chat.ErrBackend) || errors.Is(err, ErrTranscribe) {
				log.Error("turn aborted, session ends", "error", err)
				a.metrics.RecordTurn(ctx, "aborted")
				a.sounds.Error(ctx)
				return nil
			}
			return fmt.Errorf("pipeline: interaction cycle: %w", err)
		}
		if result.SessionID != "" {
			sessionID = result.SessionID
		}

		if result.Interrupted {
			// The user is already speaking; record the next utterance
			// immediately, no wake word and no follow-up wait.
			log.Debug("turn interrupted, listening again")
			continue
		}

		heard, err := a.followUp.Wait(ctx, a.followUpTimeout)
		if err != nil {
			return err
		}
		if !heard {
			log.Info("session ended, follow-up window elapsed")
			return nil
		}
		log.Debug("follow-up speech detected")
	}
}
