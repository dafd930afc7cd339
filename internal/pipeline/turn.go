package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vortexai/vortex-edge/internal/observe"
	"github.com/vortexai/vortex-edge/internal/sentence"
	"github.com/vortexai/vortex-edge/pkg/audio"
	"github.com/vortexai/vortex-edge/pkg/provider/chat"
)

// cycleResult is the outcome of one interaction cycle that did not fail.
type cycleResult struct {
	// Interrupted reports that the user barged in during speech. The
	// session skips the follow-up wait and records again immediately.
	Interrupted bool

	// SessionID is a backend-issued replacement for the conversation
	// identifier, or empty when unchanged.
	SessionID string
}

// runCycle executes one capture → transcribe → chat → speak cycle. Backend
// failures are reported wrapped in chat.ErrBackend, transcription failures
// in ErrTranscribe; anything else is unexpected.
func (a *Assistant) runCycle(ctx context.Context, sessionID string, log *slog.Logger) (cycleResult, error) {
	ctx, span := observe.StartSpan(ctx, "pipeline.turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()
	log = observe.Logger(ctx, log)

	start := time.Now()

	utt, err := a.deps.Recorder.Record(ctx)
	if err != nil {
		return cycleResult{}, fmt.Errorf("record: %w", err)
	}
	if utt.Empty() {
		log.Debug("nothing captured")
		a.sounds.NoSpeech(ctx)
		a.metrics.RecordTurn(ctx, "empty")
		return cycleResult{}, nil
	}
	a.sounds.Processing(ctx)

	sttStart := time.Now()
	transcript, err := a.deps.Transcriber.Transcribe(ctx, utt, a.language)
	a.metrics.STTDuration.Record(ctx, time.Since(sttStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return cycleResult{}, ctx.Err()
		}
		return cycleResult{}, fmt.Errorf("%w: %w", ErrTranscribe, err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		log.Debug("no speech in capture")
		a.sounds.NoSpeech(ctx)
		a.metrics.RecordTurn(ctx, "empty")
		return cycleResult{}, nil
	}
	log.Info("user turn", "transcript", transcript)
	a.sounds.Thinking(ctx)

	req := chat.Request{Text: transcript, SessionID: sessionID, Debug: a.debug}
	token := NewCancelToken()

	var result cycleResult
	if a.deps.Stream != nil {
		result, err = a.runStreaming(ctx, req, token, log)
	} else {
		result, err = a.runWholeReply(ctx, req, token, log)
	}
	if err != nil {
		return cycleResult{}, err
	}

	a.metrics.TurnDuration.Record(ctx, time.Since(start).Seconds())
	outcome := "completed"
	if result.Interrupted {
		outcome = "interrupted"
	}
	span.SetAttributes(attribute.String("turn.outcome", outcome))
	a.metrics.RecordTurn(ctx, outcome)
	return result, nil
}

// runWholeReply requests the complete reply, then speaks it while the
// interruption monitor watches the input. The monitor runs only for the
// speech phase; during the backend wait there is nothing to interrupt.
func (a *Assistant) runWholeReply(ctx context.Context, req chat.Request, token *CancelToken, log *slog.Logger) (cycleResult, error) {
	chatStart := time.Now()
	reply, err := a.deps.Chat.Chat(ctx, req)
	a.metrics.ChatDuration.Record(ctx, time.Since(chatStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return cycleResult{}, ctx.Err()
		}
		return cycleResult{}, backendErr(err)
	}

	result := cycleResult{SessionID: reply.SessionID}
	text := strings.TrimSpace(reply.Text)
	if text == "" {
		log.Debug("backend returned empty reply")
		return result, nil
	}
	log.Info("assistant turn", "reply", text)
	a.sounds.Speaking(ctx)

	stop := a.watch(ctx, token)
	defer stop()
	if err := a.speak(ctx, token, text); err != nil {
		return cycleResult{}, err
	}
	result.Interrupted = token.Fired()
	return result, nil
}

// runStreaming consumes the reply stream sentence by sentence, speaking each
// as soon as it is complete. The interruption monitor covers the whole
// stream-and-speak phase; once the token fires, no further sentences are
// spoken and the rest of the stream is drained in the background.
func (a *Assistant) runStreaming(ctx context.Context, req chat.Request, token *CancelToken, log *slog.Logger) (cycleResult, error) {
	chatStart := time.Now()
	stream, err := a.deps.Stream.ChatStream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return cycleResult{}, ctx.Err()
		}
		return cycleResult{}, backendErr(err)
	}

	a.sounds.Speaking(ctx)
	stop := a.watch(ctx, token)
	defer stop()

	var seg sentence.Segmenter
	for chunk := range stream.Chunks() {
		if token.Fired() {
			break
		}
		for _, s := range seg.Add(chunk) {
			if token.Fired() {
				break
			}
			log.Info("assistant turn", "reply", s)
			if err := a.speak(ctx, token, s); err != nil {
				go audio.Drain(stream.Chunks())
				return cycleResult{}, err
			}
		}
	}

	if token.Fired() {
		// The tail is not spoken, but the backend may still hand over a
		// replacement session ID at stream end; drain to get it.
		audio.Drain(stream.Chunks())
		a.metrics.ChatDuration.Record(ctx, time.Since(chatStart).Seconds())
		return cycleResult{Interrupted: true, SessionID: stream.SessionID}, nil
	}

	a.metrics.ChatDuration.Record(ctx, time.Since(chatStart).Seconds())
	if err := stream.Err(); err != nil {
		return cycleResult{}, backendErr(err)
	}

	if tail := seg.Flush(); tail != "" && !token.Fired() {
		log.Info("assistant turn", "reply", tail)
		if err := a.speak(ctx, token, tail); err != nil {
			return cycleResult{}, err
		}
	}
	return cycleResult{Interrupted: token.Fired(), SessionID: stream.SessionID}, nil
}

// watch starts barge-in monitoring for the current speech phase and returns
// the function that ends it. A fired token stops the speaker and counts the
// interruption; the session reacts once the phase unwinds.
func (a *Assistant) watch(ctx context.Context, token *CancelToken) (stop func()) {
	if a.monitor == nil {
		return func() {}
	}
	return a.monitor.Watch(ctx, token, func() {
		a.log.Info("user barge-in, stopping speech")
		a.deps.Speaker.Stop()
		a.metrics.Interruptions.Add(ctx, 1)
	})
}

// speak plays one piece of text and records its latency. Playback failures
// do not abort the turn: a broken output device should not end the
// conversation, and a Stop-induced halt is expected during barge-in.
func (a *Assistant) speak(ctx context.Context, token *CancelToken, text string) error {
	ttsStart := time.Now()
	err := a.deps.Speaker.Speak(ctx, text)
	a.metrics.TTSDuration.Record(ctx, time.Since(ttsStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !token.Fired() {
			a.log.Warn("speech playback failed", "error", err)
		}
	}
	return nil
}

// backendErr classifies a chat failure, preserving an existing ErrBackend
// mark instead of wrapping twice.
func backendErr(err error) error {
	if errors.Is(err, chat.ErrBackend) {
		return err
	}
	return fmt.Errorf("%w: %w", chat.ErrBackend, err)
}
