package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/vortexai/vortex-edge/internal/feedback"
	"github.com/vortexai/vortex-edge/internal/observe"
	"github.com/vortexai/vortex-edge/pkg/audio"
	audiomock "github.com/vortexai/vortex-edge/pkg/audio/mock"
	chatpkg "github.com/vortexai/vortex-edge/pkg/provider/chat"
	chatmock "github.com/vortexai/vortex-edge/pkg/provider/chat/mock"
	recmock "github.com/vortexai/vortex-edge/pkg/provider/recorder/mock"
	sttmock "github.com/vortexai/vortex-edge/pkg/provider/stt/mock"
	ttsmock "github.com/vortexai/vortex-edge/pkg/provider/tts/mock"
	wakemock "github.com/vortexai/vortex-edge/pkg/provider/wake/mock"
)

func utterance(hint string) audio.Utterance {
	return audio.Utterance{Hint: hint}
}

// newAssistant wires an Assistant over the given deps with test defaults:
// a discarding logger and a short follow-up window.
func newAssistant(t *testing.T, deps Deps, opts ...Option) *Assistant {
	t.Helper()
	opts = append([]Option{
		WithLogger(testLogger()),
		WithFollowUpTimeout(20 * time.Millisecond),
	}, opts...)
	a, err := New(deps, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

// ─── Construction ─────────────────────────────────────────────────────────────

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	full := Deps{
		Wake:        &wakemock.Detector{},
		Recorder:    &recmock.Recorder{},
		Transcriber: &sttmock.Provider{},
		Chat:        &chatmock.Client{},
		Speaker:     &ttsmock.Speaker{},
	}

	for _, tc := range []struct {
		name  string
		strip func(*Deps)
	}{
		{"wake", func(d *Deps) { d.Wake = nil }},
		{"recorder", func(d *Deps) { d.Recorder = nil }},
		{"transcriber", func(d *Deps) { d.Transcriber = nil }},
		{"chat", func(d *Deps) { d.Chat = nil }},
		{"speaker", func(d *Deps) { d.Speaker = nil }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			deps := full
			tc.strip(&deps)
			if _, err := New(deps); err == nil {
				t.Errorf("Expected error for missing %s", tc.name)
			}
		})
	}
}

// ─── Session lifecycle ────────────────────────────────────────────────────────

func TestRunSingleTurnThenFollowUpTimeout(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResults: []audio.Utterance{utterance("audio")}}
	sp := &sttmock.Provider{TranscribeResult: "turn on the lights"}
	cc := &chatmock.Client{ChatResult: chatpkg.Reply{Text: "Done."}}
	speaker := &ttsmock.Speaker{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: cc, Speaker: speaker,
	}, WithLanguage("en"))

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := speaker.SpokenTexts(); !reflect.DeepEqual(got, []string{"Done."}) {
		t.Errorf("spoken = %v, want [Done.]", got)
	}
	// Follow-up window elapsed, so the loop went back to wake listening.
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
	if rec.CallCount() != 1 {
		t.Errorf("Record called %d times, want 1", rec.CallCount())
	}

	calls := cc.Calls()
	if len(calls) != 1 {
		t.Fatalf("Chat called %d times, want 1", len(calls))
	}
	if calls[0].Text != "turn on the lights" {
		t.Errorf("Chat request text = %q", calls[0].Text)
	}
	if calls[0].SessionID == "" {
		t.Error("Expected a generated session ID")
	}
	if len(sp.TranscribeCalls) != 1 || sp.TranscribeCalls[0].Language != "en" {
		t.Errorf("Transcribe calls = %+v, want one call with language en", sp.TranscribeCalls)
	}
}

func TestRunPlaysCuesThroughTheTurn(t *testing.T) {
	t.Parallel()

	out := &audiomock.Output{}
	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResults: []audio.Utterance{utterance("audio")}}
	sp := &sttmock.Provider{TranscribeResult: "what time is it"}
	cc := &chatmock.Client{ChatResult: chatpkg.Reply{Text: "Noon."}}
	speaker := &ttsmock.Speaker{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: cc, Speaker: speaker,
	}, WithSounds(feedback.NewEarcons(out, testLogger())))

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Wake on session start, capture-done after recording, thinking before
	// the backend call, speaking before playback, sleep on session end.
	if len(out.PlayCalls) != 5 {
		t.Errorf("cue playbacks = %d, want 5", len(out.PlayCalls))
	}
}

func TestRunFollowUpSpeechStartsNewCycleWithoutWake(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(4)
	stream.Push(loudFrame())
	in := &audiomock.Input{OpenStreamResult: stream}

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResults: []audio.Utterance{utterance("one"), utterance("two")}}
	sp := &sttmock.Provider{TranscribeResults: []string{"first question", "second question"}}
	cc := &chatmock.Client{ChatResults: []chatpkg.Reply{{Text: "First."}, {Text: "Second."}}}
	speaker := &ttsmock.Speaker{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: cc, Speaker: speaker, Input: in,
	}, WithoutInterruption(), WithSessionID("conv-1"))

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The follow-up window heard speech once, producing a second cycle with
	// no additional wake detection.
	if rec.CallCount() != 2 {
		t.Errorf("Record called %d times, want 2", rec.CallCount())
	}
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
	if got := speaker.SpokenTexts(); !reflect.DeepEqual(got, []string{"First.", "Second."}) {
		t.Errorf("spoken = %v", got)
	}
	for i, call := range cc.Calls() {
		if call.SessionID != "conv-1" {
			t.Errorf("call %d session = %q, want conv-1", i, call.SessionID)
		}
	}
}

func TestRunBackendSessionIDReplacesOurs(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(4)
	stream.Push(loudFrame())
	in := &audiomock.Input{OpenStreamResult: stream}

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResult: utterance("audio")}
	sp := &sttmock.Provider{TranscribeResult: "hello"}
	cc := &chatmock.Client{ChatResults: []chatpkg.Reply{
		{Text: "Hi.", SessionID: "srv-9"},
		{Text: "Again."},
	}}
	speaker := &ttsmock.Speaker{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: cc, Speaker: speaker, Input: in,
	}, WithoutInterruption())

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	calls := cc.Calls()
	if len(calls) != 2 {
		t.Fatalf("Chat called %d times, want 2", len(calls))
	}
	if calls[1].SessionID != "srv-9" {
		t.Errorf("second call session = %q, want srv-9", calls[1].SessionID)
	}
}

func TestRunShutdownBeforeAnySession(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{}
	rec := &recmock.Recorder{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: &sttmock.Provider{},
		Chat: &chatmock.Client{}, Speaker: &ttsmock.Speaker{},
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rec.CallCount() != 0 {
		t.Errorf("Record called %d times before any wake", rec.CallCount())
	}
}

// ─── Soft and hard failures ───────────────────────────────────────────────────

func TestRunEmptyTranscriptSkipsBackend(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResults: []audio.Utterance{utterance("noise")}}
	sp := &sttmock.Provider{TranscribeResult: "   "}
	cc := &chatmock.Client{ChatResult: chatpkg.Reply{Text: "should not be sent"}}
	speaker := &ttsmock.Speaker{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: cc, Speaker: speaker,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if calls := cc.Calls(); len(calls) != 0 {
		t.Errorf("Chat called %d times for an empty transcript", len(calls))
	}
	if spoken := speaker.SpokenTexts(); len(spoken) != 0 {
		t.Errorf("spoken = %v, want none", spoken)
	}
	// The cycle completed softly; the session continued to its follow-up
	// window and then ended normally.
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
}

func TestRunEmptyCaptureSkipsTranscription(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{}
	sp := &sttmock.Provider{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp,
		Chat: &chatmock.Client{}, Speaker: &ttsmock.Speaker{},
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sp.TranscribeCalls) != 0 {
		t.Errorf("Transcribe called %d times for empty capture", len(sp.TranscribeCalls))
	}
}

func TestRunBackendErrorEndsSession(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResult: utterance("audio")}
	sp := &sttmock.Provider{TranscribeResult: "hello"}
	cc := &chatmock.Client{ChatError: errors.New("gateway unreachable")}
	speaker := &ttsmock.Speaker{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: cc, Speaker: speaker,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if spoken := speaker.SpokenTexts(); len(spoken) != 0 {
		t.Errorf("spoken = %v, want none", spoken)
	}
	// The failed turn aborted the session; the loop went straight back to
	// wake listening without a follow-up cycle.
	if rec.CallCount() != 1 {
		t.Errorf("Record called %d times, want 1", rec.CallCount())
	}
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
}

func TestRunTranscribeErrorEndsSession(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResult: utterance("audio")}
	sp := &sttmock.Provider{TranscribeError: errors.New("whisper-server 500")}
	cc := &chatmock.Client{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: cc, Speaker: &ttsmock.Speaker{},
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if calls := cc.Calls(); len(calls) != 0 {
		t.Errorf("Chat called %d times after a transcription failure", len(calls))
	}
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
}

func TestRunRecorderErrorPropagates(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordError: errors.New("capture device lost")}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: &sttmock.Provider{},
		Chat: &chatmock.Client{}, Speaker: &ttsmock.Speaker{},
	})

	err := a.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "capture device lost") {
		t.Fatalf("Run error = %v, want recorder failure", err)
	}
}

func TestRunWakeErrorPropagates(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeError: errors.New("porcupine init")}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: &recmock.Recorder{}, Transcriber: &sttmock.Provider{},
		Chat: &chatmock.Client{}, Speaker: &ttsmock.Speaker{},
	})

	if err := a.Run(context.Background()); err == nil {
		t.Fatal("Expected wake failure to propagate")
	}
}

func TestRunSpeakFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResult: utterance("audio")}
	sp := &sttmock.Provider{TranscribeResult: "hello"}
	cc := &chatmock.Client{ChatResult: chatpkg.Reply{Text: "Hi."}}
	speaker := &ttsmock.Speaker{SpeakError: errors.New("alsa underrun")}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: cc, Speaker: speaker,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Playback failed, but the turn completed and the session went through
	// its follow-up window as usual.
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
}

// ─── Streaming ────────────────────────────────────────────────────────────────

func TestRunStreamingSpeaksSentencesInOrder(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResults: []audio.Utterance{utterance("audio")}}
	sp := &sttmock.Provider{TranscribeResult: "how are you"}
	sc := &chatmock.StreamingClient{ChatStreamChunks: []string{"Hi", " there.", " How are you?"}}
	speaker := &ttsmock.Speaker{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: sc, Stream: sc, Speaker: speaker,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"Hi there.", "How are you?"}
	if got := speaker.SpokenTexts(); !reflect.DeepEqual(got, want) {
		t.Errorf("spoken = %v, want %v", got, want)
	}
	if calls := sc.StreamCalls(); len(calls) != 1 {
		t.Errorf("ChatStream called %d times, want 1", len(calls))
	}
	if calls := sc.Calls(); len(calls) != 0 {
		t.Errorf("Chat called %d times on a streaming backend", len(calls))
	}
}

func TestRunStreamingInterruptionSkipsRemainder(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(8)
	in := &audiomock.Input{OpenStreamResult: stream}

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResults: []audio.Utterance{utterance("audio")}}
	sp := &sttmock.Provider{TranscribeResult: "tell me a story"}
	sc := &chatmock.StreamingClient{ChatStreamChunks: []string{"One. ", "Two. ", "Three."}}
	speaker := &ttsmock.Speaker{BlockUntilStopped: true}
	speaker.OnSpeak = func(string) {
		// The user starts talking while the first sentence plays.
		stream.Push(loudFrame())
	}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: sc, Stream: sc, Speaker: speaker, Input: in,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := speaker.SpokenTexts(); !reflect.DeepEqual(got, []string{"One."}) {
		t.Errorf("spoken = %v, want only the first sentence", got)
	}
	if speaker.CallCountStop == 0 {
		t.Error("Expected Stop to cut off playback")
	}
	// The interrupted cycle re-listens immediately: a second Record with no
	// second wake detection.
	if rec.CallCount() != 2 {
		t.Errorf("Record called %d times, want 2", rec.CallCount())
	}
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
}

func TestRunStreamingInterruptionKeepsHandedOverSessionID(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(8)
	in := &audiomock.Input{OpenStreamResult: stream}

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResults: []audio.Utterance{
		utterance("first"),
		utterance("follow-up"),
	}}
	sp := &sttmock.Provider{TranscribeResult: "keep going"}
	sc := &chatmock.StreamingClient{
		ChatStreamChunks:    []string{"Right away. "},
		ChatStreamSessionID: "sess-handover-7",
	}
	speaker := &ttsmock.Speaker{BlockUntilStopped: true}
	speaker.OnSpeak = func(string) {
		// Every reply gets talked over, so both cycles end interrupted.
		stream.Push(loudFrame())
	}

	reader := sdkmetric.NewManualReader()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: sc, Stream: sc, Speaker: speaker, Input: in,
	}, WithMetrics(m))

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	calls := sc.StreamCalls()
	if len(calls) != 2 {
		t.Fatalf("ChatStream called %d times, want 2", len(calls))
	}
	// The backend handed over a replacement session ID at stream end; the
	// follow-up request after an interrupted reply must carry it.
	if calls[1].SessionID != "sess-handover-7" {
		t.Errorf("follow-up SessionID = %q, want %q", calls[1].SessionID, "sess-handover-7")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if got := histogramCount(rm, "vortex.chat.duration"); got != 2 {
		t.Errorf("chat duration samples = %d, want one per turn", got)
	}
}

// histogramCount sums the sample counts of the named histogram.
func histogramCount(rm metricdata.ResourceMetrics, name string) uint64 {
	var total uint64
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != name {
				continue
			}
			if h, ok := met.Data.(metricdata.Histogram[float64]); ok {
				for _, dp := range h.DataPoints {
					total += dp.Count
				}
			}
		}
	}
	return total
}

func TestRunStreamingStartErrorEndsSession(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResult: utterance("audio")}
	sp := &sttmock.Provider{TranscribeResult: "hello"}
	sc := &chatmock.StreamingClient{ChatStreamStartError: errors.New("dial tcp: refused")}
	speaker := &ttsmock.Speaker{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: sc, Stream: sc, Speaker: speaker,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if spoken := speaker.SpokenTexts(); len(spoken) != 0 {
		t.Errorf("spoken = %v, want none", spoken)
	}
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
}

func TestRunStreamingMidStreamErrorEndsSession(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResult: utterance("audio")}
	sp := &sttmock.Provider{TranscribeResult: "hello"}
	sc := &chatmock.StreamingClient{
		ChatStreamChunks: []string{"Partial answer. "},
		ChatStreamError:  errors.New("connection reset"),
	}
	speaker := &ttsmock.Speaker{}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: sc, Stream: sc, Speaker: speaker,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// The sentence completed before the failure was spoken; the failure
	// then aborted the session.
	if got := speaker.SpokenTexts(); !reflect.DeepEqual(got, []string{"Partial answer."}) {
		t.Errorf("spoken = %v", got)
	}
	if rec.CallCount() != 1 {
		t.Errorf("Record called %d times, want 1", rec.CallCount())
	}
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
}

// ─── Whole-reply interruption ─────────────────────────────────────────────────

func TestRunWholeReplyInterruptionRelistens(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(8)
	in := &audiomock.Input{OpenStreamResult: stream}

	wk := &wakemock.Detector{WakeResults: []bool{true}}
	rec := &recmock.Recorder{RecordResults: []audio.Utterance{utterance("audio")}}
	sp := &sttmock.Provider{TranscribeResult: "long question"}
	cc := &chatmock.Client{ChatResult: chatpkg.Reply{Text: "A very long answer."}}
	speaker := &ttsmock.Speaker{BlockUntilStopped: true}
	speaker.OnSpeak = func(string) {
		stream.Push(loudFrame())
	}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: rec, Transcriber: sp, Chat: cc, Speaker: speaker, Input: in,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if speaker.CallCountStop == 0 {
		t.Error("Expected Stop during interrupted playback")
	}
	if rec.CallCount() != 2 {
		t.Errorf("Record called %d times, want 2", rec.CallCount())
	}
	if wk.CallCount() != 2 {
		t.Errorf("AwaitWake called %d times, want 2", wk.CallCount())
	}
}

func TestRunContextCancelStopsLoop(t *testing.T) {
	t.Parallel()

	wk := &wakemock.Detector{BlockUntilCtx: true}

	a := newAssistant(t, Deps{
		Wake: wk, Recorder: &recmock.Recorder{}, Transcriber: &sttmock.Provider{},
		Chat: &chatmock.Client{}, Speaker: &ttsmock.Speaker{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := a.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}
