package resilience

import (
	"context"
	"errors"
	"testing"

	ttsmock "github.com/vortexai/vortex-edge/pkg/provider/tts/mock"
)

func TestTTSFallback_PrimarySuccess(t *testing.T) {
	primary := &ttsmock.Speaker{}
	secondary := &ttsmock.Speaker{}

	f := NewTTSFallback(primary, "primary", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("secondary", secondary)

	if err := f.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := primary.SpokenTexts(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("primary spoke %v, want [hello]", got)
	}
	if got := secondary.SpokenTexts(); len(got) != 0 {
		t.Fatal("fallback was called although the primary succeeded")
	}
}

func TestTTSFallback_PrimaryFailFallbackSpeaks(t *testing.T) {
	primary := &ttsmock.Speaker{SpeakError: errors.New("piper gone")}
	secondary := &ttsmock.Speaker{}

	f := NewTTSFallback(primary, "primary", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("secondary", secondary)

	if err := f.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := secondary.SpokenTexts(); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("fallback spoke %v, want [hello]", got)
	}
}

func TestTTSFallback_StopReachesActiveSpeaker(t *testing.T) {
	primary := &ttsmock.Speaker{SpeakError: errors.New("down")}
	secondary := &ttsmock.Speaker{}

	f := NewTTSFallback(primary, "primary", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("secondary", secondary)

	if err := f.Speak(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Stop()
	if secondary.CallCountStop != 1 {
		t.Fatalf("Stop count = %d, want 1 on the active speaker", secondary.CallCountStop)
	}
	if primary.CallCountStop != 0 {
		t.Fatal("Stop reached the failed primary")
	}
}

func TestTTSFallback_StopBeforeAnySpeakIsNoop(t *testing.T) {
	f := NewTTSFallback(&ttsmock.Speaker{}, "primary", FallbackConfig{})
	f.Stop()
}
