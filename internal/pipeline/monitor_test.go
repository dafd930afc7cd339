package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vortexai/vortex-edge/pkg/audio"
	audiomock "github.com/vortexai/vortex-edge/pkg/audio/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pcmFrame builds a mono frame of n samples, all at the given amplitude.
func pcmFrame(amplitude int16, n int) audio.Frame {
	data := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(amplitude))
	}
	return audio.Frame{Data: data, SampleRate: 16000, Channels: 1}
}

func loudFrame() audio.Frame  { return pcmFrame(8000, 480) }
func quietFrame() audio.Frame { return pcmFrame(10, 480) }

// ─── CancelToken ──────────────────────────────────────────────────────────────

func TestCancelTokenFiresAtMostOnce(t *testing.T) {
	t.Parallel()

	token := NewCancelToken()
	if token.Fired() {
		t.Fatal("new token reports fired")
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token.Fire()
		}()
	}
	wg.Wait()

	if !token.Fired() {
		t.Error("token not fired after Fire")
	}
	select {
	case <-token.Done():
	default:
		t.Error("Expected Done channel to be closed")
	}
	// A second Fire on an already-fired token must not panic.
	token.Fire()
}

// ─── InterruptionMonitor ──────────────────────────────────────────────────────

func TestWatchFiresOnLoudFrame(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(8)
	in := &audiomock.Input{OpenStreamResult: stream}
	mon := NewInterruptionMonitor(in, 0.02, testLogger())
	token := NewCancelToken()

	interrupted := make(chan struct{})
	stop := mon.Watch(context.Background(), token, func() { close(interrupted) })
	defer stop()

	stream.Push(quietFrame())
	stream.Push(loudFrame())

	select {
	case <-interrupted:
	case <-time.After(time.Second):
		t.Fatal("Expected interruption callback after loud frame")
	}
	if !token.Fired() {
		t.Error("token not fired")
	}
}

func TestWatchIgnoresQuietFrames(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(8)
	in := &audiomock.Input{OpenStreamResult: stream}
	mon := NewInterruptionMonitor(in, 0.02, testLogger())
	token := NewCancelToken()

	stop := mon.Watch(context.Background(), token, func() {
		t.Error("Expected no interruption for quiet frames")
	})
	for i := 0; i < 5; i++ {
		stream.Push(quietFrame())
	}
	stop()

	if token.Fired() {
		t.Error("token fired on quiet input")
	}
	if stream.CallCountClose == 0 {
		t.Error("Expected stream to be closed by stop")
	}
}

func TestWatchFiresOnlyOnce(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(8)
	in := &audiomock.Input{OpenStreamResult: stream}
	mon := NewInterruptionMonitor(in, 0.02, testLogger())
	token := NewCancelToken()

	var mu sync.Mutex
	calls := 0
	stop := mon.Watch(context.Background(), token, func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	for i := 0; i < 6; i++ {
		stream.Push(loudFrame())
	}
	stop()

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("onInterrupt ran %d times, want 1", calls)
	}
}

func TestWatchOpenFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	in := &audiomock.Input{OpenStreamError: errors.New("device busy")}
	mon := NewInterruptionMonitor(in, 0.02, testLogger())
	token := NewCancelToken()

	stop := mon.Watch(context.Background(), token, func() {
		t.Error("Expected no interruption without a stream")
	})
	stop()
	stop() // stop must be safe to call twice

	if token.Fired() {
		t.Error("token fired without input")
	}
}

func TestWatchStopJoinsAfterStreamEnd(t *testing.T) {
	t.Parallel()

	stream := audiomock.NewStream(8)
	in := &audiomock.Input{OpenStreamResult: stream}
	mon := NewInterruptionMonitor(in, 0.02, testLogger())

	stop := mon.Watch(context.Background(), NewCancelToken(), nil)
	stream.Finish()
	stop() // must not hang even though the device ended the stream first
}
