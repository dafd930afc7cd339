package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/vortexai/vortex-edge/internal/observe"
)

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := NewFallbackGroup("stt", "whisper", "whisper", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("deepgram", "deepgram")

	var called string
	err := fg.Execute(context.Background(), func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "whisper" {
		t.Fatalf("called = %q, want whisper", called)
	}
}

func TestFallbackGroup_PrimaryFailFallbackSuccess(t *testing.T) {
	fg := NewFallbackGroup("stt", "whisper", "whisper", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("deepgram", "deepgram")

	var called string
	err := fg.Execute(context.Background(), func(v string) error {
		if v == "whisper" {
			return errTest
		}
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "deepgram" {
		t.Fatalf("called = %q, want deepgram", called)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := NewFallbackGroup("stt", "whisper", "whisper", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("deepgram", "deepgram")

	err := fg.Execute(context.Background(), func(string) error {
		return errTest
	})
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroup_OpenBreakerSkipsProvider(t *testing.T) {
	fg := NewFallbackGroup("stt", "whisper", "whisper", FallbackConfig{
		Breaker: BreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback("deepgram", "deepgram")

	// Fail the primary enough to open its breaker.
	for i := 0; i < 2; i++ {
		_ = fg.Execute(context.Background(), func(v string) error {
			if v == "whisper" {
				return errTest
			}
			return nil
		})
	}

	// Now the primary's breaker is open; calls go straight to the fallback.
	var called string
	err := fg.Execute(context.Background(), func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "deepgram" {
		t.Fatalf("called = %q, want deepgram (primary breaker should be open)", called)
	}
}

func TestExecuteWithResult_Success(t *testing.T) {
	fg := NewFallbackGroup("chat", "gateway", 10, FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("rest", 20)

	result, err := ExecuteWithResult(context.Background(), fg, func(v int) (string, error) {
		if v == 10 {
			return "from-gateway", nil
		}
		return "from-rest", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-gateway" {
		t.Fatalf("result = %q, want from-gateway", result)
	}
}

func TestExecuteWithResult_Failover(t *testing.T) {
	fg := NewFallbackGroup("chat", "gateway", 10, FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("rest", 20)

	result, err := ExecuteWithResult(context.Background(), fg, func(v int) (string, error) {
		if v == 10 {
			return "", errTest
		}
		return "from-rest", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-rest" {
		t.Fatalf("result = %q, want from-rest", result)
	}
}

func TestExecuteWithResult_AllFail(t *testing.T) {
	fg := NewFallbackGroup("chat", "gateway", 10, FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})

	_, err := ExecuteWithResult(context.Background(), fg, func(int) (string, error) {
		return "", errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

// ─── Metrics ──────────────────────────────────────────────────────────────────

func TestFallbackGroup_RecordsProviderMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	fg := NewFallbackGroup("stt", "whisper", "whisper", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
		Metrics: m,
	})
	fg.AddFallback("deepgram", "deepgram")

	// Primary fails, fallback answers: one error request, one ok request.
	err = fg.Execute(context.Background(), func(v string) error {
		if v == "whisper" {
			return errTest
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	requests := counterTotal(rm, "vortex.provider.requests")
	if requests != 2 {
		t.Errorf("provider requests = %d, want 2", requests)
	}
	errs := counterTotal(rm, "vortex.provider.errors")
	if errs != 1 {
		t.Errorf("provider errors = %d, want 1", errs)
	}
}

// counterTotal sums all data points of the named int64 counter.
func counterTotal(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != name {
				continue
			}
			if sum, ok := met.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}
