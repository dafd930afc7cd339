package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/vortexai/vortex-edge/pkg/provider/chat"
	chatmock "github.com/vortexai/vortex-edge/pkg/provider/chat/mock"
)

func TestChatFallback_PrimarySuccess(t *testing.T) {
	primary := &chatmock.Client{ChatResult: chat.Reply{Text: "from primary"}}
	secondary := &chatmock.Client{ChatResult: chat.Reply{Text: "from fallback"}}

	f := NewChatFallback(primary, "primary", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("secondary", secondary)

	reply, err := f.Chat(context.Background(), chat.Request{Text: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "from primary" {
		t.Fatalf("reply = %q, want %q", reply.Text, "from primary")
	}
	if len(secondary.Calls()) != 0 {
		t.Fatal("fallback was called although the primary succeeded")
	}
}

func TestChatFallback_PrimaryFailFallbackReplies(t *testing.T) {
	primary := &chatmock.Client{ChatError: errors.New("gateway unreachable")}
	secondary := &chatmock.Client{ChatResult: chat.Reply{Text: "from fallback"}}

	f := NewChatFallback(primary, "primary", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("secondary", secondary)

	reply, err := f.Chat(context.Background(), chat.Request{Text: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "from fallback" {
		t.Fatalf("reply = %q, want %q", reply.Text, "from fallback")
	}
}

func TestChatFallback_AllFail(t *testing.T) {
	primary := &chatmock.Client{ChatError: errors.New("down")}
	secondary := &chatmock.Client{ChatError: errors.New("also down")}

	f := NewChatFallback(primary, "primary", FallbackConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	f.AddFallback("secondary", secondary)

	_, err := f.Chat(context.Background(), chat.Request{Text: "hi"})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("error = %v, want ErrAllFailed", err)
	}
}
