package resilience

import (
	"context"

	"github.com/vortexai/vortex-edge/pkg/provider/chat"
)

// ChatFallback implements [chat.Client] with automatic failover across
// multiple conversation backends. Each backend has its own circuit breaker.
//
// ChatFallback deliberately does not implement [chat.StreamingClient]:
// failing over mid-stream would replay or drop partial replies, so a wired
// fallback group always takes the whole-reply path.
type ChatFallback struct {
	group *FallbackGroup[chat.Client]
}

// Compile-time interface assertion.
var _ chat.Client = (*ChatFallback)(nil)

// NewChatFallback creates a [ChatFallback] with primary as the preferred
// backend.
func NewChatFallback(primary chat.Client, primaryName string, cfg FallbackConfig) *ChatFallback {
	return &ChatFallback{
		group: NewFallbackGroup("chat", primaryName, primary, cfg),
	}
}

// AddFallback registers an additional chat backend as a fallback.
func (f *ChatFallback) AddFallback(name string, client chat.Client) {
	f.group.AddFallback(name, client)
}

// Chat sends the request to the first healthy backend. If the primary fails,
// subsequent fallbacks are tried with the same request; conversation state on
// the fallback starts fresh unless the backends share storage.
func (f *ChatFallback) Chat(ctx context.Context, req chat.Request) (chat.Reply, error) {
	return ExecuteWithResult(ctx, f.group, func(c chat.Client) (chat.Reply, error) {
		return c.Chat(ctx, req)
	})
}
