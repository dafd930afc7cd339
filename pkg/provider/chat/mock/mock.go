// Package mock provides chat.Client and chat.StreamingClient implementations
// for testing.
package mock

import (
	"context"
	"sync"

	"github.com/vortexai/vortex-edge/pkg/provider/chat"
)

// Compile-time assertions.
var (
	_ chat.Client          = (*Client)(nil)
	_ chat.Client          = (*StreamingClient)(nil)
	_ chat.StreamingClient = (*StreamingClient)(nil)
)

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is a configurable mock chat.Client.
type Client struct {
	mu sync.Mutex

	// ChatResults, when non-empty, are returned in order by successive Chat
	// calls; the last entry repeats. Otherwise ChatResult is returned.
	ChatResults []chat.Reply
	ChatResult  chat.Reply
	ChatError   error

	ChatCalls []chat.Request
}

// Chat implements chat.Client.
func (c *Client) Chat(_ context.Context, req chat.Request) (chat.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ChatCalls = append(c.ChatCalls, req)
	if c.ChatError != nil {
		return chat.Reply{}, c.ChatError
	}
	if len(c.ChatResults) > 0 {
		idx := len(c.ChatCalls) - 1
		if idx >= len(c.ChatResults) {
			idx = len(c.ChatResults) - 1
		}
		return c.ChatResults[idx], nil
	}
	return c.ChatResult, nil
}

// Calls returns a copy of the recorded requests.
func (c *Client) Calls() []chat.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Request, len(c.ChatCalls))
	copy(out, c.ChatCalls)
	return out
}

// ─── StreamingClient ──────────────────────────────────────────────────────────

// StreamingClient is a configurable mock chat.StreamingClient. Chat delegates
// to the embedded Client; ChatStream replays ChatStreamChunks.
type StreamingClient struct {
	Client

	// ChatStreamChunks are pushed one by one to each returned stream.
	ChatStreamChunks []string
	// ChatStreamStartError, when set, is returned by ChatStream itself.
	ChatStreamStartError error
	// ChatStreamError, when set, terminates the stream after all chunks.
	ChatStreamError error
	// OnChunk, when set, runs before each chunk is pushed. Tests use it to
	// trigger interruptions at a known point mid-stream.
	OnChunk func(i int, chunk string)
	// ChatStreamSessionID, when set, replaces the stream's session ID just
	// before the stream ends, mimicking a backend session handoff.
	ChatStreamSessionID string

	smu             sync.Mutex
	ChatStreamCalls []chat.Request
}

// ChatStream implements chat.StreamingClient.
func (c *StreamingClient) ChatStream(ctx context.Context, req chat.Request) (*chat.Stream, error) {
	c.smu.Lock()
	c.ChatStreamCalls = append(c.ChatStreamCalls, req)
	chunks := make([]string, len(c.ChatStreamChunks))
	copy(chunks, c.ChatStreamChunks)
	c.smu.Unlock()

	if c.ChatStreamStartError != nil {
		return nil, c.ChatStreamStartError
	}

	stream := chat.NewStream(len(chunks) + 1)
	stream.SessionID = req.SessionID
	go func() {
		for i, chunk := range chunks {
			if c.OnChunk != nil {
				c.OnChunk(i, chunk)
			}
			if !stream.Push(ctx, chunk) {
				stream.CloseWithError(ctx.Err())
				return
			}
		}
		if c.ChatStreamSessionID != "" {
			stream.SessionID = c.ChatStreamSessionID
		}
		if c.ChatStreamError != nil {
			stream.CloseWithError(c.ChatStreamError)
			return
		}
		stream.Close()
	}()
	return stream, nil
}

// StreamCalls returns a copy of the recorded streaming requests.
func (c *StreamingClient) StreamCalls() []chat.Request {
	c.smu.Lock()
	defer c.smu.Unlock()
	out := make([]chat.Request, len(c.ChatStreamCalls))
	copy(out, c.ChatStreamCalls)
	return out
}
