// Package llmdirect provides a chat client that talks straight to an LLM via
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. There is no agent in the path; conversation history is kept in memory
// per session id.
//
// Usage:
//
//	c, err := llmdirect.New("openai", "gpt-4o", anyllmlib.WithAPIKey("sk-..."))
//	c, err := llmdirect.New("ollama", "llama3.2")
package llmdirect

import (
	"context"
	"fmt"
	"strings"
	"sync"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/vortexai/vortex-edge/pkg/provider/chat"
)

const defaultSystemPrompt = "You are a helpful voice assistant. Keep replies short and conversational; they will be spoken aloud."

// Compile-time assertions.
var (
	_ chat.Client          = (*Client)(nil)
	_ chat.StreamingClient = (*Client)(nil)
)

// Option is a functional option for Client.
type Option func(*Client)

// WithSystemPrompt overrides the default voice-assistant system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.systemPrompt = prompt }
}

// WithMaxHistory caps the number of stored messages per session; older
// exchanges are dropped. Defaults to 40.
func WithMaxHistory(n int) Option {
	return func(c *Client) { c.maxHistory = n }
}

// Client implements chat.Client and chat.StreamingClient by calling an LLM
// directly through any-llm-go.
type Client struct {
	backend      anyllmlib.Provider
	model        string
	systemPrompt string
	maxHistory   int

	mu       sync.Mutex
	sessions map[string][]anyllmlib.Message
}

// New creates a Client backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// backendOpts are any-llm-go configuration options (e.g.,
// anyllmlib.WithAPIKey, anyllmlib.WithBaseURL). Without an API key option the
// backend falls back to the relevant environment variable (OPENAI_API_KEY,
// ANTHROPIC_API_KEY, ...).
func New(providerName, model string, backendOpts []anyllmlib.Option, opts ...Option) (*Client, error) {
	if providerName == "" {
		return nil, fmt.Errorf("llmdirect: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("llmdirect: model must not be empty")
	}

	backend, err := createBackend(providerName, backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("llmdirect: create %q backend: %w", providerName, err)
	}

	c := &Client{
		backend:      backend,
		model:        model,
		systemPrompt: defaultSystemPrompt,
		maxHistory:   40,
		sessions:     make(map[string][]anyllmlib.Message),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// createBackend creates the underlying any-llm-go provider.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Chat implements chat.Client.
func (c *Client) Chat(ctx context.Context, req chat.Request) (chat.Reply, error) {
	params := c.buildParams(req)

	resp, err := c.backend.Completion(ctx, params)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("llmdirect: completion: %w: %w", chat.ErrBackend, err)
	}
	if len(resp.Choices) == 0 {
		return chat.Reply{}, fmt.Errorf("llmdirect: empty choices in response: %w", chat.ErrBackend)
	}

	text := resp.Choices[0].Message.ContentString()
	c.remember(req.SessionID, req.Text, text)
	return chat.Reply{Text: text, SessionID: req.SessionID}, nil
}

// ChatStream implements chat.StreamingClient.
func (c *Client) ChatStream(ctx context.Context, req chat.Request) (*chat.Stream, error) {
	params := c.buildParams(req)

	backendChunks, backendErrs := c.backend.CompletionStream(ctx, params)

	stream := chat.NewStream(32)
	stream.SessionID = req.SessionID
	go func() {
		var full strings.Builder
		for chunk := range backendChunks {
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			if !stream.Push(ctx, delta) {
				stream.CloseWithError(ctx.Err())
				return
			}
		}
		// Check for backend errors after the chunk channel is drained.
		if err := <-backendErrs; err != nil {
			stream.CloseWithError(fmt.Errorf("llmdirect: stream: %w: %w", chat.ErrBackend, err))
			return
		}
		c.remember(req.SessionID, req.Text, full.String())
		stream.Close()
	}()
	return stream, nil
}

// buildParams assembles completion params from stored history plus the
// incoming user message.
func (c *Client) buildParams(req chat.Request) anyllmlib.CompletionParams {
	c.mu.Lock()
	defer c.mu.Unlock()

	var messages []anyllmlib.Message
	if c.systemPrompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: c.systemPrompt,
		})
	}
	messages = append(messages, c.sessions[req.SessionID]...)
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: req.Text,
	})

	return anyllmlib.CompletionParams{
		Model:    c.model,
		Messages: messages,
	}
}

// remember appends a completed user/assistant exchange to the session
// history, trimming the oldest messages beyond the configured cap.
func (c *Client) remember(sessionID, userText, assistantText string) {
	if assistantText == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	history := append(c.sessions[sessionID],
		anyllmlib.Message{Role: anyllmlib.RoleUser, Content: userText},
		anyllmlib.Message{Role: anyllmlib.RoleAssistant, Content: assistantText},
	)
	if c.maxHistory > 0 && len(history) > c.maxHistory {
		history = history[len(history)-c.maxHistory:]
	}
	c.sessions[sessionID] = history
}
