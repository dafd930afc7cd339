package openclaw

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/vortexai/vortex-edge/pkg/provider/chat"
)

// Compile-time assertions.
var (
	_ chat.Client          = (*HTTPClient)(nil)
	_ chat.StreamingClient = (*HTTPClient)(nil)
)

// HTTPOption is a functional option for configuring an HTTPClient.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	model        string
	systemPrompt string
	timeout      time.Duration
}

// WithModel sets the model name sent to the gateway. Defaults to "openclaw".
func WithModel(model string) HTTPOption {
	return func(c *httpConfig) { c.model = model }
}

// WithSystemPrompt prepends a system message to every conversation.
func WithSystemPrompt(prompt string) HTTPOption {
	return func(c *httpConfig) { c.systemPrompt = prompt }
}

// WithHTTPTimeout sets a per-request timeout. Defaults to 120s.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(c *httpConfig) { c.timeout = d }
}

// HTTPClient implements chat.Client and chat.StreamingClient against the
// gateway's OpenAI-compatible /v1/chat/completions endpoint. Conversation
// history is kept client-side per session id.
type HTTPClient struct {
	client       oai.Client
	model        string
	systemPrompt string

	mu       sync.Mutex
	sessions map[string][]oai.ChatCompletionMessageParamUnion
}

// NewHTTP creates an HTTPClient for the gateway's OpenAI-compatible API at
// baseURL (e.g., "http://localhost:18789/v1").
func NewHTTP(baseURL, apiKey string, opts ...HTTPOption) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("openclaw: baseURL must not be empty")
	}

	cfg := &httpConfig{model: "openclaw", timeout: 120 * time.Second}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
	}
	if apiKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(apiKey))
	}

	return &HTTPClient{
		client:       oai.NewClient(reqOpts...),
		model:        cfg.model,
		systemPrompt: cfg.systemPrompt,
		sessions:     make(map[string][]oai.ChatCompletionMessageParamUnion),
	}, nil
}

// Chat implements chat.Client.
func (h *HTTPClient) Chat(ctx context.Context, req chat.Request) (chat.Reply, error) {
	params := h.buildParams(req)

	resp, err := h.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("openclaw: chat completion: %w: %w", chat.ErrBackend, err)
	}
	if len(resp.Choices) == 0 {
		return chat.Reply{}, fmt.Errorf("openclaw: empty choices in response: %w", chat.ErrBackend)
	}

	text := resp.Choices[0].Message.Content
	h.remember(req.SessionID, req.Text, text)
	return chat.Reply{Text: text, SessionID: req.SessionID}, nil
}

// ChatStream implements chat.StreamingClient.
func (h *HTTPClient) ChatStream(ctx context.Context, req chat.Request) (*chat.Stream, error) {
	params := h.buildParams(req)

	sdkStream := h.client.Chat.Completions.NewStreaming(ctx, params)
	if err := sdkStream.Err(); err != nil {
		return nil, fmt.Errorf("openclaw: start stream: %w: %w", chat.ErrBackend, err)
	}

	stream := chat.NewStream(32)
	stream.SessionID = req.SessionID
	go func() {
		defer sdkStream.Close()

		var full string
		for sdkStream.Next() {
			chunk := sdkStream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			full += delta
			if !stream.Push(ctx, delta) {
				stream.CloseWithError(ctx.Err())
				return
			}
		}
		if err := sdkStream.Err(); err != nil {
			stream.CloseWithError(fmt.Errorf("openclaw: stream: %w: %w", chat.ErrBackend, err))
			return
		}
		h.remember(req.SessionID, req.Text, full)
		stream.Close()
	}()
	return stream, nil
}

// buildParams assembles the completion request from stored history plus the
// incoming user message.
func (h *HTTPClient) buildParams(req chat.Request) oai.ChatCompletionNewParams {
	h.mu.Lock()
	defer h.mu.Unlock()

	var messages []oai.ChatCompletionMessageParamUnion
	if h.systemPrompt != "" {
		messages = append(messages, oai.SystemMessage(h.systemPrompt))
	}
	messages = append(messages, h.sessions[req.SessionID]...)
	messages = append(messages, oai.UserMessage(req.Text))

	return oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(h.model),
		Messages: messages,
	}
}

// remember appends a completed user/assistant exchange to the session history.
func (h *HTTPClient) remember(sessionID, userText, assistantText string) {
	if assistantText == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[sessionID] = append(h.sessions[sessionID],
		oai.UserMessage(userText),
		oai.AssistantMessage(assistantText),
	)
}
