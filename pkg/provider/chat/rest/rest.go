// Package rest provides a chat client for plain HTTP assistant backends:
// POST /chat with a JSON body, one JSON reply per turn. The reply shape is
// normalized tolerantly since self-hosted assistant bridges disagree on the
// field name carrying the answer.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vortexai/vortex-edge/pkg/provider/chat"
)

const defaultTimeout = 120 * time.Second

// Compile-time assertion that Client implements chat.Client.
var _ chat.Client = (*Client)(nil)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, e.g. to adjust the timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithAuthToken sets a bearer token sent with every request.
func WithAuthToken(token string) Option {
	return func(cl *Client) { cl.authToken = token }
}

// Client implements chat.Client against a POST /chat JSON endpoint.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("rest: baseURL must not be empty")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Chat implements chat.Client.
func (c *Client) Chat(ctx context.Context, req chat.Request) (chat.Reply, error) {
	payload := map[string]any{"message": req.Text}
	if req.SessionID != "" {
		payload["conversation_id"] = req.SessionID
	}
	if req.Debug {
		payload["debug"] = true
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("rest: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return chat.Reply{}, fmt.Errorf("rest: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return chat.Reply{}, fmt.Errorf("rest: http request: %w: %w", chat.ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return chat.Reply{}, fmt.Errorf("rest: server returned HTTP %d: %s: %w", resp.StatusCode, detail, chat.ErrBackend)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return chat.Reply{}, fmt.Errorf("rest: parse reply: %w: %w", chat.ErrBackend, err)
	}

	reply := chat.Reply{Text: replyText(raw)}
	if id, ok := raw["conversation_id"].(string); ok {
		reply.SessionID = id
	}
	return reply, nil
}

// replyText extracts the assistant answer from the known field name variants.
func replyText(raw map[string]any) string {
	for _, key := range []string{"reply", "response", "text", "message"} {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
