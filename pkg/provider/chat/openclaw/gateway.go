// Package openclaw provides chat clients for OpenClaw agent deployments.
//
// Two transports are supported:
//
//   - [Gateway] speaks the gateway's native WebSocket protocol: a connect
//     handshake authenticated with a token and a persistent Ed25519 device
//     identity, then chat.send requests answered by streamed chat/agent
//     events.
//   - [HTTPClient] (http.go) uses the gateway's OpenAI-compatible chat
//     completions endpoint, including SSE streaming.
package openclaw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/vortexai/vortex-edge/internal/identity"
	"github.com/vortexai/vortex-edge/pkg/provider/chat"
)

const (
	protocolVersion   = 3
	defaultTimeout    = 60 * time.Second
	challengeWait     = time.Second
	defaultSessionKey = "main"
)

// Compile-time assertions.
var (
	_ chat.Client          = (*Gateway)(nil)
	_ chat.StreamingClient = (*Gateway)(nil)
)

// GatewayOption is a functional option for configuring a Gateway.
type GatewayOption func(*Gateway)

// WithToken sets the gateway authentication token.
func WithToken(token string) GatewayOption {
	return func(g *Gateway) { g.token = token }
}

// WithPassword sets the gateway password, used when no token is configured.
func WithPassword(password string) GatewayOption {
	return func(g *Gateway) { g.password = password }
}

// WithSessionKey sets the agent session key. Defaults to "main".
func WithSessionKey(key string) GatewayOption {
	return func(g *Gateway) { g.sessionKey = key }
}

// WithGatewayTimeout bounds each handshake and reply wait. Defaults to 60s.
func WithGatewayTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// Gateway implements chat.Client and chat.StreamingClient over the OpenClaw
// WebSocket protocol. The connection is established lazily on the first
// request and reused afterwards; a dead connection is re-dialed on the next
// request. One request runs at a time.
type Gateway struct {
	url        string
	token      string
	password   string
	sessionKey string
	timeout    time.Duration
	deviceID   string
	identity   *identity.Identity

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewGateway creates a Gateway client for the WebSocket endpoint at url
// (e.g., "ws://localhost:18789"), authenticating with the given device
// identity.
func NewGateway(url, deviceID string, id *identity.Identity, opts ...GatewayOption) (*Gateway, error) {
	if url == "" {
		return nil, errors.New("openclaw: gateway url must not be empty")
	}
	if id == nil {
		return nil, errors.New("openclaw: device identity must not be nil")
	}
	if deviceID == "" {
		deviceID = "vortex-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	g := &Gateway{
		url:        strings.TrimRight(url, "/"),
		sessionKey: defaultSessionKey,
		timeout:    defaultTimeout,
		deviceID:   deviceID,
		identity:   id,
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// ─── wire types ───────────────────────────────────────────────────────────────

type wireError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type wireFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event,omitempty"`
	OK      bool            `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *wireError      `json:"error,omitempty"`
}

type wireRequest struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type chatEventPayload struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
	Delta  struct {
		Text string `json:"text"`
	} `json:"delta"`
	Text    string     `json:"text"`
	Content string     `json:"content"`
	Error   *wireError `json:"error"`
}

// ─── connection ───────────────────────────────────────────────────────────────

// ensureConnected dials and performs the connect handshake if needed.
// Caller must hold g.mu.
func (g *Gateway) ensureConnected(ctx context.Context) error {
	if g.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, g.url, nil)
	if err != nil {
		return fmt.Errorf("openclaw: dial gateway: %w: %w", chat.ErrBackend, err)
	}
	conn.SetReadLimit(16 << 20)

	nonce, err := g.awaitChallenge(ctx, conn)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return err
	}

	reqID := uuid.NewString()
	req := wireRequest{
		Type:   "req",
		ID:     reqID,
		Method: "connect",
		Params: g.connectParams(nonce),
	}
	if err := writeFrame(ctx, conn, req); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return err
	}

	res, err := g.awaitResponse(ctx, conn, reqID, nil)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return err
	}
	if !res.OK {
		conn.Close(websocket.StatusNormalClosure, "rejected")
		msg := "unknown error"
		if res.Error != nil {
			msg = res.Error.Message
		}
		return fmt.Errorf("openclaw: gateway rejected connect (device %s may need pairing approval): %s: %w", g.deviceID, msg, chat.ErrBackend)
	}

	g.conn = conn
	return nil
}

// awaitChallenge waits briefly for a connect.challenge event. Gateways that
// do not challenge proceed straight to the connect request.
func (g *Gateway) awaitChallenge(ctx context.Context, conn *websocket.Conn) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, challengeWait)
	defer cancel()

	frame, err := readFrame(waitCtx, conn)
	if err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return "", nil // no challenge offered
		}
		return "", fmt.Errorf("openclaw: read challenge: %w: %w", chat.ErrBackend, err)
	}
	if frame.Type == "event" && frame.Event == "connect.challenge" {
		var payload struct {
			Nonce string `json:"nonce"`
		}
		if err := json.Unmarshal(frame.Payload, &payload); err == nil {
			return payload.Nonce, nil
		}
	}
	return "", nil
}

// connectParams builds the connect handshake parameters, signing the
// challenge nonce when one was issued and the device id otherwise.
func (g *Gateway) connectParams(nonce string) map[string]any {
	auth := map[string]any{}
	if g.token != "" {
		auth["token"] = g.token
	} else if g.password != "" {
		auth["password"] = g.password
	}

	signed := g.deviceID
	if nonce != "" {
		signed = nonce
	}
	device := map[string]any{
		"id":        g.deviceID,
		"publicKey": g.identity.PublicKey(),
		"signature": g.identity.Sign([]byte(signed)),
		"signedAt":  time.Now().UnixMilli(),
	}
	if nonce != "" {
		device["nonce"] = nonce
	}

	return map[string]any{
		"minProtocol": protocolVersion,
		"maxProtocol": protocolVersion,
		"client": map[string]any{
			"id":      "vortex-edge",
			"version": "1.0.0",
			"mode":    "cli",
		},
		"role":      "operator",
		"scopes":    []string{"operator.read", "operator.write"},
		"auth":      auth,
		"locale":    "en-US",
		"userAgent": "vortex-edge/1.0.0",
		"device":    device,
	}
}

// awaitResponse reads frames until the response matching reqID arrives.
// Events received along the way are handed to onEvent when it is non-nil.
func (g *Gateway) awaitResponse(ctx context.Context, conn *websocket.Conn, reqID string, onEvent func(wireFrame) error) (wireFrame, error) {
	for {
		frame, err := readFrame(ctx, conn)
		if err != nil {
			return wireFrame{}, fmt.Errorf("openclaw: read response: %w: %w", chat.ErrBackend, err)
		}
		if frame.Type == "event" {
			if onEvent != nil {
				if err := onEvent(frame); err != nil {
					return wireFrame{}, err
				}
			}
			continue
		}
		if frame.Type == "res" && frame.ID == reqID {
			return frame, nil
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("openclaw: marshal frame: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("openclaw: write frame: %w: %w", chat.ErrBackend, err)
	}
	return nil
}

func readFrame(ctx context.Context, conn *websocket.Conn) (wireFrame, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return wireFrame{}, err
	}
	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return wireFrame{}, fmt.Errorf("parse frame %q: %w", data, err)
	}
	return frame, nil
}

// dropConn closes and forgets the connection so the next request re-dials.
// Caller must hold g.mu.
func (g *Gateway) dropConn() {
	if g.conn != nil {
		g.conn.Close(websocket.StatusInternalError, "resetting")
		g.conn = nil
	}
}

// Close tears down the gateway connection.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn != nil {
		err := g.conn.Close(websocket.StatusNormalClosure, "")
		g.conn = nil
		return err
	}
	return nil
}

// ─── chat ─────────────────────────────────────────────────────────────────────

// Chat implements chat.Client: one chat.send request, reply accumulated from
// the run's chat/agent events.
func (g *Gateway) Chat(ctx context.Context, req chat.Request) (chat.Reply, error) {
	var text strings.Builder
	err := g.run(ctx, req, func(chunk string) error {
		text.WriteString(chunk)
		return nil
	})
	if err != nil {
		return chat.Reply{}, err
	}
	if text.Len() == 0 {
		return chat.Reply{}, fmt.Errorf("openclaw: empty response from agent: %w", chat.ErrBackend)
	}
	return chat.Reply{Text: text.String(), SessionID: req.SessionID}, nil
}

// ChatStream implements chat.StreamingClient. Chunks arrive as the agent
// produces them.
func (g *Gateway) ChatStream(ctx context.Context, req chat.Request) (*chat.Stream, error) {
	stream := chat.NewStream(32)
	go func() {
		err := g.run(ctx, req, func(chunk string) error {
			if !stream.Push(ctx, chunk) {
				return ctx.Err()
			}
			return nil
		})
		stream.SessionID = req.SessionID
		stream.CloseWithError(err)
	}()
	return stream, nil
}

// run executes one chat.send exchange, invoking emit for every text delta,
// until the run reports a terminal status.
func (g *Gateway) run(ctx context.Context, req chat.Request, emit func(string) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ensureConnected(ctx); err != nil {
		return err
	}

	runID := uuid.NewString()
	reqID := uuid.NewString()
	send := wireRequest{
		Type:   "req",
		ID:     reqID,
		Method: "chat.send",
		Params: map[string]any{
			"sessionKey":     g.sessionKey,
			"text":           req.Text,
			"runId":          runID,
			"idempotencyKey": uuid.NewString(),
			"thinking":       req.Debug,
			"verbose":        req.Debug,
		},
	}
	if err := writeFrame(ctx, g.conn, send); err != nil {
		g.dropConn()
		return err
	}

	done := false
	emitted := false
	handleEvent := func(frame wireFrame) error {
		if frame.Event != "chat" && frame.Event != "agent" {
			return nil
		}
		var payload chatEventPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return nil // tolerate unknown event shapes
		}
		if payload.RunID != runID {
			return nil
		}
		if payload.Delta.Text != "" {
			emitted = true
			if err := emit(payload.Delta.Text); err != nil {
				return err
			}
		}
		switch payload.Status {
		case "done", "completed", "ok":
			// Agent completions may carry the full text instead of deltas.
			if !emitted && frame.Event == "agent" {
				full := payload.Text
				if full == "" {
					full = payload.Content
				}
				if full != "" {
					if err := emit(full); err != nil {
						return err
					}
				}
			}
			done = true
		case "error":
			msg := "unknown error"
			if payload.Error != nil {
				msg = payload.Error.Message
			}
			return fmt.Errorf("openclaw: chat run failed: %s: %w", msg, chat.ErrBackend)
		}
		return nil
	}

	// The acknowledgment may arrive after the first chat events.
	ack, err := g.awaitResponse(ctx, g.conn, reqID, handleEvent)
	if err != nil {
		g.dropConn()
		return err
	}
	if !ack.OK {
		msg := "unknown error"
		if ack.Error != nil {
			msg = ack.Error.Message
		}
		return fmt.Errorf("openclaw: chat.send rejected: %s: %w", msg, chat.ErrBackend)
	}

	for !done {
		frame, err := readFrame(ctx, g.conn)
		if err != nil {
			g.dropConn()
			return fmt.Errorf("openclaw: read chat events: %w: %w", chat.ErrBackend, err)
		}
		if frame.Type != "event" {
			continue
		}
		if err := handleEvent(frame); err != nil {
			return err
		}
	}
	return nil
}
