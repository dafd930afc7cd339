package llmdirect

import (
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/vortexai/vortex-edge/pkg/provider/chat"
)

// ── Constructor ───────────────────────────────────────────────────────────────

func TestNew_EmptyProviderName(t *testing.T) {
	_, err := New("", "gpt-4o", nil)
	if err == nil {
		t.Fatal("expected error for empty providerName")
	}
}

func TestNew_EmptyModel(t *testing.T) {
	_, err := New("openai", "", nil)
	if err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New("fakecloud", "some-model", []anyllmlib.Option{anyllmlib.WithAPIKey("dummy")})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNew_Ollama_NoAPIKey(t *testing.T) {
	c, err := New("ollama", "llama3", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.systemPrompt == "" {
		t.Error("expected a default system prompt")
	}
}

func TestNew_WithSystemPrompt(t *testing.T) {
	c, err := New("ollama", "llama3", nil, WithSystemPrompt("Be terse."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.systemPrompt != "Be terse." {
		t.Errorf("expected custom system prompt, got %q", c.systemPrompt)
	}
}

// ── History ───────────────────────────────────────────────────────────────────

func TestBuildParams_IncludesSystemPromptAndHistory(t *testing.T) {
	c := &Client{
		model:        "llama3",
		systemPrompt: "Be terse.",
		maxHistory:   40,
		sessions:     make(map[string][]anyllmlib.Message),
	}
	c.remember("s1", "What time is it?", "It is noon.")

	params := c.buildParams(chat.Request{Text: "Thanks!", SessionID: "s1"})
	if params.Model != "llama3" {
		t.Errorf("expected model llama3, got %q", params.Model)
	}
	if len(params.Messages) != 4 {
		t.Fatalf("expected 4 messages (system + 2 history + user), got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("expected first message role system, got %q", params.Messages[0].Role)
	}
	last := params.Messages[len(params.Messages)-1]
	if last.Content != "Thanks!" {
		t.Errorf("expected last message to be the new user text, got %q", last.Content)
	}
}

func TestBuildParams_SessionsAreIsolated(t *testing.T) {
	c := &Client{
		model:      "llama3",
		maxHistory: 40,
		sessions:   make(map[string][]anyllmlib.Message),
	}
	c.remember("s1", "hello", "hi")

	params := c.buildParams(chat.Request{Text: "anyone?", SessionID: "s2"})
	if len(params.Messages) != 1 {
		t.Fatalf("expected only the new user message for a fresh session, got %d", len(params.Messages))
	}
}

func TestRemember_TrimsOldestBeyondCap(t *testing.T) {
	c := &Client{
		model:      "llama3",
		maxHistory: 4,
		sessions:   make(map[string][]anyllmlib.Message),
	}
	c.remember("s1", "one", "1")
	c.remember("s1", "two", "2")
	c.remember("s1", "three", "3")

	history := c.sessions["s1"]
	if len(history) != 4 {
		t.Fatalf("expected history capped at 4 messages, got %d", len(history))
	}
	if history[0].Content != "two" {
		t.Errorf("expected oldest exchange dropped, first message is %q", history[0].Content)
	}
}

func TestRemember_SkipsEmptyReplies(t *testing.T) {
	c := &Client{
		model:      "llama3",
		maxHistory: 40,
		sessions:   make(map[string][]anyllmlib.Message),
	}
	c.remember("s1", "hello", "")
	if len(c.sessions["s1"]) != 0 {
		t.Errorf("expected nothing stored for an empty reply, got %d messages", len(c.sessions["s1"]))
	}
}
