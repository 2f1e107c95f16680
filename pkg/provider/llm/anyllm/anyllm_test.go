package anyllm

import (
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/commanalyz/commanalyz/pkg/provider/llm"
)

// ── Constructor ───────────────────────────────────────────────────────────────

// TestNew_EmptyProviderName checks that an empty provider name returns an error.
func TestNew_EmptyProviderName(t *testing.T) {
	_, err := New("", "gemini-1.5-flash")
	if err == nil {
		t.Fatal("expected error for empty providerName")
	}
}

// TestNew_EmptyModel checks that an empty model name returns an error.
func TestNew_EmptyModel(t *testing.T) {
	_, err := New("gemini", "")
	if err == nil {
		t.Fatal("expected error for empty model")
	}
}

// TestNew_UnsupportedProvider checks that an unsupported provider returns an error.
func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy"))
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

// TestNew_Gemini_WithAPIKey checks that the Gemini backend constructs successfully with an API key.
func TestNew_Gemini_WithAPIKey(t *testing.T) {
	p, err := NewGemini("gemini-1.5-flash", anyllmlib.WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil provider")
	}
	if p.model != "gemini-1.5-flash" {
		t.Errorf("expected model gemini-1.5-flash, got %q", p.model)
	}
}

// TestNew_OpenAI_MissingAPIKey checks that OpenAI returns an error when no API key is available.
// This relies on OPENAI_API_KEY not being set in the test environment.
func TestNew_OpenAI_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "") // Ensure env var is clear.
	_, err := New("openai", "gpt-4o")
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

// TestNew_Ollama_NoAPIKey checks that Ollama works without an API key.
func TestNew_Ollama_NoAPIKey(t *testing.T) {
	p, err := NewOllama("llama3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected non-nil provider")
	}
}

// TestConvenienceConstructors checks all convenience constructors delegate correctly.
func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name string
		fn   func() (*Provider, error)
	}{
		{"NewGemini", func() (*Provider, error) { return NewGemini("gemini-1.5-flash", anyllmlib.WithAPIKey("test")) }},
		{"NewOpenAI", func() (*Provider, error) { return NewOpenAI("gpt-4o-mini", anyllmlib.WithAPIKey("sk-test")) }},
		{"NewAnthropic", func() (*Provider, error) {
			return NewAnthropic("claude-3-5-sonnet-latest", anyllmlib.WithAPIKey("sk-ant-test"))
		}},
		{"NewOllama", func() (*Provider, error) { return NewOllama("llama3") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.fn()
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.name, err)
			}
			if p == nil {
				t.Fatalf("%s: expected non-nil provider", tt.name)
			}
		})
	}
}

// ── buildParams ───────────────────────────────────────────────────────────────

// TestBuildParams_SystemPromptFirst checks the system prompt becomes the first message.
func TestBuildParams_SystemPromptFirst(t *testing.T) {
	p := &Provider{model: "gemini-1.5-flash"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are an interview coach.",
		Messages:     []llm.Message{{Role: "user", Content: "Hello"}},
	})
	if len(params.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("expected first message role system, got %q", params.Messages[0].Role)
	}
	if params.Messages[1].Role != "user" {
		t.Errorf("expected second message role user, got %q", params.Messages[1].Role)
	}
}

// TestBuildParams_Sampling checks temperature and max tokens are set only when non-zero.
func TestBuildParams_Sampling(t *testing.T) {
	p := &Provider{model: "gemini-1.5-flash"}

	params := p.buildParams(llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: "Hi"}},
		Temperature: 0.7,
		MaxTokens:   256,
	})
	if params.Temperature == nil || *params.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 256 {
		t.Errorf("expected max tokens 256, got %v", params.MaxTokens)
	}

	defaults := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	if defaults.Temperature != nil {
		t.Errorf("expected nil temperature for zero value, got %v", *defaults.Temperature)
	}
	if defaults.MaxTokens != nil {
		t.Errorf("expected nil max tokens for zero value, got %v", *defaults.MaxTokens)
	}
}

// TestBuildParams_Model checks the configured model name is carried through.
func TestBuildParams_Model(t *testing.T) {
	p := &Provider{model: "gemini-1.5-flash"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "Hi"}},
	})
	if params.Model != "gemini-1.5-flash" {
		t.Errorf("expected model gemini-1.5-flash, got %q", params.Model)
	}
}

// ── CountTokens ───────────────────────────────────────────────────────────────

// TestCountTokens_Estimation checks that token counting returns a reasonable value.
func TestCountTokens_Estimation(t *testing.T) {
	p := &Provider{model: "gemini-1.5-flash"}
	msgs := []llm.Message{
		{Role: "user", Content: "Hello world"}, // 11 chars → ~3 tokens + 4 overhead = 7
	}
	count, err := p.CountTokens(msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count <= 0 {
		t.Errorf("expected positive token count, got %d", count)
	}
}

// TestCountTokens_Empty checks that an empty message list returns zero tokens.
func TestCountTokens_Empty(t *testing.T) {
	p := &Provider{model: "gemini-1.5-flash"}
	count, err := p.CountTokens(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 tokens for empty messages, got %d", count)
	}
}

// TestCountTokens_MultipleMessages checks that multiple messages accumulate correctly.
func TestCountTokens_MultipleMessages(t *testing.T) {
	p := &Provider{model: "gemini-1.5-flash"}
	msgs := []llm.Message{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there, how can I help?"},
	}
	count, err := p.CountTokens(msgs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	singleCount, _ := p.CountTokens(msgs[:1])
	if count <= singleCount {
		t.Errorf("expected more tokens for two messages than one: %d <= %d", count, singleCount)
	}
}
