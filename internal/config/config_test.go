package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/commanalyz/commanalyz/internal/config"
)

const fullYAML = `
server:
  listen_addr: ":8080"
  log_level: debug
  tls:
    cert_file: /etc/certs/server.pem
    key_file: /etc/certs/server.key
providers:
  llm:
    name: gemini
    api_key: test-key
    model: gemini-2.0-flash
    fallbacks:
      - name: ollama
        base_url: "http://localhost:11434"
        model: llama3
      - name: openai
        api_key: fallback-key
        model: gpt-4o-mini
  stt:
    name: whisper
    base_url: "http://localhost:9000"
    model: base.en
  emotion:
    name: tfserve
    base_url: "http://localhost:8501"
    model: fer2013
analysis:
  min_audio_bytes: 150
chat:
  store: postgres
  postgres_dsn: "postgres://localhost/commanalyz"
  session_ttl: 30m
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Server.TLS == nil || cfg.Server.TLS.CertFile != "/etc/certs/server.pem" {
		t.Errorf("unexpected TLS config: %+v", cfg.Server.TLS)
	}

	if cfg.Providers.LLM.Name != "gemini" {
		t.Errorf("llm name = %q, want gemini", cfg.Providers.LLM.Name)
	}
	if cfg.Providers.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("llm model = %q", cfg.Providers.LLM.Model)
	}
	if len(cfg.Providers.LLM.Fallbacks) != 2 {
		t.Fatalf("expected 2 fallbacks, got %d", len(cfg.Providers.LLM.Fallbacks))
	}
	if cfg.Providers.LLM.Fallbacks[0].Name != "ollama" {
		t.Errorf("first fallback = %q, want ollama", cfg.Providers.LLM.Fallbacks[0].Name)
	}

	if cfg.Providers.STT.Name != "whisper" || cfg.Providers.STT.BaseURL != "http://localhost:9000" {
		t.Errorf("unexpected stt entry: %+v", cfg.Providers.STT)
	}
	if cfg.Providers.Emotion.Name != "tfserve" || cfg.Providers.Emotion.Model != "fer2013" {
		t.Errorf("unexpected emotion entry: %+v", cfg.Providers.Emotion)
	}

	if cfg.Analysis.MinAudioBytes != 150 {
		t.Errorf("min_audio_bytes = %d, want 150", cfg.Analysis.MinAudioBytes)
	}

	if cfg.Chat.Store != config.StorePostgres {
		t.Errorf("chat store = %q, want postgres", cfg.Chat.Store)
	}
	if cfg.Chat.SessionTTL != 30*time.Minute {
		t.Errorf("session_ttl = %v, want 30m", cfg.Chat.SessionTTL)
	}
}

func TestLoadFromReader_MinimalConfig(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: gemini
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.LLM.Name != "gemini" {
		t.Errorf("llm name = %q, want gemini", cfg.Providers.LLM.Name)
	}
	if cfg.Chat.Store != "" {
		t.Errorf("chat store should default empty, got %q", cfg.Chat.Store)
	}
}

func TestLoadFromReader_EmptyProvidersIsValid(t *testing.T) {
	t.Parallel()
	// An empty provider set starts a server where generative operations
	// report the missing backend per request.
	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_addr: \":8080\"\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()
	valid := []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError}
	for _, l := range valid {
		if !l.IsValid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if config.LogLevel("trace").IsValid() {
		t.Error("trace should not be valid")
	}
}

func TestStoreKind_IsValid(t *testing.T) {
	t.Parallel()
	if !config.StoreMemory.IsValid() || !config.StorePostgres.IsValid() {
		t.Error("built-in store kinds should be valid")
	}
	if config.StoreKind("redis").IsValid() {
		t.Error("redis should not be valid")
	}
}

func TestProviderEntry_Options(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: whisper-native
    model: /models/ggml-base.en.bin
    options:
      language: en
      rms_threshold: 250
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := cfg.Providers.STT.Options
	if opts["language"] != "en" {
		t.Errorf("options.language = %v, want en", opts["language"])
	}
	if opts["rms_threshold"] != 250 {
		t.Errorf("options.rms_threshold = %v, want 250", opts["rms_threshold"])
	}
}
