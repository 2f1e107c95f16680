package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":     {"gemini", "openai", "openai-direct", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":     {"whisper", "whisper-native"},
	"emotion": {"tfserve"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	for _, fb := range cfg.Providers.LLM.Fallbacks {
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("emotion", cfg.Providers.Emotion.Name)

	// Provider availability warnings. A missing generative backend does not
	// block startup; the affected operations report it per request.
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no generative backend configured; question generation, scoring, summaries, and chat will be unavailable")
	}
	if cfg.Providers.LLM.Name == "" && len(cfg.Providers.LLM.Fallbacks) > 0 {
		errs = append(errs, errors.New("providers.llm.fallbacks requires a primary providers.llm.name"))
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no transcription backend configured; answer analysis will report transcription errors")
	}
	if cfg.Providers.Emotion.Name == "" {
		slog.Warn("no emotion model configured; answer analysis will report emotion as not detected")
	}

	// Analysis
	if cfg.Analysis.MinAudioBytes < 0 {
		errs = append(errs, fmt.Errorf("analysis.min_audio_bytes %d must not be negative", cfg.Analysis.MinAudioBytes))
	}

	// Chat store
	if cfg.Chat.Store != "" && !cfg.Chat.Store.IsValid() {
		errs = append(errs, fmt.Errorf("chat.store %q is invalid; valid values: memory, postgres", cfg.Chat.Store))
	}
	if cfg.Chat.Store == StorePostgres && cfg.Chat.PostgresDSN == "" {
		errs = append(errs, errors.New("chat.postgres_dsn is required when chat.store is postgres"))
	}
	if cfg.Chat.SessionTTL < 0 {
		errs = append(errs, fmt.Errorf("chat.session_ttl %v must not be negative", cfg.Chat.SessionTTL))
	}
	if cfg.Chat.Store != StorePostgres && cfg.Chat.SessionTTL > 0 {
		slog.Warn("chat.session_ttl is only applied by the postgres store", "store", cfg.Chat.Store)
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
