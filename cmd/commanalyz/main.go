// Command commanalyz is the main entry point for the Comm-Analyz interview
// assessment server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/commanalyz/commanalyz/internal/analysis"
	"github.com/commanalyz/commanalyz/internal/chat"
	"github.com/commanalyz/commanalyz/internal/config"
	"github.com/commanalyz/commanalyz/internal/health"
	"github.com/commanalyz/commanalyz/internal/interview"
	"github.com/commanalyz/commanalyz/internal/observe"
	"github.com/commanalyz/commanalyz/internal/resilience"
	"github.com/commanalyz/commanalyz/internal/server"
	"github.com/commanalyz/commanalyz/pkg/provider/emotion"
	"github.com/commanalyz/commanalyz/pkg/provider/emotion/tfserve"
	"github.com/commanalyz/commanalyz/pkg/provider/llm"
	"github.com/commanalyz/commanalyz/pkg/provider/llm/anyllm"
	openaidirect "github.com/commanalyz/commanalyz/pkg/provider/llm/openai"
	"github.com/commanalyz/commanalyz/pkg/provider/stt"
	"github.com/commanalyz/commanalyz/pkg/provider/stt/whisper"
)

const version = "0.1.0"

const (
	// defaultSessionTTL applies when the postgres chat store is selected
	// without an explicit session_ttl.
	defaultSessionTTL = time.Hour

	// sweepInterval is how often expired chat sessions are physically removed.
	sweepInterval = 10 * time.Minute

	// shutdownTimeout bounds the graceful teardown of the HTTP server and
	// the telemetry providers.
	shutdownTimeout = 15 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Optional .env for local development; API keys usually live there.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "commanalyz: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "commanalyz: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("commanalyz starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "commanalyz",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	metrics := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	llmProvider, err := buildLLM(cfg, reg)
	if err != nil {
		slog.Error("failed to build llm provider", "err", err)
		return 1
	}
	transcriber, err := buildTranscriber(cfg, reg)
	if err != nil {
		slog.Error("failed to build stt provider", "err", err)
		return 1
	}
	classifier, err := buildClassifier(cfg, reg)
	if err != nil {
		slog.Error("failed to build emotion provider", "err", err)
		return 1
	}

	// ── Chat store ────────────────────────────────────────────────────────────
	var chatStore chat.Store
	var pgStore *chat.PGStore
	if cfg.Chat.Store == config.StorePostgres {
		ttl := cfg.Chat.SessionTTL
		if ttl <= 0 {
			ttl = defaultSessionTTL
		}
		pgStore, err = chat.NewPGStore(ctx, cfg.Chat.PostgresDSN, ttl)
		if err != nil {
			slog.Error("failed to connect chat store", "err", err)
			return 1
		}
		defer pgStore.Close()
		go pgStore.StartSweeper(ctx, sweepInterval)
		chatStore = pgStore
		slog.Info("chat store ready", "kind", "postgres", "session_ttl", ttl)
	} else {
		chatStore = &chat.MemStore{}
		slog.Info("chat store ready", "kind", "memory")
	}

	// ── Domain services ───────────────────────────────────────────────────────
	var pipelineOpts []analysis.PipelineOption
	if cfg.Analysis.MinAudioBytes > 0 {
		pipelineOpts = append(pipelineOpts, analysis.WithMinAudioBytes(cfg.Analysis.MinAudioBytes))
	}
	pipeline := analysis.NewPipeline(classifier, transcriber, pipelineOpts...)

	deps := server.Deps{
		Analyzer: pipeline,
		Metrics:  metrics,
	}
	if llmProvider != nil {
		deps.Generator = interview.NewGenerator(llmProvider)
		deps.Scorer = interview.NewScorer(llmProvider)
		deps.Summarizer = interview.NewSummarizer(llmProvider)
		deps.Chat = chat.NewManager(chatStore, llmProvider)
	}
	deps.Health = health.New(
		health.LLMChecker(llmProvider),
		health.ConfiguredChecker("stt", transcriber != nil),
		health.ConfiguredChecker("emotion", classifier != nil),
	)

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Any() {
			slog.Info("config file changed, but no hot-applicable fields differ; restart to apply")
			return
		}
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.MinAudioBytesChanged {
			pipeline.SetMinAudioBytes(d.NewMinAudioBytes)
			slog.Info("minimum audio payload updated", "bytes", d.NewMinAudioBytes)
		}
		if d.SessionTTLChanged && pgStore != nil {
			pgStore.SetTTL(new.Chat.SessionTTL)
			slog.Info("chat session ttl updated", "ttl", new.Chat.SessionTTL)
		}
	})
	if err != nil {
		slog.Warn("config watcher not started", "err", err)
	} else {
		defer watcher.Stop()
	}

	printStartupSummary(cfg)

	// ── HTTP server ───────────────────────────────────────────────────────────
	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(deps).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		var serveErr error
		if cfg.Server.TLS != nil {
			serveErr = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			serveErr = srv.ListenAndServe()
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	slog.Info("server ready — press Ctrl+C to shut down", "addr", addr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("server error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown error", "err", err)
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// openai-direct bypasses the any-llm translation layer and talks to the
	// OpenAI API (or a compatible server) with the vendor SDK.
	reg.RegisterLLM("openai-direct", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openaidirect.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaidirect.WithBaseURL(entry.BaseURL))
		}
		return openaidirect.New(entry.APIKey, entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Transcriber, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})

	// ── Emotion ───────────────────────────────────────────────────────────────

	reg.RegisterEmotion("tfserve", func(entry config.ProviderEntry) (emotion.Classifier, error) {
		return tfserve.New(entry.BaseURL, entry.Model)
	})
}

// buildLLM instantiates the primary generative backend and, when fallbacks
// are configured, chains them behind per-provider circuit breakers. A single
// provider is still wrapped so a dead backend trips its breaker instead of
// being hammered on every request.
func buildLLM(cfg *config.Config, reg *config.Registry) (llm.Provider, error) {
	primary := cfg.Providers.LLM.ProviderEntry
	if primary.Name == "" {
		return nil, nil
	}

	p, err := reg.CreateLLM(primary)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", primary.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", primary.Name, "model", primary.Model)

	fb := resilience.NewLLMFallback(p, primary.Name, resilience.FallbackConfig{})
	for _, entry := range cfg.Providers.LLM.Fallbacks {
		fp, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
		}
		fb.AddFallback(entry.Name, fp)
		slog.Info("provider created", "kind", "llm", "name", entry.Name, "model", entry.Model, "role", "fallback")
	}
	return fb, nil
}

// buildTranscriber instantiates the speech-to-text backend behind a circuit
// breaker.
func buildTranscriber(cfg *config.Config, reg *config.Registry) (stt.Transcriber, error) {
	entry := cfg.Providers.STT
	if entry.Name == "" {
		return nil, nil
	}

	p, err := reg.CreateSTT(entry)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", entry.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", entry.Name, "model", entry.Model)

	return resilience.NewTranscriberFallback(p, entry.Name, resilience.FallbackConfig{}), nil
}

// buildClassifier instantiates the facial-emotion backend.
func buildClassifier(cfg *config.Config, reg *config.Registry) (emotion.Classifier, error) {
	entry := cfg.Providers.Emotion
	if entry.Name == "" {
		return nil, nil
	}

	p, err := reg.CreateEmotion(entry)
	if err != nil {
		return nil, fmt.Errorf("create emotion provider %q: %w", entry.Name, err)
	}
	slog.Info("provider created", "kind", "emotion", "name", entry.Name, "model", entry.Model)
	return p, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       Comm-Analyz — startup summary   ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("Emotion", cfg.Providers.Emotion.Name, cfg.Providers.Emotion.Model)
	fmt.Printf("║  LLM fallbacks   : %-19d ║\n", len(cfg.Providers.LLM.Fallbacks))
	store := cfg.Chat.Store
	if store == "" {
		store = config.StoreMemory
	}
	fmt.Printf("║  Chat store      : %-19s ║\n", store)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
