// Package server exposes the assessment operations over HTTP: question
// generation, multi-modal answer analysis, expert review, session
// summarization, and the job-description coaching chat.
//
// Handlers translate between the JSON wire format and the domain packages;
// they hold no business logic of their own. Dependencies arrive as narrow
// interfaces so tests can inject fakes per operation.
package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/commanalyz/commanalyz/internal/analysis"
	"github.com/commanalyz/commanalyz/internal/chat"
	"github.com/commanalyz/commanalyz/internal/health"
	"github.com/commanalyz/commanalyz/internal/interview"
	"github.com/commanalyz/commanalyz/internal/observe"
)

// maxUploadBytes bounds one multipart /analyze request body.
const maxUploadBytes = 32 << 20

// Analyzer produces the composite report for one frame/audio pair.
type Analyzer interface {
	Analyze(ctx context.Context, frame, audio []byte) analysis.Report
}

// Generator assembles one batch of interview questions.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]interview.Question, error)
}

// Scorer assesses one answer against its question's key points.
type Scorer interface {
	Score(ctx context.Context, questionText, transcript string, keyPoints []string) (interview.AnswerScore, error)
}

// Summarizer produces the end-of-session summary and overall score.
type Summarizer interface {
	Summarize(ctx context.Context, entries []interview.SessionEntry) (interview.Summary, error)
}

// ChatManager drives job-description coaching sessions.
type ChatManager interface {
	Start(ctx context.Context, jobDescription string) (chat.Session, error)
	Continue(ctx context.Context, id, message string) (string, error)
}

// Deps holds one value per operation dependency. A nil entry means the
// operation is not configured; its handler then reports 503 per request.
type Deps struct {
	Analyzer   Analyzer
	Generator  Generator
	Scorer     Scorer
	Summarizer Summarizer
	Chat       ChatManager

	Health  *health.Handler
	Metrics *observe.Metrics
}

// Server routes HTTP requests to the assessment operations.
type Server struct {
	analyzer   Analyzer
	generator  Generator
	scorer     Scorer
	summarizer Summarizer
	chat       ChatManager

	health  *health.Handler
	metrics *observe.Metrics
}

// New creates a Server over the given dependencies. Health defaults to a
// handler without readiness checks and Metrics to the process-wide instance.
func New(d Deps) *Server {
	if d.Health == nil {
		d.Health = health.New()
	}
	if d.Metrics == nil {
		d.Metrics = observe.DefaultMetrics()
	}
	return &Server{
		analyzer:   d.Analyzer,
		generator:  d.Generator,
		scorer:     d.Scorer,
		summarizer: d.Summarizer,
		chat:       d.Chat,
		health:     d.Health,
		metrics:    d.Metrics,
	}
}

// Routes builds the full handler: the six operation routes, the health
// probes, and the Prometheus scrape endpoint, all wrapped in the tracing and
// request-metrics middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /generate-questions", s.handleGenerateQuestions)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /expert-review", s.handleExpertReview)
	mux.HandleFunc("POST /summarize-and-score", s.handleSummarize)
	mux.HandleFunc("POST /start-jd-chat", s.handleStartChat)
	mux.HandleFunc("POST /jd-chat", s.handleChat)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}
