package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/commanalyz/commanalyz/internal/analysis"
	"github.com/commanalyz/commanalyz/internal/chat"
	"github.com/commanalyz/commanalyz/internal/interview"
	"github.com/commanalyz/commanalyz/internal/server"
)

// ─── Fakes ───────────────────────────────────────────────────────────────────

type fakeGenerator struct {
	questions []interview.Question
	err       error
	prompts   []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) ([]interview.Question, error) {
	f.prompts = append(f.prompts, prompt)
	return f.questions, f.err
}

type fakeAnalyzer struct {
	report analysis.Report
	frame  []byte
	audio  []byte
}

func (f *fakeAnalyzer) Analyze(_ context.Context, frame, audio []byte) analysis.Report {
	f.frame = frame
	f.audio = audio
	return f.report
}

type fakeScorer struct {
	score interview.AnswerScore
	err   error
}

func (f *fakeScorer) Score(_ context.Context, _, _ string, _ []string) (interview.AnswerScore, error) {
	return f.score, f.err
}

type fakeSummarizer struct {
	summary interview.Summary
	err     error
	entries []interview.SessionEntry
}

func (f *fakeSummarizer) Summarize(_ context.Context, entries []interview.SessionEntry) (interview.Summary, error) {
	f.entries = entries
	return f.summary, f.err
}

type fakeChat struct {
	session     chat.Session
	startErr    error
	reply       string
	continueErr error
}

func (f *fakeChat) Start(_ context.Context, jobDescription string) (chat.Session, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return chat.Session{}, chat.ErrEmptyJobDescription
	}
	return f.session, f.startErr
}

func (f *fakeChat) Continue(_ context.Context, _, _ string) (string, error) {
	return f.reply, f.continueErr
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func serve(t *testing.T, d server.Deps, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.New(d).Routes().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

// ─── /generate-questions ─────────────────────────────────────────────────────

func TestGenerateQuestions_OK(t *testing.T) {
	gen := &fakeGenerator{questions: []interview.Question{
		{Question: "What is a goroutine?", KeyPoints: []string{"lightweight", "scheduler"}, ModelAnswer: "A goroutine is..."},
		{Question: "Explain channels."},
	}}

	rec := serve(t, server.Deps{Generator: gen}, http.MethodPost, "/generate-questions",
		`{"prompt":"golang backend role"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[[]interview.Question](t, rec)
	if len(got) != 2 {
		t.Fatalf("got %d questions, want 2", len(got))
	}
	if got[0].Question != "What is a goroutine?" {
		t.Errorf("first question = %q", got[0].Question)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != "golang backend role" {
		t.Errorf("generator prompts = %v", gen.prompts)
	}
}

func TestGenerateQuestions_MissingPrompt(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no field", `{}`},
		{"blank", `{"prompt":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, server.Deps{Generator: &fakeGenerator{}}, http.MethodPost, "/generate-questions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			resp := decodeBody[map[string]string](t, rec)
			if resp["error"] != "Prompt required" {
				t.Errorf("error = %q", resp["error"])
			}
		})
	}
}

func TestGenerateQuestions_Shortfall(t *testing.T) {
	gen := &fakeGenerator{err: &interview.ShortfallError{Got: 5}}

	rec := serve(t, server.Deps{Generator: gen}, http.MethodPost, "/generate-questions",
		`{"prompt":"devops"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "Only 5 questions could be generated after retries." {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestGenerateQuestions_NotConfigured(t *testing.T) {
	rec := serve(t, server.Deps{}, http.MethodPost, "/generate-questions", `{"prompt":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

// ─── /analyze ────────────────────────────────────────────────────────────────

func multipartBody(t *testing.T, parts map[string][]byte) (string, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range parts {
		fw, err := mw.CreateFormFile(name, name+".bin")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return mw.FormDataContentType(), &buf
}

func TestAnalyze_OK(t *testing.T) {
	analyzer := &fakeAnalyzer{report: analysis.Report{
		DominantEmotion: "happy",
		TranscribedText: "I designed the caching layer",
		WordsPerMinute:  120,
		FillerWords:     analysis.FillerWords{Count: 1, Words: []string{"like"}},
		SentimentScore:  0.4,
	}}

	ctype, body := multipartBody(t, map[string][]byte{
		"image": []byte("jpeg-bytes"),
		"audio": []byte("wav-bytes"),
	})
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	server.New(server.Deps{Analyzer: analyzer}).Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[analysis.Report](t, rec)
	if got.DominantEmotion != "happy" || got.WordsPerMinute != 120 {
		t.Errorf("unexpected report: %+v", got)
	}
	if string(analyzer.frame) != "jpeg-bytes" {
		t.Errorf("analyzer received frame %q", analyzer.frame)
	}
	if string(analyzer.audio) != "wav-bytes" {
		t.Errorf("analyzer received audio %q", analyzer.audio)
	}
}

func TestAnalyze_MissingPart(t *testing.T) {
	ctype, body := multipartBody(t, map[string][]byte{"image": []byte("jpeg-bytes")})
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	server.New(server.Deps{Analyzer: &fakeAnalyzer{}}).Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "Missing image or audio file" {
		t.Errorf("error = %q", resp["error"])
	}
}

// ─── /expert-review ──────────────────────────────────────────────────────────

func TestExpertReview_OK(t *testing.T) {
	scorer := &fakeScorer{score: interview.AnswerScore{
		Relevance:   "2 of 3 key points covered.",
		Clarity:     "Assessed in feedback.",
		Feedback:    "Good structure, mention trade-offs next time.",
		AnswerScore: 67,
	}}

	rec := serve(t, server.Deps{Scorer: scorer}, http.MethodPost, "/expert-review",
		`{"questionText":"Explain sharding.","transcribedText":"We split by key.","keyPoints":["hash","range","rebalance"]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[interview.AnswerScore](t, rec)
	if got.AnswerScore != 67 {
		t.Errorf("answerScore = %d, want 67", got.AnswerScore)
	}
}

func TestExpertReview_MissingField(t *testing.T) {
	rec := serve(t, server.Deps{Scorer: &fakeScorer{}}, http.MethodPost, "/expert-review",
		`{"questionText":"q","transcribedText":"a"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "Missing required fields." {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestExpertReview_EmptyKeyPointsIsValid(t *testing.T) {
	scorer := &fakeScorer{score: interview.AnswerScore{AnswerScore: 75}}

	rec := serve(t, server.Deps{Scorer: scorer}, http.MethodPost, "/expert-review",
		`{"questionText":"q","transcribedText":"a","keyPoints":[]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
}

func TestExpertReview_BackendError(t *testing.T) {
	scorer := &fakeScorer{err: errors.New("backend exploded")}

	rec := serve(t, server.Deps{Scorer: scorer}, http.MethodPost, "/expert-review",
		`{"questionText":"q","transcribedText":"a","keyPoints":["x"]}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "AI failed to generate feedback." {
		t.Errorf("error = %q", resp["error"])
	}
}

// ─── /summarize-and-score ────────────────────────────────────────────────────

func TestSummarize_OK(t *testing.T) {
	sum := &fakeSummarizer{summary: interview.Summary{Summary: "Strong session.", OverallScore: 82}}

	rec := serve(t, server.Deps{Summarizer: sum}, http.MethodPost, "/summarize-and-score",
		`{"sessionData":[{"question":"q1","answerScore":82}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[interview.Summary](t, rec)
	if got.OverallScore != 82 {
		t.Errorf("overallScore = %d, want 82", got.OverallScore)
	}
	if len(sum.entries) != 1 || sum.entries[0].Question != "q1" {
		t.Errorf("summarizer entries = %+v", sum.entries)
	}
}

func TestSummarize_MissingSessionData(t *testing.T) {
	rec := serve(t, server.Deps{Summarizer: &fakeSummarizer{}}, http.MethodPost, "/summarize-and-score", `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "Missing sessionData" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestSummarize_EmptySessionIsValid(t *testing.T) {
	sum := &fakeSummarizer{summary: interview.Summary{Summary: "No data to analyze.", OverallScore: 0}}

	rec := serve(t, server.Deps{Summarizer: sum}, http.MethodPost, "/summarize-and-score",
		`{"sessionData":[]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[interview.Summary](t, rec)
	if got.Summary != "No data to analyze." || got.OverallScore != 0 {
		t.Errorf("unexpected summary: %+v", got)
	}
}

// ─── /start-jd-chat ──────────────────────────────────────────────────────────

func TestStartChat_OK(t *testing.T) {
	mgr := &fakeChat{session: chat.Session{
		ID:      "abc-123",
		History: []chat.Turn{{Role: chat.RoleAssistant, Content: "I have reviewed the JD."}},
	}}

	rec := serve(t, server.Deps{Chat: mgr}, http.MethodPost, "/start-jd-chat",
		`{"job_description":"Senior Go engineer, Kubernetes experience."}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["session_id"] != "abc-123" {
		t.Errorf("session_id = %q", resp["session_id"])
	}
	if resp["initial_ai_message"] != "I have reviewed the JD." {
		t.Errorf("initial_ai_message = %q", resp["initial_ai_message"])
	}
}

func TestStartChat_EmptyJobDescription(t *testing.T) {
	rec := serve(t, server.Deps{Chat: &fakeChat{}}, http.MethodPost, "/start-jd-chat",
		`{"job_description":"  "}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["error"] != "Job description is required to start chat." {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestStartChat_NotConfigured(t *testing.T) {
	rec := serve(t, server.Deps{}, http.MethodPost, "/start-jd-chat", `{"job_description":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

// ─── /jd-chat ────────────────────────────────────────────────────────────────

func TestChat_OK(t *testing.T) {
	mgr := &fakeChat{reply: "The JD emphasizes distributed systems."}

	rec := serve(t, server.Deps{Chat: mgr}, http.MethodPost, "/jd-chat",
		`{"session_id":"abc-123","user_message":"What should I highlight?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[map[string]string](t, rec)
	if resp["ai_message"] != "The JD emphasizes distributed systems." {
		t.Errorf("ai_message = %q", resp["ai_message"])
	}
}

func TestChat_UnknownSession(t *testing.T) {
	mgr := &fakeChat{continueErr: chat.ErrSessionNotFound}

	rec := serve(t, server.Deps{Chat: mgr}, http.MethodPost, "/jd-chat",
		`{"session_id":"nope","user_message":"hello"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeBody[map[string]string](t, rec)
	if !strings.Contains(resp["error"], "not found or expired") {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestChat_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no session id", `{"user_message":"hi"}`},
		{"blank message", `{"session_id":"abc","user_message":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, server.Deps{Chat: &fakeChat{}}, http.MethodPost, "/jd-chat", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

// ─── Probes and metrics ──────────────────────────────────────────────────────

func TestRoutes_Healthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.New(server.Deps{}).Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRoutes_Metrics(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.New(server.Deps{}).Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
