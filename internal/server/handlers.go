package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/commanalyz/commanalyz/internal/chat"
	"github.com/commanalyz/commanalyz/internal/interview"
)

// Fixed response texts. These match what clients of the service expect.
const (
	msgNotConfigured     = "AI service is not configured correctly."
	msgChatNotConfigured = "AI chat service is not configured correctly. Check API key or model availability."
	msgSessionNotFound   = "Chat session not found or expired. Please start a new session."
)

type generateQuestionsRequest struct {
	Prompt *string `json:"prompt"`
}

// handleGenerateQuestions serves POST /generate-questions. A partial batch
// after the attempt budget is a 500 whose message carries the achieved count.
func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeError(w, http.StatusServiceUnavailable, msgNotConfigured)
		return
	}

	var req generateQuestionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Prompt == nil || strings.TrimSpace(*req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Prompt required")
		return
	}

	questions, err := s.generator.Generate(r.Context(), *req.Prompt)
	if err != nil {
		var shortfall *interview.ShortfallError
		if errors.As(err, &shortfall) {
			s.metrics.RecordQuestionBatch(r.Context(), "partial")
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("Only %d questions could be generated after retries.", shortfall.Got))
			return
		}
		slog.Error("question generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate 8 complete questions.")
		return
	}

	s.metrics.RecordQuestionBatch(r.Context(), "complete")
	writeJSON(w, http.StatusOK, questions)
}

// handleAnalyze serves POST /analyze. The request is multipart with an
// "image" and an "audio" part; the response is always 200 once both parts are
// present, with degraded modalities reported as sentinel field values.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, msgNotConfigured)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Missing image or audio file")
		return
	}

	frame, err := formFileBytes(r, "image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing image or audio file")
		return
	}
	audio, err := formFileBytes(r, "audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing image or audio file")
		return
	}

	start := time.Now()
	report := s.analyzer.Analyze(r.Context(), frame, audio)
	s.metrics.AnalysisDuration.Record(r.Context(), time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, report)
}

// formFileBytes reads one named multipart part fully into memory.
func formFileBytes(r *http.Request, name string) ([]byte, error) {
	f, _, err := r.FormFile(name)
	if err != nil {
		return nil, fmt.Errorf("form file %q: %w", name, err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

type expertReviewRequest struct {
	QuestionText    *string   `json:"questionText"`
	TranscribedText *string   `json:"transcribedText"`
	KeyPoints       *[]string `json:"keyPoints"`
}

// handleExpertReview serves POST /expert-review. All three fields must be
// present; an empty key-point list is valid and yields the neutral score.
func (s *Server) handleExpertReview(w http.ResponseWriter, r *http.Request) {
	if s.scorer == nil {
		writeError(w, http.StatusServiceUnavailable, msgNotConfigured)
		return
	}

	var req expertReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.QuestionText == nil || req.TranscribedText == nil || req.KeyPoints == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields.")
		return
	}

	score, err := s.scorer.Score(r.Context(), *req.QuestionText, *req.TranscribedText, *req.KeyPoints)
	if err != nil {
		slog.Error("expert review failed", "error", err)
		writeError(w, http.StatusInternalServerError, "AI failed to generate feedback.")
		return
	}

	s.metrics.AnswersScored.Add(r.Context(), 1)
	writeJSON(w, http.StatusOK, score)
}

type summarizeRequest struct {
	SessionData *[]interview.SessionEntry `json:"sessionData"`
}

// handleSummarize serves POST /summarize-and-score. An empty session is a
// valid request and yields the fixed no-data summary.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		writeError(w, http.StatusServiceUnavailable, msgNotConfigured)
		return
	}

	var req summarizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionData == nil {
		writeError(w, http.StatusBadRequest, "Missing sessionData")
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), *req.SessionData)
	if err != nil {
		slog.Error("session summarization failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to summarize session.")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type startChatRequest struct {
	JobDescription string `json:"job_description"`
}

type startChatResponse struct {
	SessionID        string `json:"session_id"`
	InitialAIMessage string `json:"initial_ai_message"`
}

// handleStartChat serves POST /start-jd-chat.
func (s *Server) handleStartChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, msgChatNotConfigured)
		return
	}

	var req startChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := s.chat.Start(r.Context(), req.JobDescription)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyJobDescription) {
			writeError(w, http.StatusBadRequest, "Job description is required to start chat.")
			return
		}
		slog.Error("chat session start failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start JD chat session. AI might be temporarily unavailable.")
		return
	}

	s.metrics.ActiveChatSessions.Add(r.Context(), 1)
	s.metrics.RecordChatTurn(r.Context(), chat.RoleAssistant)

	var greeting string
	if len(session.History) > 0 {
		greeting = session.History[0].Content
	}
	writeJSON(w, http.StatusOK, startChatResponse{
		SessionID:        session.ID,
		InitialAIMessage: greeting,
	})
}

type chatRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

type chatResponse struct {
	AIMessage string `json:"ai_message"`
}

// handleChat serves POST /jd-chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, msgChatNotConfigured)
		return
	}

	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.UserMessage) == "" {
		writeError(w, http.StatusBadRequest, "Session ID and user message are required.")
		return
	}

	reply, err := s.chat.Continue(r.Context(), req.SessionID, req.UserMessage)
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, msgSessionNotFound)
		return
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "Session ID and user message are required.")
		return
	case err != nil:
		slog.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get AI response for chat message. AI might be temporarily unavailable.")
		return
	}

	s.metrics.RecordChatTurn(r.Context(), chat.RoleUser)
	s.metrics.RecordChatTurn(r.Context(), chat.RoleAssistant)
	writeJSON(w, http.StatusOK, chatResponse{AIMessage: reply})
}
