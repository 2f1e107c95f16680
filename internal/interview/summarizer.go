package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/commanalyz/commanalyz/pkg/provider/llm"
)

// Fixed summary texts.
const (
	// summaryNoData is returned for an empty session.
	summaryNoData = "No data to analyze."

	// summaryFallback substitutes the generative summary when the backend
	// fails; the computed score is still returned.
	summaryFallback = "The AI summary could not be generated, but your results have been saved."

	// defaultOverallScore is used when no entry carries a score.
	defaultOverallScore = 70
)

// SessionEntry is one answered question as accumulated by the client over a
// practice session. Only AnswerScore participates in the overall score; the
// rest is context for the generative summary.
type SessionEntry struct {
	Question        string `json:"question,omitempty"`
	TranscribedText string `json:"transcribedText,omitempty"`
	Feedback        string `json:"feedback,omitempty"`

	// AnswerScore is nil for entries that were never scored; such entries
	// are excluded from the mean.
	AnswerScore *int `json:"answerScore,omitempty"`
}

// Summarizer produces the end-of-session closing summary and overall score.
type Summarizer struct {
	llm llm.Provider
}

// NewSummarizer creates a Summarizer over the given backend.
func NewSummarizer(p llm.Provider) *Summarizer {
	return &Summarizer{llm: p}
}

// Summarize aggregates the per-answer scores and asks the backend for a
// short encouraging summary. A backend failure is explicitly non-fatal here:
// the fixed substitute text is returned together with the correctly computed
// score. An empty session yields {summaryNoData, 0}.
func (s *Summarizer) Summarize(ctx context.Context, entries []SessionEntry) (Summary, error) {
	if len(entries) == 0 {
		return Summary{Summary: summaryNoData, OverallScore: 0}, nil
	}

	overall := overallScore(entries)

	prompt, err := buildSummaryPrompt(entries)
	if err != nil {
		return Summary{}, fmt.Errorf("interview: summarize: %w", err)
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		slog.Warn("session summary generation failed, using fallback text", "error", err)
		return Summary{Summary: summaryFallback, OverallScore: overall}, nil
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		text = summaryFallback
	}
	return Summary{Summary: text, OverallScore: overall}, nil
}

// overallScore is the rounded mean over the entries that carry a score,
// or defaultOverallScore when none do.
func overallScore(entries []SessionEntry) int {
	var sum, n int
	for _, e := range entries {
		if e.AnswerScore != nil {
			sum += *e.AnswerScore
			n++
		}
	}
	if n == 0 {
		return defaultOverallScore
	}
	return int(math.RoundToEven(float64(sum) / float64(n)))
}

// buildSummaryPrompt embeds the session data as indented JSON.
func buildSummaryPrompt(entries []SessionEntry) (string, error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session data: %w", err)
	}
	return fmt.Sprintf("Based on the following interview data, write a concise, encouraging summary of the performance (2-3 sentences), mentioning one key strength and one area for improvement.\nData: %s", data), nil
}
