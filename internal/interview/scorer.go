package interview

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/commanalyz/commanalyz/pkg/provider/llm"
)

// neutralScore is reported when a question carries no key points: the answer
// cannot be evaluated and must not be punished to zero.
const neutralScore = 75

// Scorer assesses one answer against its question's key points.
type Scorer struct {
	llm llm.Provider
}

// NewScorer creates a Scorer over the given backend.
func NewScorer(p llm.Provider) *Scorer {
	return &Scorer{llm: p}
}

// Score computes the deterministic coverage score and obtains one sentence of
// generative feedback. Unlike summarization, a backend failure here fails the
// whole operation: a score without feedback is not a usable review.
func (s *Scorer) Score(ctx context.Context, questionText, transcript string, keyPoints []string) (AnswerScore, error) {
	matched, missed := coverKeyPoints(transcript, keyPoints)

	score := neutralScore
	if len(keyPoints) > 0 {
		// Half-to-even, so exact .5 percentages land on the even neighbour.
		score = int(math.RoundToEven(float64(matched) / float64(len(keyPoints)) * 100))
	}

	logNearMisses(transcript, missed)

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "user", Content: buildFeedbackPrompt(questionText, transcript, score)},
		},
	})
	if err != nil {
		return AnswerScore{}, fmt.Errorf("interview: score feedback: %w", err)
	}

	return AnswerScore{
		Relevance:   fmt.Sprintf("%d of %d key points covered.", matched, len(keyPoints)),
		Clarity:     "Assessed in feedback.",
		Feedback:    strings.TrimSpace(resp.Content),
		AnswerScore: score,
	}, nil
}

// coverKeyPoints counts key points present in the transcript via
// case-insensitive whole-word matching and returns the unmatched rest.
func coverKeyPoints(transcript string, keyPoints []string) (matched int, missed []string) {
	for _, point := range keyPoints {
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(strings.ToLower(point)) + `\b`)
		if err != nil {
			missed = append(missed, point)
			continue
		}
		if pattern.MatchString(transcript) {
			matched++
		} else {
			missed = append(missed, point)
		}
	}
	return matched, missed
}

// buildFeedbackPrompt asks for one constructive sentence grounded in the
// computed score.
func buildFeedbackPrompt(questionText, transcript string, score int) string {
	return fmt.Sprintf(`As an AI Interview Coach, analyze the following answer, for which I have already calculated a score of %d/100.
Question: %q
User's Answer: %q
Your task: Based on the score and the answer, write one single, constructive sentence of feedback.`, score, questionText, transcript)
}

// logNearMisses flags unmatched single-word key points that sound like a word
// the candidate actually said. Diagnostics only; the score is already final.
func logNearMisses(transcript string, missed []string) {
	if len(missed) == 0 {
		return
	}
	words := strings.Fields(strings.ToLower(transcript))

	for _, point := range missed {
		p := strings.ToLower(strings.TrimSpace(point))
		if p == "" || strings.ContainsRune(p, ' ') {
			continue
		}
		pPrimary, pSecondary := matchr.DoubleMetaphone(p)
		for _, w := range words {
			wPrimary, wSecondary := matchr.DoubleMetaphone(w)
			phonetic := pPrimary != "" && (pPrimary == wPrimary || pPrimary == wSecondary || pSecondary == wPrimary)
			if phonetic || matchr.JaroWinkler(p, w, false) > 0.9 {
				slog.Debug("key point near miss",
					"key_point", point,
					"heard", w,
				)
				break
			}
		}
	}
}
