// Package interview implements the assessment workflows built on a
// generative text backend: question-batch generation with deduplication and
// bounded retries, deterministic key-point scoring with generative feedback,
// and end-of-session summarization.
package interview

import "fmt"

// questionTarget is the fixed batch size every generation run must reach.
const questionTarget = 8

// Question is one generated interview question with its scoring material.
type Question struct {
	// Question is the question text shown to the candidate.
	Question string `json:"question"`

	// KeyPoints are the reference phrases a good answer should cover,
	// in the order the backend produced them.
	KeyPoints []string `json:"keyPoints"`

	// ModelAnswer is a reference answer for review after scoring.
	ModelAnswer string `json:"modelAnswer"`
}

// AnswerScore is the assessment of one answer against its question.
type AnswerScore struct {
	// Relevance reports key-point coverage, e.g. "2 of 3 key points covered.".
	Relevance string `json:"relevance"`

	// Clarity is a fixed pointer to the feedback text.
	Clarity string `json:"clarity"`

	// Feedback is one constructive sentence from the generative backend.
	Feedback string `json:"feedback"`

	// AnswerScore is the coverage percentage in [0, 100].
	AnswerScore int `json:"answerScore"`
}

// Summary is the end-of-session result.
type Summary struct {
	// Summary is the generative closing text, or a fixed substitute when the
	// backend fails.
	Summary string `json:"summary"`

	// OverallScore is the rounded mean of the per-answer scores.
	OverallScore int `json:"overallScore"`
}

// ShortfallError reports a generation run that could not assemble the full
// question batch within its attempt budget.
type ShortfallError struct {
	// Got is the number of unique valid questions collected.
	Got int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("interview: only %d of %d questions could be generated after retries", e.Got, questionTarget)
}
