package analysis

import (
	"math"
	"strings"
)

// fillerSet is the fixed filler vocabulary checked against transcript tokens.
//
// Matching is single-token membership: the transcript is whitespace-tokenized
// and each token is looked up here. The multi-word entries ("you know",
// "i mean") therefore never match a tokenized transcript. This is a known
// precision gap kept for output stability; fixing it would require n-gram
// matching and would change reported counts.
var fillerSet = map[string]struct{}{
	"um":        {},
	"uh":        {},
	"er":        {},
	"ah":        {},
	"like":      {},
	"okay":      {},
	"right":     {},
	"so":        {},
	"you know":  {},
	"actually":  {},
	"basically": {},
	"literally": {},
	"well":      {},
	"i mean":    {},
}

// Metrics holds the delivery statistics computed from one transcript.
type Metrics struct {
	// FillerCount is the total number of filler tokens.
	FillerCount int

	// FillerWords is the deduplicated set of matched fillers in first-seen order.
	FillerWords []string

	// WordsPerMinute is (words/durationSeconds)*60 rounded half-to-even,
	// or 0 when the duration is not positive.
	WordsPerMinute int

	// Sentiment is the lexicon polarity of the transcript in [-1, 1].
	Sentiment float64
}

// AnalyzeTranscript computes delivery metrics for a transcript of the given
// spoken duration. It is pure and deterministic: the same inputs always yield
// the same metrics.
func AnalyzeTranscript(text string, durationSeconds float64) Metrics {
	tokens := tokenize(text)

	m := Metrics{Sentiment: sentimentOf(tokens)}

	seen := map[string]bool{}
	for _, tok := range tokens {
		if _, ok := fillerSet[tok]; !ok {
			continue
		}
		m.FillerCount++
		if !seen[tok] {
			seen[tok] = true
			m.FillerWords = append(m.FillerWords, tok)
		}
	}

	if durationSeconds > 0 {
		m.WordsPerMinute = int(math.RoundToEven(float64(len(tokens)) / durationSeconds * 60))
	}

	return m
}

// tokenize lower-cases text, strips commas and periods, and splits on
// whitespace.
func tokenize(text string) []string {
	replacer := strings.NewReplacer(",", "", ".", "")
	return strings.Fields(replacer.Replace(strings.ToLower(text)))
}
