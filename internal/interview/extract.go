package interview

import (
	"encoding/json"
	"regexp"
	"strings"
)

// bracePattern matches minimal brace-delimited spans, across newlines. It
// cannot handle nested objects, which is fine here: question candidates are
// flat three-field objects.
var bracePattern = regexp.MustCompile(`(?s)\{.*?\}`)

// extractCandidates pulls question candidates out of free-text backend
// output. The backend is prompted for a strict JSON array but its output is
// not contractually guaranteed to be one, so parsing is a best-effort
// fallback chain:
//
//  1. strict: the whole response is a JSON array (or single object)
//  2. fenced: same, after stripping markdown code fences
//  3. brace scan: every minimal {...} span parsed individually
//
// Any stage may yield zero candidates; extraction never fails. Candidates
// missing any of the three required fields are discarded silently.
func extractCandidates(response string) []Question {
	text := strings.TrimSpace(response)

	if qs := parseStrict(text); qs != nil {
		return qs
	}

	stripped := stripFences(text)
	if stripped != text {
		if qs := parseStrict(stripped); qs != nil {
			return qs
		}
	}

	var out []Question
	for _, span := range bracePattern.FindAllString(stripped, -1) {
		var q Question
		if err := json.Unmarshal([]byte(span), &q); err != nil {
			continue
		}
		if valid(q) {
			out = append(out, q)
		}
	}
	return out
}

// parseStrict tries the whole text as a JSON array of candidates, then as a
// single candidate object. Returns nil when neither parse yields a valid
// candidate.
func parseStrict(text string) []Question {
	var list []Question
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		var out []Question
		for _, q := range list {
			if valid(q) {
				out = append(out, q)
			}
		}
		if len(out) > 0 {
			return out
		}
		return nil
	}

	var single Question
	if err := json.Unmarshal([]byte(text), &single); err == nil && valid(single) {
		return []Question{single}
	}
	return nil
}

// stripFences removes markdown code-fence wrappers, tolerating a language tag
// after the opening fence.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// valid reports whether a candidate carries all three required fields.
func valid(q Question) bool {
	return strings.TrimSpace(q.Question) != "" &&
		q.KeyPoints != nil &&
		strings.TrimSpace(q.ModelAnswer) != ""
}
