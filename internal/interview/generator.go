package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/commanalyz/commanalyz/pkg/provider/llm"
)

const (
	// maxAttempts caps the number of backend rounds per generation run,
	// independent of how many questions are still missing.
	maxAttempts = 3

	// generateTemperature matches the sampling used for question batches.
	generateTemperature = 0.7

	// generateMaxTokens bounds one batch response.
	generateMaxTokens = 1024

	// nearDuplicateThreshold is the Jaro-Winkler similarity above which two
	// accepted questions are flagged in debug logs. Flagged questions are
	// still kept: only exact normalized-text duplicates are rejected.
	nearDuplicateThreshold = 0.92
)

// Generator assembles fixed-size batches of unique interview questions from
// a generative backend.
type Generator struct {
	llm llm.Provider
}

// NewGenerator creates a Generator over the given backend.
func NewGenerator(p llm.Provider) *Generator {
	return &Generator{llm: p}
}

// Generate produces exactly questionTarget unique questions for the given
// free-text prompt. Each attempt requests only the missing count and lists
// already-accepted texts as exclusions. If the batch is still short after
// maxAttempts rounds, Generate returns a *ShortfallError carrying the count
// achieved.
func (g *Generator) Generate(ctx context.Context, prompt string) ([]Question, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("interview: generate: prompt must not be empty")
	}

	state := newGenState()

	for attempt := 1; attempt <= maxAttempts && len(state.collected) < questionTarget; attempt++ {
		remaining := questionTarget - len(state.collected)

		resp, err := g.llm.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				{Role: "user", Content: buildGeneratePrompt(prompt, remaining, state.collected)},
			},
			Temperature: generateTemperature,
			MaxTokens:   generateMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("interview: generate attempt %d: %w", attempt, err)
		}

		accepted := state.accept(extractCandidates(resp.Content))

		logNearDuplicates(state.collected, accepted)
		slog.Debug("question generation attempt finished",
			"attempt", attempt,
			"accepted", len(accepted),
			"collected", len(state.collected),
		)
	}

	if len(state.collected) < questionTarget {
		return nil, &ShortfallError{Got: len(state.collected)}
	}
	return state.collected, nil
}

// genState is the accumulation state of one generation run.
type genState struct {
	collected []Question
	seen      map[string]bool
}

func newGenState() *genState {
	return &genState{seen: map[string]bool{}}
}

// accept folds candidates into the state: exact normalized-text duplicates
// and already-seen questions are skipped, insertion order of first acceptance
// is kept, and accumulation stops at questionTarget. It returns the newly
// accepted questions and has no side effects beyond the state itself.
func (s *genState) accept(candidates []Question) []Question {
	var accepted []Question
	for _, q := range candidates {
		if len(s.collected) >= questionTarget {
			break
		}
		q.Question = strings.TrimSpace(q.Question)
		key := normalizeQuestion(q.Question)
		if key == "" || s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.collected = append(s.collected, q)
		accepted = append(accepted, q)
	}
	return accepted
}

// normalizeQuestion lower-cases and collapses whitespace for deduplication.
func normalizeQuestion(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// buildGeneratePrompt asks for the missing questions while excluding the
// texts already accepted in this run.
func buildGeneratePrompt(userPrompt string, remaining int, collected []Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the user request: %q, generate %d interview questions.\n", userPrompt, remaining)

	if len(collected) > 0 {
		b.WriteString("Only generate questions that are DIFFERENT from the ones already listed below:\n")
		for _, q := range collected {
			fmt.Fprintf(&b, "- %s\n", q.Question)
		}
	}

	b.WriteString("\nRespond strictly as a JSON array. Each item must have these three fields:\n")
	b.WriteString(`"question", "keyPoints", and "modelAnswer".`)
	return b.String()
}

// logNearDuplicates flags accepted questions that are suspiciously similar to
// an earlier one. Diagnostics only; near-duplicates are never rejected.
func logNearDuplicates(collected, accepted []Question) {
	for _, q := range accepted {
		qn := normalizeQuestion(q.Question)
		for _, other := range collected {
			on := normalizeQuestion(other.Question)
			if on == qn {
				continue
			}
			if sim := matchr.JaroWinkler(qn, on, false); sim > nearDuplicateThreshold {
				slog.Debug("near-duplicate question accepted",
					"question", q.Question,
					"similar_to", other.Question,
					"similarity", sim,
				)
			}
		}
	}
}
