package resilience

import (
	"context"

	"github.com/commanalyz/commanalyz/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across multiple
// generative backends. Each backend has its own circuit breaker; when the
// primary fails or its breaker is open, the next healthy fallback is tried.
//
// Question generation retries its own attempts on top of this layer; the two
// are independent. This layer handles transport-level provider health, the
// retry loop handles incomplete generations.
type LLMFallback struct {
	group *FallbackGroup[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional backend as a fallback.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends the request to the first healthy backend and returns its
// response. If the primary fails, subsequent fallbacks are tried.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// CountTokens delegates to the primary's token counter. Token estimation is
// model-specific, so it does not participate in failover.
func (f *LLMFallback) CountTokens(messages []llm.Message) (int, error) {
	if len(f.group.entries) > 0 {
		return f.group.entries[0].value.CountTokens(messages)
	}
	return 0, ErrAllFailed
}
