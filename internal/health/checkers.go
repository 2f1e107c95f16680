package health

import (
	"context"
	"errors"

	"github.com/commanalyz/commanalyz/pkg/provider/llm"
)

// LLMChecker probes the generative backend with a minimal one-token
// completion. A misconfigured key or unreachable model surfaces here before
// any real request pays for the discovery.
func LLMChecker(p llm.Provider) Checker {
	return Checker{
		Name: "llm",
		Check: func(ctx context.Context) error {
			if p == nil {
				return errors.New("no generative backend configured")
			}
			_, err := p.Complete(ctx, llm.CompletionRequest{
				Messages:  []llm.Message{{Role: "user", Content: "ping"}},
				MaxTokens: 1,
			})
			return err
		},
	}
}

// ConfiguredChecker reports failure while configured is false. It covers
// optional dependencies (transcriber, emotion model) that are wired at
// startup or not at all.
func ConfiguredChecker(name string, configured bool) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			if !configured {
				return errors.New(name + " is not configured")
			}
			return nil
		},
	}
}
