package health

import (
	"context"
	"errors"
	"testing"

	"github.com/commanalyz/commanalyz/pkg/provider/llm"
	llmmock "github.com/commanalyz/commanalyz/pkg/provider/llm/mock"
)

func TestLLMChecker_Healthy(t *testing.T) {
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "pong"},
	}
	c := LLMChecker(p)

	if err := c.Check(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.CompleteCalls) != 1 {
		t.Fatalf("expected 1 probe call, got %d", len(p.CompleteCalls))
	}
	if got := p.CompleteCalls[0].Req.MaxTokens; got != 1 {
		t.Errorf("expected a one-token probe, got MaxTokens=%d", got)
	}
}

func TestLLMChecker_BackendError(t *testing.T) {
	p := &llmmock.Provider{CompleteErr: errors.New("invalid api key")}
	if err := LLMChecker(p).Check(context.Background()); err == nil {
		t.Fatal("expected error for failing backend")
	}
}

func TestLLMChecker_NilProvider(t *testing.T) {
	if err := LLMChecker(nil).Check(context.Background()); err == nil {
		t.Fatal("expected error for nil provider")
	}
}

func TestConfiguredChecker(t *testing.T) {
	if err := ConfiguredChecker("stt", true).Check(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ConfiguredChecker("stt", false).Check(context.Background()); err == nil {
		t.Error("expected error when unconfigured")
	}
}
