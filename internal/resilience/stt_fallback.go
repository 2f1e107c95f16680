package resilience

import (
	"context"

	"github.com/commanalyz/commanalyz/pkg/provider/stt"
)

// TranscriberFallback implements [stt.Transcriber] with automatic failover
// across multiple transcription backends. Each backend has its own circuit
// breaker.
//
// A no-speech result counts as success: the backend answered, the clip was
// simply silent.
type TranscriberFallback struct {
	group *FallbackGroup[stt.Transcriber]
}

// Compile-time interface assertion.
var _ stt.Transcriber = (*TranscriberFallback)(nil)

// NewTranscriberFallback creates a [TranscriberFallback] with primary as the
// preferred backend.
func NewTranscriberFallback(primary stt.Transcriber, primaryName string, cfg FallbackConfig) *TranscriberFallback {
	return &TranscriberFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional transcriber as a fallback.
func (f *TranscriberFallback) AddFallback(name string, provider stt.Transcriber) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs the clip through the first healthy backend. If the primary
// fails, subsequent fallbacks are tried with the same audio.
func (f *TranscriberFallback) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (stt.Result, error) {
	return ExecuteWithResult(f.group, func(p stt.Transcriber) (stt.Result, error) {
		return p.Transcribe(ctx, pcm, sampleRate)
	})
}
