// Package mock provides a test double for the stt.Transcriber interface.
//
// Use Transcriber in unit tests to feed controlled transcription results
// without a live whisper backend.
package mock

import (
	"context"
	"sync"

	"github.com/commanalyz/commanalyz/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// PCM is the audio payload passed to Transcribe.
	PCM []byte
	// SampleRate is the sample rate passed to Transcribe.
	SampleRate int
}

// Transcriber is a mock implementation of stt.Transcriber.
// Zero values cause Transcribe to return a zero Result and nil error.
type Transcriber struct {
	mu sync.Mutex

	// Result is returned by Transcribe.
	Result stt.Result

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns Result, Err.
func (m *Transcriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (stt.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	m.Calls = append(m.Calls, TranscribeCall{Ctx: ctx, PCM: buf, SampleRate: sampleRate})
	return m.Result, m.Err
}

// Reset clears all recorded calls. Thread-safe.
func (m *Transcriber) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// Ensure Transcriber implements stt.Transcriber at compile time.
var _ stt.Transcriber = (*Transcriber)(nil)
