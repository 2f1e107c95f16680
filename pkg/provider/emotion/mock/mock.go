// Package mock provides a test double for the emotion.Classifier interface.
package mock

import (
	"context"
	"sync"

	"github.com/commanalyz/commanalyz/pkg/provider/emotion"
)

// ClassifyCall records a single invocation of Classify.
type ClassifyCall struct {
	// Ctx is the context passed to Classify.
	Ctx context.Context
	// Frame is the frame passed to Classify.
	Frame emotion.Frame
}

// Classifier is a mock implementation of emotion.Classifier.
// Zero values cause Classify to return a zero Distribution and nil error.
type Classifier struct {
	mu sync.Mutex

	// Distribution is returned by Classify.
	Distribution emotion.Distribution

	// Err, if non-nil, is returned as the error from Classify.
	Err error

	// Calls records every invocation of Classify in order.
	Calls []ClassifyCall
}

// Classify records the call and returns Distribution, Err.
func (m *Classifier) Classify(ctx context.Context, frame emotion.Frame) (emotion.Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := make(emotion.Frame, len(frame))
	copy(f, frame)
	m.Calls = append(m.Calls, ClassifyCall{Ctx: ctx, Frame: f})
	return m.Distribution, m.Err
}

// Reset clears all recorded calls. Thread-safe.
func (m *Classifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// Ensure Classifier implements emotion.Classifier at compile time.
var _ emotion.Classifier = (*Classifier)(nil)
