// Package emotion defines the Classifier interface for facial-emotion
// inference backends.
//
// A classifier takes a preprocessed face frame (48×48 grayscale, normalised
// to [0, 1]) and returns a probability distribution over the seven FER2013
// emotion labels.
//
// Implementors must be safe for concurrent use. Classifiers are lenient by
// contract: a blank or featureless frame yields a best-effort distribution,
// not an error.
package emotion

import "context"

// Frame dimensions expected by FER2013-family models.
const (
	FrameWidth  = 48
	FrameHeight = 48
)

// Labels is the fixed FER2013 label set, in model output order.
var Labels = [7]string{"Angry", "Disgust", "Fear", "Happy", "Sad", "Surprise", "Neutral"}

// Frame is a preprocessed grayscale face image: FrameWidth*FrameHeight
// float32 values in row-major order, each normalised to [0, 1].
type Frame []float32

// Distribution holds one score per entry of Labels, in the same order.
// Scores are model outputs and need not sum exactly to 1.
type Distribution [7]float64

// Dominant returns the label with the highest score and that score.
// Ties resolve to the earliest label in model output order.
func (d Distribution) Dominant() (string, float64) {
	best := 0
	for i := 1; i < len(d); i++ {
		if d[i] > d[best] {
			best = i
		}
	}
	return Labels[best], d[best]
}

// Classifier is the abstraction over any facial-emotion inference backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and must propagate context cancellation promptly.
type Classifier interface {
	// Classify runs inference over a single preprocessed frame.
	//
	// Returns an error only for backend failures (network, model). Frames
	// with no clear affect still produce a valid distribution.
	Classify(ctx context.Context, frame Frame) (Distribution, error)
}
