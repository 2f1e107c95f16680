// Package tfserve provides an emotion.Classifier backed by a TensorFlow
// Serving model server hosting a FER2013-family classifier.
//
// The frame is submitted to the server's REST predict endpoint
// (POST /v1/models/<name>:predict) as a single 48×48×1 instance; the
// response carries one seven-way softmax vector per instance.
//
// Usage:
//
//	c, err := tfserve.New("http://localhost:8501", "fer2013")
//	dist, err := c.Classify(ctx, frame)
package tfserve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/commanalyz/commanalyz/pkg/provider/emotion"
)

// Compile-time assertion that Classifier implements emotion.Classifier.
var _ emotion.Classifier = (*Classifier)(nil)

// Option is a functional option for configuring a Classifier.
type Option func(*Classifier)

// WithHTTPClient overrides the HTTP client used for predict requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Classifier) {
		cl.httpClient = c
	}
}

// Classifier implements emotion.Classifier backed by a TensorFlow Serving
// REST endpoint. It is stateless between calls and safe for concurrent use.
type Classifier struct {
	serverURL  string
	modelName  string
	httpClient *http.Client
}

// New creates a Classifier that connects to the TensorFlow Serving instance
// at serverURL (e.g., "http://localhost:8501") hosting the named model.
func New(serverURL, modelName string, opts ...Option) (*Classifier, error) {
	if serverURL == "" {
		return nil, errors.New("tfserve: serverURL must not be empty")
	}
	if modelName == "" {
		return nil, errors.New("tfserve: modelName must not be empty")
	}
	c := &Classifier{
		serverURL:  serverURL,
		modelName:  modelName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Classify implements emotion.Classifier.
func (c *Classifier) Classify(ctx context.Context, frame emotion.Frame) (emotion.Distribution, error) {
	var dist emotion.Distribution

	if len(frame) != emotion.FrameWidth*emotion.FrameHeight {
		return dist, fmt.Errorf("tfserve: frame must have %d values, got %d",
			emotion.FrameWidth*emotion.FrameHeight, len(frame))
	}

	// Reshape the flat frame into the 48×48×1 tensor layout the model expects.
	instance := make([][][]float32, emotion.FrameHeight)
	for y := range instance {
		row := make([][]float32, emotion.FrameWidth)
		for x := range row {
			row[x] = []float32{frame[y*emotion.FrameWidth+x]}
		}
		instance[y] = row
	}

	payload, err := json.Marshal(map[string]any{
		"instances": []any{instance},
	})
	if err != nil {
		return dist, fmt.Errorf("tfserve: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/models/%s:predict", c.serverURL, c.modelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return dist, fmt.Errorf("tfserve: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dist, fmt.Errorf("tfserve: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dist, fmt.Errorf("tfserve: server returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var result struct {
		Predictions [][]float64 `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return dist, fmt.Errorf("tfserve: parse JSON response: %w", err)
	}
	if len(result.Predictions) == 0 || len(result.Predictions[0]) != len(dist) {
		return dist, fmt.Errorf("tfserve: expected one %d-way prediction, got %v", len(dist), result.Predictions)
	}

	copy(dist[:], result.Predictions[0])
	return dist, nil
}
