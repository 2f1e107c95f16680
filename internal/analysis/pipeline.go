package analysis

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/commanalyz/commanalyz/pkg/media"
	"github.com/commanalyz/commanalyz/pkg/provider/emotion"
	"github.com/commanalyz/commanalyz/pkg/provider/stt"
)

const (
	// defaultMinAudioBytes guards against empty or truncated uploads: audio
	// payloads below this size are rejected with the TextError sentinel
	// before any decoding is attempted.
	defaultMinAudioBytes = 100

	// transcribeSampleRate is the mono sample rate clips are normalised to
	// before transcription.
	transcribeSampleRate = 16000
)

// PipelineOption is a functional option for configuring a Pipeline.
type PipelineOption func(*Pipeline)

// WithMinAudioBytes overrides the minimum audio payload size.
func WithMinAudioBytes(n int) PipelineOption {
	return func(p *Pipeline) { p.minAudioBytes.Store(int64(n)) }
}

// Pipeline orchestrates emotion classification, transcription, and linguistic
// analysis over one submitted answer. Safe for concurrent use.
type Pipeline struct {
	classifier  emotion.Classifier
	transcriber stt.Transcriber

	// minAudioBytes is atomic so the threshold can follow config reloads
	// while requests are in flight.
	minAudioBytes atomic.Int64
}

// NewPipeline creates a Pipeline over the given backends. Either backend may
// be nil; the corresponding modality then degrades to its sentinel value.
func NewPipeline(classifier emotion.Classifier, transcriber stt.Transcriber, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		classifier:  classifier,
		transcriber: transcriber,
	}
	p.minAudioBytes.Store(defaultMinAudioBytes)
	for _, o := range opts {
		o(p)
	}
	return p
}

// SetMinAudioBytes updates the minimum audio payload size.
func (p *Pipeline) SetMinAudioBytes(n int) {
	p.minAudioBytes.Store(int64(n))
}

// Analyze produces the composite report for one frame/audio pair. The two
// modalities run concurrently and degrade independently; Analyze never
// returns an error.
func (p *Pipeline) Analyze(ctx context.Context, frame, audio []byte) Report {
	report := Report{
		DominantEmotion: EmotionNotDetected,
		TranscribedText: TextError,
		FillerWords:     FillerWords{Words: []string{}},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		report.DominantEmotion = p.analyzeFrame(gctx, frame)
		return nil
	})
	g.Go(func() error {
		text, metrics := p.analyzeAudio(gctx, audio)
		report.TranscribedText = text
		report.WordsPerMinute = metrics.WordsPerMinute
		report.SentimentScore = metrics.Sentiment
		report.FillerWords = FillerWords{Count: metrics.FillerCount, Words: metrics.FillerWords}
		if report.FillerWords.Words == nil {
			report.FillerWords.Words = []string{}
		}
		return nil
	})

	// The goroutines only write disjoint report fields and never fail.
	_ = g.Wait()

	return report
}

// analyzeFrame runs the frame modality and returns the emotion label, or the
// EmotionNotDetected sentinel on any failure.
func (p *Pipeline) analyzeFrame(ctx context.Context, frameBytes []byte) string {
	if len(frameBytes) == 0 || p.classifier == nil {
		return EmotionNotDetected
	}

	frame, err := media.DecodeFrame(frameBytes)
	if err != nil {
		slog.Debug("pipeline: frame decode failed", "error", err)
		return EmotionNotDetected
	}

	dist, err := p.classifier.Classify(ctx, frame)
	if err != nil {
		slog.Warn("pipeline: emotion classification failed", "error", err)
		return EmotionNotDetected
	}

	label, _ := dist.Dominant()
	return label
}

// analyzeAudio runs the audio modality. It returns the transcript (or a text
// sentinel) and the linguistic metrics, which are zero-valued whenever the
// transcript is a sentinel.
func (p *Pipeline) analyzeAudio(ctx context.Context, audioBytes []byte) (string, Metrics) {
	if int64(len(audioBytes)) < p.minAudioBytes.Load() || p.transcriber == nil {
		return TextError, Metrics{}
	}

	clip, err := media.DecodeWAV(audioBytes)
	if err != nil {
		slog.Debug("pipeline: audio decode failed", "error", err)
		return TextError, Metrics{}
	}
	normalized := media.NormalizeClip(clip, transcribeSampleRate)

	res, err := p.transcriber.Transcribe(ctx, normalized.PCM, transcribeSampleRate)
	if err != nil {
		slog.Warn("pipeline: transcription failed", "error", err)
		return TextError, Metrics{}
	}
	if res.NoSpeech {
		return TextNoSpeech, Metrics{}
	}

	// Duration comes from the original clip, before resampling.
	return res.Text, AnalyzeTranscript(res.Text, clip.Duration().Seconds())
}
