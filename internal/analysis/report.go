// Package analysis implements the per-answer multi-modal assessment: facial
// emotion inference over the captured frame, speech-to-text over the recorded
// answer, and linguistic delivery metrics over the transcript.
//
// The two modalities degrade independently. A failure in either path is
// represented by a sentinel field value in the composite report; Analyze
// never returns an error to the caller.
package analysis

// Sentinel values used in reports when a modality degrades.
const (
	// EmotionNotDetected is reported when the frame is missing, undecodable,
	// or the classifier backend fails.
	EmotionNotDetected = "not_detected"

	// TextError is reported when the audio payload is missing, too small,
	// undecodable, or the transcriber backend fails.
	TextError = "error"

	// TextNoSpeech is reported when the transcriber processed the audio but
	// found no recognisable speech in it.
	TextNoSpeech = "Could not understand audio"
)

// FillerWords summarises filler usage in a transcript.
type FillerWords struct {
	// Count is the total number of filler tokens found.
	Count int `json:"count"`

	// Words is the deduplicated set of matched fillers in first-seen order.
	Words []string `json:"words"`
}

// Report is the composite result of analysing one submitted answer.
// It is immutable once produced and never stored server-side.
type Report struct {
	// DominantEmotion is the argmax emotion label, or EmotionNotDetected.
	DominantEmotion string `json:"dominantEmotion"`

	// TranscribedText is the transcript, or one of the text sentinels.
	TranscribedText string `json:"transcribedText"`

	// WordsPerMinute is the speaking rate; 0 when the duration is unknown.
	WordsPerMinute int `json:"wordsPerMinute"`

	// FillerWords summarises filler usage; zero-valued for sentinel text.
	FillerWords FillerWords `json:"fillerWords"`

	// SentimentScore is the transcript polarity in [-1, 1].
	SentimentScore float64 `json:"sentimentScore"`
}
