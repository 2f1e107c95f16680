// Package stt defines the Transcriber interface for speech-to-text backends.
//
// A transcriber takes a complete recorded utterance as 16-bit signed
// little-endian PCM audio and returns its text. Unlike streaming dictation
// engines, the assessment flow always works on finished recordings, so the
// interface is batch-only.
//
// Implementors must be safe for concurrent use.
package stt

import "context"

// Result is the outcome of a transcription.
//
// An utterance containing no recognisable speech is not an error: the backend
// reports it through NoSpeech so callers can distinguish "the audio was silent
// or unintelligible" from "the backend failed".
type Result struct {
	// Text is the transcribed text, trimmed. Empty when NoSpeech is true.
	Text string

	// NoSpeech is true when the backend processed the audio successfully but
	// found no speech in it.
	NoSpeech bool
}

// Transcriber is the abstraction over any speech-to-text backend.
//
// Implementations must be safe for concurrent use from multiple goroutines
// and must propagate context cancellation promptly.
type Transcriber interface {
	// Transcribe runs inference over a complete utterance. pcm is raw 16-bit
	// signed little-endian mono PCM at the given sample rate.
	//
	// Returns an error only for backend failures (network, model). Silent or
	// unintelligible audio is reported via Result.NoSpeech.
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (Result, error)
}
