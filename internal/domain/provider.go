package domain

import (
	"context"
	"io"
)

// Rewriter is a language model that rephrases a prompt into free text.
type Rewriter interface {
	Name() string
	Rewrite(ctx context.Context, prompt string) (string, error)
}

// SpeechToText turns an audio stream into a transcript.
// filename carries the container extension (e.g. "voice.wav").
type SpeechToText interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (*Transcript, error)
}

type Transcript struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}
