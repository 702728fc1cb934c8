// Package core defines the domain types and capability interfaces for the
// narration service.
package core

import "context"

// Chapter is one titled unit of source text, produced by the document parser.
// Ordinal is the zero-based position of the chapter in the source document.
type Chapter struct {
	Title   string
	Body    string
	Ordinal int
}

// CaptionUnit is one subtitle cue's worth of text. Text never exceeds the
// configured character bound unless a single unsplittable token does.
type CaptionUnit struct {
	Text    string
	Ordinal int
}

// CueTiming holds the start and end of one caption unit, in seconds from the
// beginning of the chapter's audio.
type CueTiming struct {
	StartSeconds float64
	EndSeconds   float64
}

// SpeechEngine defines the capability of rendering text into audio bytes.
// Engines report failure distinctly from success; a nil error with empty
// audio is never a valid result.
type SpeechEngine interface {
	Synthesize(ctx context.Context, text string, voice string) ([]byte, error)
	EngineID() string
}

// DurationProber reports the playing time of rendered audio in seconds.
// The boolean is false when the duration cannot be determined, which is a
// normal outcome rather than an error.
type DurationProber interface {
	DurationSeconds(audio []byte) (float64, bool)
}

// Rewriter converts raw extracted text into speech-friendly prose. It is
// fallible; implementations are expected to fall back to a deterministic
// cleanup instead of failing the chapter outright.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) (string, error)
}

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}
