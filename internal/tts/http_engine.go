package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/audio"
)

// EngineIDHTTP identifies the standalone speech-service backend.
const EngineIDHTTP = "http"

// HTTPEngine renders narration through the speech service HTTP API. Long
// chapters are split into sentence-bounded requests and the rendered
// segments concatenated into one audio stream.
type HTTPEngine struct {
	client          *HTTPClient
	log             *logger.Logger
	maxRequestChars int
}

// NewHTTPEngine creates an engine backed by the speech service at baseURL.
func NewHTTPEngine(
	baseURL string,
	timeout time.Duration,
	log *logger.Logger,
) *HTTPEngine {
	return &HTTPEngine{
		client:          NewHTTPClient(baseURL, timeout),
		log:             log,
		maxRequestChars: MaxRequestChars,
	}
}

// EngineID returns the registry identifier of this engine.
func (e *HTTPEngine) EngineID() string {
	return EngineIDHTTP
}

// Available reports whether the speech service answers its health endpoint.
func (e *HTTPEngine) Available(ctx context.Context) bool {
	return e.client.HealthCheck(ctx) == nil
}

// Synthesize renders text to audio, one request per sentence-bounded piece.
// Any piece failing fails the whole chapter; partial audio is never returned.
func (e *HTTPEngine) Synthesize(
	ctx context.Context,
	text string,
	voice string,
) ([]byte, error) {
	pieces := SplitForSynthesis(text, e.maxRequestChars)
	if len(pieces) == 0 {
		return nil, ErrTextEmpty
	}

	segments := make([][]byte, 0, len(pieces))

	for i, piece := range pieces {
		segment, err := e.client.Synthesize(ctx, SynthesisRequest{
			Text:     piece,
			Voice:    voice,
			Language: "",
		})
		if err != nil {
			return nil, fmt.Errorf(
				"failed to synthesize piece %d/%d: %w",
				i+1, len(pieces), err,
			)
		}

		segments = append(segments, segment)
	}

	combined, err := audio.Concat(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to combine audio segments: %w", err)
	}

	e.log.Info("Synthesized %d bytes from %d pieces", len(combined), len(pieces))

	return combined, nil
}
