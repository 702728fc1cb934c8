// Package tts implements the text-to-speech capability boundary: engines
// that render narration text into audio bytes, request chunking for long
// chapters, and a registry of the engines available at startup.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// API endpoints and paths of the standalone speech service.
const (
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Static errors.
var (
	// ErrTextEmpty indicates a synthesis request without text.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrEmptyAudio indicates the service claimed success but returned no
	// audio bytes. This is always a failure, never an empty result.
	ErrEmptyAudio = errors.New("received empty audio data")
)

// HTTPClient talks to a standalone speech synthesis HTTP service.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// SynthesisRequest is the JSON payload for one synthesis call.
type SynthesisRequest struct {
	// Text is the narration text to render. Must be non-empty.
	Text string `json:"text"`

	// Voice selects the service-side voice. Empty means the service
	// default.
	Voice string `json:"voice,omitempty"`

	// Language is the target language code. Defaults to "en".
	Language string `json:"language"`
}

// serviceError is the structured JSON error body of the speech service.
type serviceError struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient creates a client for the speech service at baseURL. The
// timeout applies to every request the client makes.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize sends a synthesis request and returns the raw WAV bytes. A
// success response with an empty body is rejected so callers can always
// distinguish failure from empty audio.
func (c *HTTPClient) Synthesize(
	ctx context.Context,
	req SynthesisRequest,
) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	if req.Language == "" {
		req.Language = "en"
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + apiSynthesize

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to speech service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the speech service is reachable and reports
// healthy. It is used to decide engine availability at startup.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes a structured JSON error from the service,
// falling back to the raw body so diagnostics are never lost.
func (c *HTTPClient) parseErrorResponse(resp *http.Response) error {
	var svcErr serviceError

	err := json.NewDecoder(resp.Body).Decode(&svcErr)
	if err == nil {
		return fmt.Errorf("speech service error (%s): %s (code: %s)",
			resp.Status, svcErr.Detail, svcErr.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(
		"speech service returned non-OK status: %s, body: %s",
		resp.Status,
		string(body),
	)
}
