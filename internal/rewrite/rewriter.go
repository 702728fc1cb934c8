// Package rewrite prepares chapter text for narration with a local LLM.
//
// The primary path sends the text to an Ollama-compatible generate endpoint
// and uses the rewritten prose. Any failure along that path degrades to the
// deterministic regex cleaner, so a chapter is never lost to a flaky or
// absent model.
package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/textproc"
	"github.com/book-expert/narration-service/internal/tts"
)

// API endpoints.
const (
	apiGenerate = "/api/generate"
)

// MaxRequestChars bounds the amount of text sent to the model in one
// request. Long chapters are split on sentence boundaries and rewritten
// piece by piece.
const MaxRequestChars = 2000

// systemPrompt instructs the model to rewrite without inventing content.
const systemPrompt = "You rewrite textbook passages so they can be read " +
	"aloud. Remove figure and table references, expand abbreviations, and " +
	"keep every fact. Reply with the rewritten text only."

// Static errors.
var (
	// ErrEmptyResponse indicates the model returned no text.
	ErrEmptyResponse = errors.New("model returned empty response")
	// ErrUnexpectedStatus indicates a non-200 response from the model server.
	ErrUnexpectedStatus = errors.New("unexpected status from model server")
)

// Config holds the settings for the LLM rewriter.
type Config struct {
	// BaseURL is the Ollama server address, for example http://localhost:11434.
	BaseURL string
	// Model is the model name passed in each generate request.
	Model string
	// Timeout bounds a single generate request.
	Timeout time.Duration
	// RequestDelay is an optional pause between consecutive requests, to
	// avoid saturating a shared model server.
	RequestDelay time.Duration
}

// generateRequest is the Ollama generate API request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

// generateResponse is the subset of the Ollama generate API response the
// rewriter needs.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Client is a minimal Ollama generate API client.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a client for the given Ollama server and model.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Generate runs one non-streaming generate request and returns the model's
// response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiGenerate,
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create generate request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("generate request failed: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generate response: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"%w: %d - %s",
			ErrUnexpectedStatus, response.StatusCode, string(body),
		)
	}

	var parsed generateResponse

	err = json.Unmarshal(body, &parsed)
	if err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}

	if strings.TrimSpace(parsed.Response) == "" {
		return "", ErrEmptyResponse
	}

	return strings.TrimSpace(parsed.Response), nil
}

// LLMRewriter implements core.Rewriter on top of the Ollama client, with the
// regex cleaner as its fallback.
type LLMRewriter struct {
	client       *Client
	cleaner      *textproc.Cleaner
	log          *logger.Logger
	requestDelay time.Duration
}

// NewLLMRewriter creates a rewriter for the given configuration.
func NewLLMRewriter(cfg Config, log *logger.Logger) *LLMRewriter {
	return &LLMRewriter{
		client:       NewClient(cfg.BaseURL, cfg.Model, cfg.Timeout),
		cleaner:      textproc.NewCleaner(),
		log:          log,
		requestDelay: cfg.RequestDelay,
	}
}

// Rewrite rewrites text for narration. The model is asked piece by piece on
// sentence boundaries; the first failure abandons the model for this text
// and returns the deterministic cleanup instead.
func (r *LLMRewriter) Rewrite(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	pieces := tts.SplitForSynthesis(text, MaxRequestChars)
	rewritten := make([]string, 0, len(pieces))

	for index, piece := range pieces {
		if index > 0 && r.requestDelay > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("rewrite cancelled: %w", ctx.Err())
			case <-time.After(r.requestDelay):
			}
		}

		output, err := r.client.Generate(ctx, piece)
		if err != nil {
			r.log.Warn(
				"Model rewrite failed, falling back to regex cleanup: %v",
				err,
			)

			return r.cleaner.CleanForNarration(text), nil
		}

		rewritten = append(rewritten, output)
	}

	return strings.Join(rewritten, " "), nil
}

// FallbackRewriter implements core.Rewriter using only the deterministic
// cleaner. It is used when no model server is configured.
type FallbackRewriter struct {
	cleaner *textproc.Cleaner
}

// NewFallbackRewriter creates a rewriter that never calls a model.
func NewFallbackRewriter() *FallbackRewriter {
	return &FallbackRewriter{cleaner: textproc.NewCleaner()}
}

// Rewrite applies the deterministic cleanup pipeline.
func (r *FallbackRewriter) Rewrite(_ context.Context, text string) (string, error) {
	return r.cleaner.CleanForNarration(text), nil
}
