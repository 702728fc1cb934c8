// Package config provides the configuration structure for the narration-service.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                        string `toml:"url"`
	NarrationStreamName        string `toml:"narration_stream_name"`
	NarrationConsumerName      string `toml:"narration_consumer_name"`
	ChapterRequestedSubject    string `toml:"chapter_requested_subject"`
	ChapterNarratedSubject     string `toml:"chapter_narrated_subject"`
	NarrationObjectStoreBucket string `toml:"narration_object_store_bucket"`
}

// NarrationConfig holds the speech synthesis settings.
type NarrationConfig struct {
	// Engine selects the speech backend: "http" or "command". Empty means
	// first available in registration order.
	Engine string `toml:"engine"`
	// ServiceURL is the base URL of the speech service for the http engine.
	ServiceURL string `toml:"service_url"`
	// Voice is the narration voice passed to the engine.
	Voice string `toml:"voice"`
	// BinaryPath and ModelPath configure the command engine.
	BinaryPath string `toml:"binary_path"`
	ModelPath  string `toml:"model_path"`
	// TimeoutSeconds bounds a single synthesis request.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// ChapterDelaySeconds pauses between chapters to avoid saturating a
	// shared speech backend.
	ChapterDelaySeconds int `toml:"chapter_delay_seconds"`
}

// SubtitlesConfig holds the caption chunking and timing settings.
type SubtitlesConfig struct {
	MaxChars          int  `toml:"max_chars"`
	WordsPerMinute    int  `toml:"words_per_minute"`
	RescaleToDuration bool `toml:"rescale_to_duration"`
}

// RewriteConfig holds the optional LLM rewrite settings.
type RewriteConfig struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RequestDelayMS int    `toml:"request_delay_ms"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	OutputDir   string `toml:"output_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS      NATSConfig      `toml:"nats"`
	Narration NarrationConfig `toml:"narration"`
	Subtitles SubtitlesConfig `toml:"subtitles"`
	Rewrite   RewriteConfig   `toml:"rewrite"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load loads the configuration for the narration-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
