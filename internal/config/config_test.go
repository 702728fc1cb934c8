// Package config_test tests the configuration loading for the narration-service.
package config_test

import (
	"testing"

	"github.com/book-expert/narration-service/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[nats]
url = "nats://127.0.0.1:4222"
narration_stream_name = "NARRATION_JOBS"
narration_consumer_name = "narration-workers"
chapter_requested_subject = "chapter.narration.requested"
chapter_narrated_subject = "chapter.narrated"
narration_object_store_bucket = "NARRATION_FILES"

[narration]
engine = "http"
service_url = "http://127.0.0.1:8000"
voice = "en-US-AriaNeural"
binary_path = "piper"
model_path = "models/en_US-lessac-medium.onnx"
timeout_seconds = 300
chapter_delay_seconds = 2

[subtitles]
max_chars = 80
words_per_minute = 180
rescale_to_duration = true

[rewrite]
enabled = true
base_url = "http://127.0.0.1:11434"
model = "llama3.2"
timeout_seconds = 120
request_delay_ms = 250

[paths]
base_logs_dir = "/var/log/narration-service"
output_dir = "/srv/narration/output"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "NARRATION_JOBS", cfg.NATS.NarrationStreamName)
	assert.Equal(t, "narration-workers", cfg.NATS.NarrationConsumerName)
	assert.Equal(t, "chapter.narration.requested", cfg.NATS.ChapterRequestedSubject)
	assert.Equal(t, "chapter.narrated", cfg.NATS.ChapterNarratedSubject)
	assert.Equal(t, "NARRATION_FILES", cfg.NATS.NarrationObjectStoreBucket)

	assert.Equal(t, "http", cfg.Narration.Engine)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Narration.ServiceURL)
	assert.Equal(t, "en-US-AriaNeural", cfg.Narration.Voice)
	assert.Equal(t, "piper", cfg.Narration.BinaryPath)
	assert.Equal(t, "models/en_US-lessac-medium.onnx", cfg.Narration.ModelPath)
	assert.Equal(t, 300, cfg.Narration.TimeoutSeconds)
	assert.Equal(t, 2, cfg.Narration.ChapterDelaySeconds)

	assert.Equal(t, 80, cfg.Subtitles.MaxChars)
	assert.Equal(t, 180, cfg.Subtitles.WordsPerMinute)
	assert.True(t, cfg.Subtitles.RescaleToDuration)

	assert.True(t, cfg.Rewrite.Enabled)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Rewrite.BaseURL)
	assert.Equal(t, "llama3.2", cfg.Rewrite.Model)
	assert.Equal(t, 120, cfg.Rewrite.TimeoutSeconds)
	assert.Equal(t, 250, cfg.Rewrite.RequestDelayMS)

	assert.Equal(t, "/var/log/narration-service", cfg.Paths.BaseLogsDir)
	assert.Equal(t, "/srv/narration/output", cfg.Paths.OutputDir)
}
