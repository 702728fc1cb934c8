// Package tts_test tests the speech engines and their registry.
package tts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/book-expert/narration-service/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

func newSpeechServer(t *testing.T, audio []byte) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/synthesize", func(w http.ResponseWriter, r *http.Request) {
		var req tts.SynthesisRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.NotEmpty(t, req.Text)

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(audio)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestHTTPClient_Synthesize(t *testing.T) {
	t.Parallel()

	server := newSpeechServer(t, []byte("fake-wav-bytes"))
	client := tts.NewHTTPClient(server.URL, testTimeout)

	audio, err := client.Synthesize(context.Background(), tts.SynthesisRequest{
		Text:     "Hello world.",
		Voice:    "aria",
		Language: "",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-wav-bytes"), audio)
}

func TestHTTPClient_EmptyTextRejected(t *testing.T) {
	t.Parallel()

	client := tts.NewHTTPClient("http://127.0.0.1:1", testTimeout)

	_, err := client.Synthesize(context.Background(), tts.SynthesisRequest{
		Text:     "",
		Voice:    "",
		Language: "",
	})
	require.ErrorIs(t, err, tts.ErrTextEmpty)
}

func TestHTTPClient_EmptyAudioIsFailure(t *testing.T) {
	t.Parallel()

	server := newSpeechServer(t, nil)
	client := tts.NewHTTPClient(server.URL, testTimeout)

	_, err := client.Synthesize(context.Background(), tts.SynthesisRequest{
		Text:     "Hello.",
		Voice:    "",
		Language: "",
	})
	require.ErrorIs(t, err, tts.ErrEmptyAudio)
}

func TestHTTPClient_StructuredErrorResponse(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/synthesize", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"rate limited","error_code":"RATE"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := tts.NewHTTPClient(server.URL, testTimeout)

	_, err := client.Synthesize(context.Background(), tts.SynthesisRequest{
		Text:     "Hello.",
		Voice:    "",
		Language: "",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestHTTPClient_HealthCheck(t *testing.T) {
	t.Parallel()

	server := newSpeechServer(t, []byte("x"))
	client := tts.NewHTTPClient(server.URL, testTimeout)

	require.NoError(t, client.HealthCheck(context.Background()))
}

func TestHTTPClient_HealthCheckUnreachable(t *testing.T) {
	t.Parallel()

	client := tts.NewHTTPClient("http://127.0.0.1:1", time.Second)
	require.Error(t, client.HealthCheck(context.Background()))
}
