// Package pipeline_test tests the chapter narration pipeline.
package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/cache"
	"github.com/book-expert/narration-service/internal/pipeline"
	"github.com/book-expert/narration-service/internal/subtitle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errScriptedFailure = errors.New("scripted synthesis failure")

const sampleDocument = `# Semiconductors

Silicon conducts electricity under some conditions. Doping changes how it behaves.

# Diodes

A diode conducts in one direction. Reverse bias blocks the current.
`

// scriptedEngine renders fixed bytes and can be told to fail for chapters
// whose text contains a marker.
type scriptedEngine struct {
	mu         sync.Mutex
	calls      int
	failMarker string
}

func (e *scriptedEngine) EngineID() string {
	return "scripted"
}

func (e *scriptedEngine) Synthesize(_ context.Context, text string, _ string) ([]byte, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.failMarker != "" && strings.Contains(text, e.failMarker) {
		return nil, errScriptedFailure
	}

	return []byte("fake-audio-bytes"), nil
}

func (e *scriptedEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.calls
}

// passthroughRewriter keeps chapter text unchanged so cache fingerprints are
// predictable in tests.
type passthroughRewriter struct{}

func (passthroughRewriter) Rewrite(_ context.Context, text string) (string, error) {
	return text, nil
}

// fixedProber reports a constant audio duration.
type fixedProber struct {
	seconds float64
}

func (p fixedProber) DurationSeconds(_ []byte) (float64, bool) {
	return p.seconds, p.seconds > 0
}

// memoryStore is an in-memory object store for cache tests.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var errObjectNotFound = errors.New("object not found")

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) Download(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, errObjectNotFound
	}

	return data, nil
}

func (s *memoryStore) Upload(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = data

	return nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func newTestPipeline(
	t *testing.T,
	engine *scriptedEngine,
	audioCache *cache.AudioCache,
) (*pipeline.Pipeline, string) {
	t.Helper()

	outputDir := t.TempDir()

	p := pipeline.New(
		engine,
		passthroughRewriter{},
		fixedProber{seconds: 30},
		audioCache,
		pipeline.Config{
			Voice:             "aria",
			OutputDir:         outputDir,
			MaxCaptionChars:   subtitle.DefaultMaxChars,
			WordsPerMinute:    0,
			RescaleToDuration: false,
			ChapterDelay:      0,
		},
		newTestLogger(t),
	)

	return p, outputDir
}

func TestPipeline_RunWritesAudioAndTracks(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{failMarker: ""}
	p, outputDir := newTestPipeline(t, engine, nil)

	summary, err := p.Run(context.Background(), sampleDocument)
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.Empty(t, summary.Failed())

	for _, result := range summary.Results {
		assert.Equal(t, pipeline.StateWritten, result.State)
		require.NoError(t, subtitle.ValidateFile(result.TrackPath))

		audioData, readErr := os.ReadFile(result.AudioPath)
		require.NoError(t, readErr)
		assert.Equal(t, []byte("fake-audio-bytes"), audioData)
	}

	assert.Equal(
		t,
		filepath.Join(outputDir, "chapter_01_Semiconductors.srt"),
		summary.Results[0].TrackPath,
	)
	assert.Equal(
		t,
		filepath.Join(outputDir, "chapter_02_Diodes.srt"),
		summary.Results[1].TrackPath,
	)
}

func TestPipeline_ChapterFailureDoesNotAbortRun(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{failMarker: "Silicon"}
	p, _ := newTestPipeline(t, engine, nil)

	summary, err := p.Run(context.Background(), sampleDocument)
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)

	failed := summary.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "Semiconductors", failed[0].Chapter.Title)
	require.ErrorIs(t, failed[0].Err, errScriptedFailure)

	assert.Equal(t, pipeline.StateWritten, summary.Results[1].State)
}

func TestPipeline_CacheHitSkipsSynthesis(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	audioCache := cache.New(store)

	document := "# Only Chapter\n\nOne sentence of text.\n"
	body := "One sentence of text."

	fingerprint := cache.Fingerprint(body, "scripted", "aria")
	require.NoError(t, audioCache.Put(
		context.Background(), fingerprint, []byte("cached-audio"),
	))

	engine := &scriptedEngine{failMarker: ""}
	p, _ := newTestPipeline(t, engine, audioCache)

	summary, err := p.Run(context.Background(), document)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	assert.Equal(t, pipeline.StateWritten, summary.Results[0].State)
	assert.True(t, summary.Results[0].CacheHit)
	assert.Zero(t, engine.callCount())

	audioData, err := os.ReadFile(summary.Results[0].AudioPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("cached-audio"), audioData)
}

func TestPipeline_FreshRenderPopulatesCache(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	audioCache := cache.New(store)

	document := "# Only Chapter\n\nOne sentence of text.\n"

	engine := &scriptedEngine{failMarker: ""}
	p, _ := newTestPipeline(t, engine, audioCache)

	summary, err := p.Run(context.Background(), document)
	require.NoError(t, err)
	assert.False(t, summary.Results[0].CacheHit)
	assert.Equal(t, 1, engine.callCount())

	fingerprint := cache.Fingerprint("One sentence of text.", "scripted", "aria")

	cached, found := audioCache.Get(context.Background(), fingerprint)
	require.True(t, found)
	assert.Equal(t, []byte("fake-audio-bytes"), cached)
}

func TestPipeline_ConfiguredSpeakingRateReachesTimings(t *testing.T) {
	t.Parallel()

	// With no probe-able duration, cue length comes from the configured
	// rate: four words at 150 wpm run for 1.6 seconds.
	outputDir := t.TempDir()
	p := pipeline.New(
		&scriptedEngine{failMarker: ""},
		passthroughRewriter{},
		fixedProber{seconds: 0},
		nil,
		pipeline.Config{
			Voice:             "aria",
			OutputDir:         outputDir,
			MaxCaptionChars:   subtitle.DefaultMaxChars,
			WordsPerMinute:    150,
			RescaleToDuration: false,
			ChapterDelay:      0,
		},
		newTestLogger(t),
	)

	summary, err := p.Run(
		context.Background(), "# Only Chapter\n\nOne sentence of text.\n",
	)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	require.Equal(t, pipeline.StateWritten, summary.Results[0].State)

	track, err := os.ReadFile(summary.Results[0].TrackPath)
	require.NoError(t, err)
	assert.Contains(t, string(track), "00:00:00,000 --> 00:00:01,600")
}

func TestPipeline_TrackWriteFailureFailsChapter(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{failMarker: ""}
	p, outputDir := newTestPipeline(t, engine, nil)

	// A directory squatting on the track path makes the subtitle write
	// fail after the audio file has already landed.
	trackPath := filepath.Join(outputDir, subtitle.TrackFilename(0, "Only Chapter"))
	require.NoError(t, os.MkdirAll(trackPath, 0o750))

	summary, err := p.Run(
		context.Background(), "# Only Chapter\n\nOne sentence of text.\n",
	)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	result := summary.Results[0]
	assert.Equal(t, pipeline.StateFailed, result.State)
	require.Error(t, result.Err)
	assert.NotEmpty(t, result.AudioPath)
	assert.Empty(t, result.TrackPath)
}

func TestPipeline_EmptyDocument(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{failMarker: ""}
	p, _ := newTestPipeline(t, engine, nil)

	_, err := p.Run(context.Background(), "")
	require.ErrorIs(t, err, pipeline.ErrNoChapters)
}

func TestPipeline_MissingInputFileIsFatal(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{failMarker: ""}
	p, _ := newTestPipeline(t, engine, nil)

	_, err := p.RunFile(
		context.Background(),
		filepath.Join(t.TempDir(), "does-not-exist.txt"),
	)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPipeline_CancelledContextStopsRun(t *testing.T) {
	t.Parallel()

	engine := &scriptedEngine{failMarker: ""}
	p, _ := newTestPipeline(t, engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.Run(ctx, sampleDocument)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary.Results)
}
