// Package pipeline orchestrates narration of a curriculum document: parse
// into chapters, rewrite each chapter for speech, render audio, derive a
// synchronized subtitle track, and write both artifacts to disk.
//
// Chapters are independent: one chapter failing never aborts the run. The
// summary reports every failure so the operator can re-run just the broken
// chapters.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/audio"
	"github.com/book-expert/narration-service/internal/cache"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/document"
	"github.com/book-expert/narration-service/internal/subtitle"
)

// ChapterState tracks a chapter's progress through the pipeline.
type ChapterState string

// Chapter states, in pipeline order. A chapter can fail from any state.
const (
	StatePending       ChapterState = "PENDING"
	StateAudioRendered ChapterState = "AUDIO_RENDERED"
	StateCaptioned     ChapterState = "CAPTIONED"
	StateWritten       ChapterState = "WRITTEN"
	StateFailed        ChapterState = "FAILED"
)

// File permissions for rendered artifacts.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

const audioExtension = ".wav"

// Static errors.
var (
	// ErrNoChapters indicates the document parsed to nothing narratable.
	ErrNoChapters = errors.New("document contains no chapters")
)

// Config holds the per-run settings of the pipeline.
type Config struct {
	// Voice is passed to the speech engine for every chapter.
	Voice string
	// OutputDir receives the audio files and subtitle tracks.
	OutputDir string
	// MaxCaptionChars bounds caption unit length; zero means the default.
	MaxCaptionChars int
	// WordsPerMinute is the speaking rate assumed when the audio duration
	// cannot be probed; zero means the allocator's default.
	WordsPerMinute int
	// RescaleToDuration stretches short subtitle timelines to a known audio
	// duration instead of only compressing long ones.
	RescaleToDuration bool
	// ChapterDelay pauses between chapters to avoid saturating a shared
	// speech backend. Zero disables the pause.
	ChapterDelay time.Duration
}

// Artifact holds the in-memory narration outputs for one chapter: rendered
// audio and the composed subtitle track. Callers decide where the artifacts
// land, on disk for batch runs or in an object store for workers.
type Artifact struct {
	Audio    []byte
	Track    string
	CacheHit bool
}

// ChapterResult records the outcome of one chapter.
type ChapterResult struct {
	Chapter   core.Chapter
	State     ChapterState
	AudioPath string
	TrackPath string
	CacheHit  bool
	Err       error
}

// Summary is the outcome of a whole run.
type Summary struct {
	Results []ChapterResult
}

// Failed returns the results of chapters that did not reach StateWritten.
func (s *Summary) Failed() []ChapterResult {
	var failed []ChapterResult

	for _, result := range s.Results {
		if result.State == StateFailed {
			failed = append(failed, result)
		}
	}

	return failed
}

// Pipeline narrates documents chapter by chapter.
type Pipeline struct {
	engine     core.SpeechEngine
	rewriter   core.Rewriter
	prober     core.DurationProber
	audioCache *cache.AudioCache
	chunker    *subtitle.Chunker
	allocator  *subtitle.Allocator
	log        *logger.Logger
	cfg        Config
}

// New creates a pipeline. The cache is optional: a nil audioCache disables
// caching and every chapter is rendered fresh. The prober defaults to the
// format-sniffing prober when nil.
func New(
	engine core.SpeechEngine,
	rewriter core.Rewriter,
	prober core.DurationProber,
	audioCache *cache.AudioCache,
	cfg Config,
	log *logger.Logger,
) *Pipeline {
	if prober == nil {
		prober = audio.NewProber()
	}

	wordsPerMinute := float64(cfg.WordsPerMinute)

	allocator := subtitle.NewAllocator(wordsPerMinute)
	if cfg.RescaleToDuration {
		allocator = subtitle.NewRescalingAllocator(wordsPerMinute)
	}

	return &Pipeline{
		engine:     engine,
		rewriter:   rewriter,
		prober:     prober,
		audioCache: audioCache,
		chunker:    subtitle.NewChunker(cfg.MaxCaptionChars),
		allocator:  allocator,
		log:        log,
		cfg:        cfg,
	}
}

// RunFile narrates the document at path. A missing or unreadable input file
// is fatal; nothing has been produced yet and there is nothing to salvage.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*Summary, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input document %s: %w", path, err)
	}

	return p.Run(ctx, string(content))
}

// Run narrates the given document content. The returned summary covers every
// chapter, including the failed ones; the error is non-nil only for
// whole-run conditions such as an empty document or cancellation.
func (p *Pipeline) Run(ctx context.Context, content string) (*Summary, error) {
	chapters := document.Parse(content)
	if len(chapters) == 0 {
		return nil, ErrNoChapters
	}

	summary := &Summary{Results: make([]ChapterResult, 0, len(chapters))}

	for index, chapter := range chapters {
		if index > 0 && p.cfg.ChapterDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, fmt.Errorf("run cancelled: %w", ctx.Err())
			case <-time.After(p.cfg.ChapterDelay):
			}
		}

		if ctx.Err() != nil {
			return summary, fmt.Errorf("run cancelled: %w", ctx.Err())
		}

		result := p.narrateChapter(ctx, chapter)
		summary.Results = append(summary.Results, result)

		if result.State == StateFailed {
			p.log.Error(
				"Chapter %d (%s) failed: %v",
				chapter.Ordinal+1, chapter.Title, result.Err,
			)

			continue
		}

		p.log.Info(
			"Chapter %d (%s) written: audio=%s track=%s cache_hit=%v",
			chapter.Ordinal+1, chapter.Title,
			result.AudioPath, result.TrackPath, result.CacheHit,
		)
	}

	for _, failed := range summary.Failed() {
		p.log.Warn(
			"Narration incomplete for chapter %d (%s): %v",
			failed.Chapter.Ordinal+1, failed.Chapter.Title, failed.Err,
		)
	}

	return summary, nil
}

// Render narrates one chapter in memory: rewrite, synthesize (or hit the
// cache), and compose the subtitle track. An empty voice falls back to the
// configured default.
func (p *Pipeline) Render(
	ctx context.Context,
	chapter core.Chapter,
	voice string,
) (*Artifact, error) {
	if voice == "" {
		voice = p.cfg.Voice
	}

	narrationText, err := p.rewriter.Rewrite(ctx, chapter.Body)
	if err != nil {
		return nil, fmt.Errorf("rewrite failed: %w", err)
	}

	audioData, cacheHit, err := p.renderAudio(ctx, narrationText, voice)
	if err != nil {
		return nil, err
	}

	durationSeconds, known := p.prober.DurationSeconds(audioData)
	if !known {
		durationSeconds = 0
		p.log.Warn(
			"Audio duration unknown for chapter %d, timings use the default rate",
			chapter.Ordinal+1,
		)
	}

	units := p.chunker.Split(narrationText)
	timings := p.allocator.Allocate(units, durationSeconds)

	track, err := subtitle.Compose(units, timings)
	if err != nil {
		return nil, fmt.Errorf("failed to compose subtitle track: %w", err)
	}

	return &Artifact{
		Audio:    audioData,
		Track:    track,
		CacheHit: cacheHit,
	}, nil
}

// narrateChapter drives one chapter through the state machine. Any error
// moves the chapter to StateFailed with the state it failed from implied by
// the missing artifacts.
func (p *Pipeline) narrateChapter(ctx context.Context, chapter core.Chapter) ChapterResult {
	result := ChapterResult{
		Chapter:   chapter,
		State:     StatePending,
		AudioPath: "",
		TrackPath: "",
		CacheHit:  false,
		Err:       nil,
	}

	artifact, err := p.Render(ctx, chapter, p.cfg.Voice)
	if err != nil {
		return failed(result, err)
	}

	result.CacheHit = artifact.CacheHit

	audioPath, err := p.writeAudio(chapter, artifact.Audio)
	if err != nil {
		return failed(result, err)
	}

	result.AudioPath = audioPath
	result.State = StateAudioRendered

	trackPath := filepath.Join(
		p.cfg.OutputDir,
		subtitle.TrackFilename(chapter.Ordinal, chapter.Title),
	)

	writeErr := os.WriteFile(trackPath, []byte(artifact.Track), filePermissions)
	if writeErr != nil {
		return failed(result, fmt.Errorf("failed to write subtitle track: %w", writeErr))
	}

	result.State = StateCaptioned

	if artifact.Track != "" {
		err = subtitle.ValidateFile(trackPath)
		if err != nil {
			return failed(result, fmt.Errorf("subtitle track failed validation: %w", err))
		}
	}

	result.TrackPath = trackPath
	result.State = StateWritten

	return result
}

// renderAudio returns chapter audio from the cache when possible, rendering
// and caching it otherwise.
func (p *Pipeline) renderAudio(
	ctx context.Context,
	narrationText string,
	voice string,
) ([]byte, bool, error) {
	fingerprint := cache.Fingerprint(narrationText, p.engine.EngineID(), voice)

	if p.audioCache != nil {
		if cached, found := p.audioCache.Get(ctx, fingerprint); found {
			return cached, true, nil
		}
	}

	audioData, err := p.engine.Synthesize(ctx, narrationText, voice)
	if err != nil {
		return nil, false, fmt.Errorf("synthesis failed: %w", err)
	}

	if p.audioCache != nil {
		putErr := p.audioCache.Put(ctx, fingerprint, audioData)
		if putErr != nil {
			// A cold cache on the next run is the only consequence.
			p.log.Warn("Failed to cache rendered audio: %v", putErr)
		}
	}

	return audioData, false, nil
}

// writeAudio stores the chapter audio next to its subtitle track.
func (p *Pipeline) writeAudio(chapter core.Chapter, audioData []byte) (string, error) {
	name := fmt.Sprintf(
		"chapter_%02d_%s%s",
		chapter.Ordinal+1,
		subtitle.SanitizeTitle(chapter.Title),
		audioExtension,
	)
	path := filepath.Join(p.cfg.OutputDir, name)

	dirErr := os.MkdirAll(p.cfg.OutputDir, dirPermissions)
	if dirErr != nil {
		return "", fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	writeErr := os.WriteFile(path, audioData, filePermissions)
	if writeErr != nil {
		return "", fmt.Errorf("failed to write audio file %s: %w", path, writeErr)
	}

	return path, nil
}

func failed(result ChapterResult, err error) ChapterResult {
	result.State = StateFailed
	result.Err = err

	return result
}
