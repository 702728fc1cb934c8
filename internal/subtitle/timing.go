package subtitle

import (
	"strings"

	"github.com/book-expert/narration-service/internal/core"
)

// Speaking rate bounds in words per minute. The estimate derived from a known
// audio duration is clamped into [WPMSlow, WPMFast]; DefaultWPM applies when
// no duration is available.
const (
	WPMSlow    = 140.0
	DefaultWPM = 180.0
	WPMFast    = 220.0
)

// Timing policy constants.
const (
	// CueGapSeconds is the fixed pause inserted between consecutive cues.
	CueGapSeconds = 0.5

	secondsPerMinute = 60.0
)

// Allocator assigns start and end times to caption units. The timing model is
// an estimate based on word counts and a speaking rate, not a forced
// alignment.
type Allocator struct {
	gapSeconds float64
	// defaultRate is the words-per-minute rate used when no audio duration
	// is available to estimate one.
	defaultRate float64
	// rescaleToDuration stretches or compresses the whole timeline so the
	// final cue ends exactly at a known audio duration. Off by default: the
	// clamped rate can then drift from the actual audio length, which is a
	// known limitation of the estimate.
	rescaleToDuration bool
}

// NewAllocator creates an allocator with the standard inter-cue gap. The
// wordsPerMinute rate applies when the audio duration is unknown; a
// non-positive value falls back to DefaultWPM, and any other value is clamped
// into [WPMSlow, WPMFast].
func NewAllocator(wordsPerMinute float64) *Allocator {
	return &Allocator{
		gapSeconds:        CueGapSeconds,
		defaultRate:       normalizeRate(wordsPerMinute),
		rescaleToDuration: false,
	}
}

// NewRescalingAllocator creates an allocator that additionally rescales the
// finished timeline to fit a known audio duration.
func NewRescalingAllocator(wordsPerMinute float64) *Allocator {
	return &Allocator{
		gapSeconds:        CueGapSeconds,
		defaultRate:       normalizeRate(wordsPerMinute),
		rescaleToDuration: true,
	}
}

func normalizeRate(wordsPerMinute float64) float64 {
	if wordsPerMinute <= 0 {
		return DefaultWPM
	}

	return clamp(wordsPerMinute, WPMSlow, WPMFast)
}

// Allocate produces one timing per caption unit, in order. When
// audioDurationSeconds is positive the speaking rate is estimated from the
// total word count and clamped; otherwise the configured default rate
// applies. Units
// with no words yield an empty timeline.
func (a *Allocator) Allocate(
	units []core.CaptionUnit,
	audioDurationSeconds float64,
) []core.CueTiming {
	totalWords := 0
	for _, unit := range units {
		totalWords += wordCount(unit.Text)
	}

	if totalWords == 0 {
		return nil
	}

	rate := a.speakingRate(totalWords, audioDurationSeconds)

	timings := make([]core.CueTiming, 0, len(units))
	currentTime := 0.0

	for _, unit := range units {
		duration := float64(wordCount(unit.Text)) / rate * secondsPerMinute

		timings = append(timings, core.CueTiming{
			StartSeconds: currentTime,
			EndSeconds:   currentTime + duration,
		})

		currentTime += duration + a.gapSeconds
	}

	if audioDurationSeconds > 0 {
		lastEnd := timings[len(timings)-1].EndSeconds
		if a.rescaleToDuration || lastEnd > audioDurationSeconds {
			// Compressing to fit is mandatory: the track must never
			// describe time past the end of the audio. Stretching a
			// short timeline is the opt-in behavior.
			rescale(timings, audioDurationSeconds)
		}
	}

	return timings
}

// speakingRate derives the words-per-minute rate for a chapter.
func (a *Allocator) speakingRate(totalWords int, audioDurationSeconds float64) float64 {
	if audioDurationSeconds <= 0 {
		return a.defaultRate
	}

	estimated := float64(totalWords) / (audioDurationSeconds / secondsPerMinute)

	return clamp(estimated, WPMSlow, WPMFast)
}

// rescale proportionally stretches or compresses all timings so the last cue
// ends at the known audio duration.
func rescale(timings []core.CueTiming, audioDurationSeconds float64) {
	if len(timings) == 0 {
		return
	}

	lastEnd := timings[len(timings)-1].EndSeconds
	if lastEnd <= 0 {
		return
	}

	factor := audioDurationSeconds / lastEnd
	for i := range timings {
		timings[i].StartSeconds *= factor
		timings[i].EndSeconds *= factor
	}
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}

	if value > high {
		return high
	}

	return value
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
