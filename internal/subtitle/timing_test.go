package subtitle_test

import (
	"strings"
	"testing"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/subtitle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitsFromTexts(texts ...string) []core.CaptionUnit {
	units := make([]core.CaptionUnit, 0, len(texts))
	for i, text := range texts {
		units = append(units, core.CaptionUnit{Text: text, Ordinal: i})
	}

	return units
}

func TestAllocator_EmptyUnits(t *testing.T) {
	t.Parallel()

	allocator := subtitle.NewAllocator(0)
	assert.Empty(t, allocator.Allocate(nil, 0))
	assert.Empty(t, allocator.Allocate(unitsFromTexts("", "  "), 0))
}

func TestAllocator_DefaultRateTotalDuration(t *testing.T) {
	t.Parallel()

	// 100 words at the 180 wpm default is 100/180*60 = 33.33 seconds of
	// speech, plus one inter-cue gap per boundary.
	texts := []string{
		strings.TrimSpace(strings.Repeat("word ", 40)),
		strings.TrimSpace(strings.Repeat("word ", 35)),
		strings.TrimSpace(strings.Repeat("word ", 25)),
	}

	allocator := subtitle.NewAllocator(0)
	timings := allocator.Allocate(unitsFromTexts(texts...), 0)
	require.Len(t, timings, 3)

	speech := 0.0
	for _, timing := range timings {
		speech += timing.EndSeconds - timing.StartSeconds
	}

	assert.InDelta(t, 100.0/subtitle.DefaultWPM*60.0, speech, 0.01)
}

func TestAllocator_TimingsIncreaseWithGap(t *testing.T) {
	t.Parallel()

	allocator := subtitle.NewAllocator(0)
	timings := allocator.Allocate(
		unitsFromTexts("one two three", "four five", "six seven eight nine"), 0,
	)
	require.Len(t, timings, 3)

	assert.InDelta(t, 0.0, timings[0].StartSeconds, 1e-9)

	for i, timing := range timings {
		assert.Greater(t, timing.EndSeconds, timing.StartSeconds)

		if i > 0 {
			previousEnd := timings[i-1].EndSeconds
			assert.InDelta(
				t,
				previousEnd+subtitle.CueGapSeconds,
				timing.StartSeconds,
				1e-9,
			)
		}
	}
}

func TestAllocator_KnownDurationClampsRate(t *testing.T) {
	t.Parallel()

	// 10 words over 60 seconds is 10 wpm, far below the slow bound, so the
	// rate clamps to 140 wpm and each word takes 60/140 seconds.
	allocator := subtitle.NewAllocator(0)
	timings := allocator.Allocate(
		unitsFromTexts("one two three four five six seven eight nine ten"), 60,
	)
	require.Len(t, timings, 1)

	assert.InDelta(t, 10.0/subtitle.WPMSlow*60.0, timings[0].EndSeconds, 0.01)
}

func TestAllocator_FastSpeechClampsHigh(t *testing.T) {
	t.Parallel()

	// 100 words in 10 seconds is 600 wpm; the clamp holds it at 220.
	words := strings.TrimSpace(strings.Repeat("word ", 100))

	allocator := subtitle.NewAllocator(0)
	timings := allocator.Allocate(unitsFromTexts(words), 10)
	require.Len(t, timings, 1)

	// A single cue longer than the audio compresses to fit.
	assert.InDelta(t, 10.0, timings[len(timings)-1].EndSeconds, 1e-9)
}

func TestAllocator_NeverExceedsKnownDuration(t *testing.T) {
	t.Parallel()

	words := strings.TrimSpace(strings.Repeat("word ", 50))

	allocator := subtitle.NewAllocator(0)
	timings := allocator.Allocate(unitsFromTexts(words, words, words), 20)
	require.NotEmpty(t, timings)

	assert.LessOrEqual(t, timings[len(timings)-1].EndSeconds, 20.0+1e-9)
}

func TestRescalingAllocator_StretchesToDuration(t *testing.T) {
	t.Parallel()

	allocator := subtitle.NewRescalingAllocator(0)
	timings := allocator.Allocate(
		unitsFromTexts("a few short words", "and a few more"), 120,
	)
	require.Len(t, timings, 2)

	assert.InDelta(t, 120.0, timings[len(timings)-1].EndSeconds, 1e-9)
	assert.Less(t, timings[0].EndSeconds, timings[1].StartSeconds)
}

func TestAllocator_UnknownDurationKeepsEstimate(t *testing.T) {
	t.Parallel()

	allocator := subtitle.NewAllocator(0)
	timings := allocator.Allocate(unitsFromTexts("five words in this cue"), 0)
	require.Len(t, timings, 1)

	assert.InDelta(t, 5.0/subtitle.DefaultWPM*60.0, timings[0].EndSeconds, 0.01)
}

func TestAllocator_ConfiguredRateAppliesWithoutDuration(t *testing.T) {
	t.Parallel()

	// Ten words at a configured 200 wpm run for 10/200*60 = 3 seconds.
	allocator := subtitle.NewAllocator(200)
	timings := allocator.Allocate(
		unitsFromTexts("one two three four five six seven eight nine ten"), 0,
	)
	require.Len(t, timings, 1)

	assert.InDelta(t, 3.0, timings[0].EndSeconds, 1e-9)
}

func TestAllocator_ConfiguredRateClampsToBounds(t *testing.T) {
	t.Parallel()

	words := strings.TrimSpace(strings.Repeat("word ", 22))

	fast := subtitle.NewAllocator(500)
	timings := fast.Allocate(unitsFromTexts(words), 0)
	require.Len(t, timings, 1)
	assert.InDelta(t, 22.0/subtitle.WPMFast*60.0, timings[0].EndSeconds, 1e-9)

	slow := subtitle.NewAllocator(50)
	timings = slow.Allocate(unitsFromTexts(words), 0)
	require.Len(t, timings, 1)
	assert.InDelta(t, 22.0/subtitle.WPMSlow*60.0, timings[0].EndSeconds, 1e-9)
}

func TestAllocator_KnownDurationOverridesConfiguredRate(t *testing.T) {
	t.Parallel()

	// With a known duration the rate is estimated from the audio itself;
	// the configured default only covers the no-duration case.
	words := strings.TrimSpace(strings.Repeat("word ", 30))

	allocator := subtitle.NewAllocator(220)
	timings := allocator.Allocate(unitsFromTexts(words), 10)
	require.Len(t, timings, 1)

	assert.InDelta(t, 10.0, timings[0].EndSeconds, 1e-9)
}
