package subtitle

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/book-expert/narration-service/internal/core"
)

// SRT format constants.
const (
	timestampSeparator = " --> "
	srtExtension       = ".srt"

	millisecondsPerSecond = 1000
	secondsPerHour        = 3600
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Filename sanitization patterns.
const (
	invalidTitleCharsPattern = `[^\w\s-]`
	titleSeparatorPattern    = `[-\s]+`
)

var (
	invalidTitleCharsRe = regexp.MustCompile(invalidTitleCharsPattern)
	titleSeparatorRe    = regexp.MustCompile(titleSeparatorPattern)
	timestampLineRe     = regexp.MustCompile(
		`^\d{2,}:\d{2}:\d{2},\d{3} --> \d{2,}:\d{2}:\d{2},\d{3}$`,
	)
)

// Static errors for serialization and validation.
var (
	// ErrCueCountMismatch indicates the caption and timing sequences differ
	// in length.
	ErrCueCountMismatch = errors.New("caption and timing counts do not match")
	// ErrNoCues indicates a subtitle file contains no cues at all.
	ErrNoCues = errors.New("subtitle file contains no cues")
	// ErrMalformedCue indicates a cue block that does not follow the
	// index / timestamps / text layout.
	ErrMalformedCue = errors.New("malformed subtitle cue")
)

// Compose renders the caption units and their timings into SRT content:
// 1-based sequential cue indices, comma-decimal timestamps, blank-line
// separated blocks. Zero units produce an empty (still valid) file body.
func Compose(units []core.CaptionUnit, timings []core.CueTiming) (string, error) {
	if len(units) != len(timings) {
		return "", fmt.Errorf(
			"%w: %d captions, %d timings",
			ErrCueCountMismatch, len(units), len(timings),
		)
	}

	var builder strings.Builder

	for i, unit := range units {
		fmt.Fprintf(&builder, "%d\n%s%s%s\n%s\n\n",
			i+1,
			FormatTimestamp(timings[i].StartSeconds),
			timestampSeparator,
			FormatTimestamp(timings[i].EndSeconds),
			unit.Text,
		)
	}

	return builder.String(), nil
}

// WriteFile composes the cues and writes them to path in one operation,
// creating parent directories as needed. The content is built fully in memory
// first so a cancelled run never leaves a half-written subtitle file.
func WriteFile(path string, units []core.CaptionUnit, timings []core.CueTiming) error {
	content, err := Compose(units, timings)
	if err != nil {
		return err
	}

	dirErr := os.MkdirAll(filepath.Dir(path), dirPermissions)
	if dirErr != nil {
		return fmt.Errorf("failed to create subtitle directory: %w", dirErr)
	}

	writeErr := os.WriteFile(path, []byte(content), filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write subtitle file %s: %w", path, writeErr)
	}

	return nil
}

// FormatTimestamp renders seconds as an SRT timestamp, HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	total := math.Abs(seconds)

	hours := int(total) / secondsPerHour
	minutes := (int(total) % secondsPerHour) / 60
	secs := int(total) % 60
	millis := int(math.Round((total - math.Floor(total)) * millisecondsPerSecond))

	if millis >= millisecondsPerSecond {
		millis -= millisecondsPerSecond
		secs++

		if secs == 60 {
			secs = 0
			minutes++

			if minutes == 60 {
				minutes = 0
				hours++
			}
		}
	}

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// TrackFilename builds the per-chapter subtitle filename,
// chapter_NN_<sanitized-title>.srt. NN is the 1-based chapter number padded
// to two digits. The title keeps word characters, spaces, and hyphens;
// runs of spaces and hyphens collapse to single underscores.
func TrackFilename(ordinal int, title string) string {
	return fmt.Sprintf("chapter_%02d_%s%s", ordinal+1, SanitizeTitle(title), srtExtension)
}

// SanitizeTitle reduces a chapter title to a filesystem-safe fragment.
func SanitizeTitle(title string) string {
	cleaned := invalidTitleCharsRe.ReplaceAllString(title, "")
	cleaned = strings.TrimSpace(cleaned)

	return titleSeparatorRe.ReplaceAllString(cleaned, "_")
}

// ValidateFile checks that the file at path parses as a well-formed SRT
// track: sequential 1-based indices, valid timestamp lines, and non-empty cue
// text. A missing file is reported as the underlying file error.
func ValidateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read subtitle file: %w", err)
	}

	return Validate(string(data))
}

// Validate checks SRT content cue by cue. Content with no cues fails with
// ErrNoCues; an empty file body is tolerated only by callers that expect a
// zero-unit chapter and check for that error explicitly.
func Validate(content string) error {
	blocks := splitCueBlocks(content)
	if len(blocks) == 0 {
		return ErrNoCues
	}

	for i, block := range blocks {
		validateErr := validateCueBlock(i+1, block)
		if validateErr != nil {
			return validateErr
		}
	}

	return nil
}

func splitCueBlocks(content string) [][]string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")

	var blocks [][]string

	for _, raw := range strings.Split(normalized, "\n\n") {
		var lines []string

		for _, line := range strings.Split(raw, "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}

		if len(lines) > 0 {
			blocks = append(blocks, lines)
		}
	}

	return blocks
}

func validateCueBlock(expectedIndex int, lines []string) error {
	const minCueLines = 3

	if len(lines) < minCueLines {
		return fmt.Errorf("%w: cue %d has %d lines", ErrMalformedCue, expectedIndex, len(lines))
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return fmt.Errorf("%w: cue %d index %q", ErrMalformedCue, expectedIndex, lines[0])
	}

	if index != expectedIndex {
		return fmt.Errorf(
			"%w: cue index %d out of sequence, expected %d",
			ErrMalformedCue, index, expectedIndex,
		)
	}

	if !timestampLineRe.MatchString(strings.TrimSpace(lines[1])) {
		return fmt.Errorf(
			"%w: cue %d timestamp line %q",
			ErrMalformedCue, expectedIndex, lines[1],
		)
	}

	return nil
}
