package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/narration-service/internal/document"
	"github.com/book-expert/narration-service/internal/subtitle"
	"github.com/book-expert/narration-service/internal/textproc"
	"github.com/spf13/cobra"
)

// ErrNoChaptersFound indicates the input document parsed to nothing.
var ErrNoChaptersFound = errors.New("no chapters found in input document")

var subtitlesCmd = &cobra.Command{
	Use:   "subtitles <input-file>",
	Short: "Generate SRT subtitle tracks without rendering audio",
	Long: `Subtitles parses the input document into chapters and writes one SRT
track per chapter, with cue timings estimated from word counts at the
assumed speaking rate. No speech engine is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubtitles,
}

var (
	subtitlesOutputDir string
	subtitlesMaxChars  int
	subtitlesWPM       int
)

func init() {
	subtitlesCmd.Flags().StringVarP(
		&subtitlesOutputDir, "output-dir", "o", "output",
		"directory for subtitle files",
	)
	subtitlesCmd.Flags().IntVar(
		&subtitlesMaxChars, "max-chars", subtitle.DefaultMaxChars,
		"maximum characters per subtitle cue",
	)
	subtitlesCmd.Flags().IntVar(
		&subtitlesWPM, "wpm", 0,
		"assumed speaking rate in words per minute (0 = default)",
	)

	rootCmd.AddCommand(subtitlesCmd)
}

func runSubtitles(command *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input document %s: %w", args[0], err)
	}

	chapters := document.Parse(string(content))
	if len(chapters) == 0 {
		return ErrNoChaptersFound
	}

	cleaner := textproc.NewCleaner()
	chunker := subtitle.NewChunker(subtitlesMaxChars)
	allocator := subtitle.NewAllocator(float64(subtitlesWPM))

	for _, chapter := range chapters {
		units := chunker.Split(cleaner.CleanForNarration(chapter.Body))
		timings := allocator.Allocate(units, 0)

		trackPath := filepath.Join(
			subtitlesOutputDir,
			subtitle.TrackFilename(chapter.Ordinal, chapter.Title),
		)

		writeErr := subtitle.WriteFile(trackPath, units, timings)
		if writeErr != nil {
			return fmt.Errorf(
				"failed to write track for chapter %d: %w",
				chapter.Ordinal+1, writeErr,
			)
		}

		command.Printf(
			"chapter %02d %-30s cues=%d track=%s\n",
			chapter.Ordinal+1, chapter.Title, len(units), trackPath,
		)
	}

	return nil
}
