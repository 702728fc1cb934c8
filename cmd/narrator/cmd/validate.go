package cmd

import (
	"errors"
	"fmt"

	"github.com/book-expert/narration-service/internal/subtitle"
	"github.com/spf13/cobra"
)

// ErrValidationFailed indicates that at least one track was malformed.
var ErrValidationFailed = errors.New("subtitle validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate <track.srt>...",
	Short: "Validate SRT subtitle tracks",
	Long: `Validate checks each track for well-formed SRT structure: sequential
1-based cue indices, comma-decimal timestamp lines, and non-empty cue
text.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(command *cobra.Command, args []string) error {
	failures := 0

	for _, path := range args {
		err := subtitle.ValidateFile(path)
		if err != nil {
			failures++

			command.Printf("%s: INVALID: %v\n", path, err)

			continue
		}

		command.Printf("%s: ok\n", path)
	}

	if failures > 0 {
		return fmt.Errorf("%w: %d of %d tracks", ErrValidationFailed, failures, len(args))
	}

	return nil
}
