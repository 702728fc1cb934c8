// Package cmd implements the narrator command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/book-expert/logger"
	"github.com/spf13/cobra"
)

var logsDir string

var rootCmd = &cobra.Command{
	Use:   "narrator",
	Short: "Narrate curriculum text into audio with synchronized subtitles",
	Long: `Narrator converts a curriculum text document into per-chapter audio
files and synchronized SRT subtitle tracks. Chapters are delimited by
lines starting with "# "; text before the first heading becomes an
implicit Introduction chapter.`,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		return fmt.Errorf("narrator failed: %w", err)
	}

	return nil
}

// newLogger creates the file logger every subcommand logs to.
func newLogger() (*logger.Logger, error) {
	log, err := logger.New(logsDir, "narrator.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&logsDir, "logs-dir", os.TempDir(), "directory for the narrator log file",
	)
}
