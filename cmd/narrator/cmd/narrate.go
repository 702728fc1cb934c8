package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/pipeline"
	"github.com/book-expert/narration-service/internal/rewrite"
	"github.com/book-expert/narration-service/internal/subtitle"
	"github.com/book-expert/narration-service/internal/tts"
	"github.com/spf13/cobra"
)

// ErrChaptersFailed indicates that at least one chapter did not narrate.
var ErrChaptersFailed = errors.New("chapters failed to narrate")

var narrateCmd = &cobra.Command{
	Use:   "narrate <input-file>",
	Short: "Narrate a document into audio files and subtitle tracks",
	Long: `Narrate parses the input document into chapters, renders each chapter
to audio, and writes a synchronized SRT subtitle track next to it.
A chapter that fails is reported at the end; the run continues with
the remaining chapters.`,
	Args: cobra.ExactArgs(1),
	RunE: runNarrate,
}

var (
	outputDir    string
	voice        string
	engineID     string
	serviceURL   string
	binaryPath   string
	modelPath    string
	timeoutSecs  int
	chapterDelay int
	maxChars     int
	wpm          int
	rescale      bool
	ollamaURL    string
	ollamaModel  string
)

func init() {
	narrateCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "output", "directory for audio and subtitle files")
	narrateCmd.Flags().StringVar(&voice, "voice", "", "narration voice passed to the engine")
	narrateCmd.Flags().StringVar(&engineID, "engine", "", "speech engine: http or command (default: first available)")
	narrateCmd.Flags().StringVar(&serviceURL, "service-url", "", "base URL of the speech service")
	narrateCmd.Flags().StringVar(&binaryPath, "binary", "", "local synthesizer binary")
	narrateCmd.Flags().StringVar(&modelPath, "model", "", "model path for the local synthesizer")
	narrateCmd.Flags().IntVar(&timeoutSecs, "timeout", 300, "synthesis timeout in seconds")
	narrateCmd.Flags().IntVar(&chapterDelay, "chapter-delay", 0, "pause between chapters in seconds")
	narrateCmd.Flags().IntVar(&maxChars, "max-chars", subtitle.DefaultMaxChars, "maximum characters per subtitle cue")
	narrateCmd.Flags().IntVar(&wpm, "wpm", 0, "assumed speaking rate when the audio duration is unknown (0 = default)")
	narrateCmd.Flags().BoolVar(&rescale, "rescale", false, "stretch subtitle timings to the audio duration")
	narrateCmd.Flags().StringVar(&ollamaURL, "ollama-url", "", "Ollama server URL for LLM text rewriting")
	narrateCmd.Flags().StringVar(&ollamaModel, "ollama-model", "", "Ollama model for LLM text rewriting")

	rootCmd.AddCommand(narrateCmd)
}

// selectEngine builds the configured engines and picks one from the registry.
func selectEngine(ctx context.Context, log *logger.Logger) (core.SpeechEngine, error) {
	var engines []core.SpeechEngine

	if serviceURL != "" {
		timeout := time.Duration(timeoutSecs) * time.Second
		engines = append(engines, tts.NewHTTPEngine(serviceURL, timeout, log))
	}

	if binaryPath != "" {
		commandEngine, err := tts.NewCommandEngine(tts.CommandConfig{
			BinaryPath: binaryPath,
			ModelPath:  modelPath,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create command engine: %w", err)
		}

		engines = append(engines, commandEngine)
	}

	registry := tts.NewRegistry(ctx, engines...)

	if engineID != "" {
		engine, err := registry.Lookup(engineID)
		if err != nil {
			return nil, fmt.Errorf("failed to select engine %q: %w", engineID, err)
		}

		return engine, nil
	}

	engine, err := registry.First()
	if err != nil {
		return nil, fmt.Errorf("failed to select a speech engine: %w", err)
	}

	return engine, nil
}

func selectRewriter(log *logger.Logger) core.Rewriter {
	if ollamaURL == "" || ollamaModel == "" {
		return rewrite.NewFallbackRewriter()
	}

	return rewrite.NewLLMRewriter(rewrite.Config{
		BaseURL:      ollamaURL,
		Model:        ollamaModel,
		Timeout:      time.Duration(timeoutSecs) * time.Second,
		RequestDelay: 0,
	}, log)
}

func runNarrate(command *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}

	defer func() {
		_ = log.Close()
	}()

	ctx, stop := signal.NotifyContext(
		command.Context(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	engine, err := selectEngine(ctx, log)
	if err != nil {
		return err
	}

	narrationPipeline := pipeline.New(
		engine,
		selectRewriter(log),
		nil,
		nil,
		pipeline.Config{
			Voice:             voice,
			OutputDir:         outputDir,
			MaxCaptionChars:   maxChars,
			WordsPerMinute:    wpm,
			RescaleToDuration: rescale,
			ChapterDelay:      time.Duration(chapterDelay) * time.Second,
		},
		log,
	)

	summary, err := narrationPipeline.RunFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("narration run failed: %w", err)
	}

	for _, result := range summary.Results {
		if result.State == pipeline.StateWritten {
			command.Printf(
				"chapter %02d %-30s audio=%s track=%s\n",
				result.Chapter.Ordinal+1, result.Chapter.Title,
				result.AudioPath, result.TrackPath,
			)
		}
	}

	failed := summary.Failed()
	for _, result := range failed {
		command.Printf(
			"chapter %02d %-30s FAILED: %v\n",
			result.Chapter.Ordinal+1, result.Chapter.Title, result.Err,
		)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrChaptersFailed, len(failed), len(summary.Results))
	}

	return nil
}
