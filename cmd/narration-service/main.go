// main package for the narration-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/cache"
	"github.com/book-expert/narration-service/internal/config"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/objectstore"
	"github.com/book-expert/narration-service/internal/pipeline"
	"github.com/book-expert/narration-service/internal/rewrite"
	"github.com/book-expert/narration-service/internal/tts"
	"github.com/book-expert/narration-service/internal/worker"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "narration-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// buildEngine assembles the configured speech engines and selects one from
// the registry. Registration order is the fallback order: the speech service
// first, the local binary second.
func buildEngine(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
) (core.SpeechEngine, error) {
	var engines []core.SpeechEngine

	if cfg.Narration.ServiceURL != "" {
		timeout := time.Duration(cfg.Narration.TimeoutSeconds) * time.Second
		engines = append(engines, tts.NewHTTPEngine(
			cfg.Narration.ServiceURL, timeout, log,
		))
	}

	if cfg.Narration.BinaryPath != "" {
		commandEngine, err := tts.NewCommandEngine(tts.CommandConfig{
			BinaryPath: cfg.Narration.BinaryPath,
			ModelPath:  cfg.Narration.ModelPath,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create command engine: %w", err)
		}

		engines = append(engines, commandEngine)
	}

	registry := tts.NewRegistry(ctx, engines...)

	if cfg.Narration.Engine != "" {
		engine, err := registry.Lookup(cfg.Narration.Engine)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to select engine %q: %w", cfg.Narration.Engine, err,
			)
		}

		return engine, nil
	}

	engine, err := registry.First()
	if err != nil {
		return nil, fmt.Errorf("failed to select a speech engine: %w", err)
	}

	return engine, nil
}

func buildRewriter(cfg *config.Config, log *logger.Logger) core.Rewriter {
	if !cfg.Rewrite.Enabled {
		return rewrite.NewFallbackRewriter()
	}

	return rewrite.NewLLMRewriter(rewrite.Config{
		BaseURL:      cfg.Rewrite.BaseURL,
		Model:        cfg.Rewrite.Model,
		Timeout:      time.Duration(cfg.Rewrite.TimeoutSeconds) * time.Second,
		RequestDelay: time.Duration(cfg.Rewrite.RequestDelayMS) * time.Millisecond,
	}, log)
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.NewStore(
		jetstreamContext, cfg.NATS.NarrationObjectStoreBucket,
	)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	engine, err := buildEngine(ctx, cfg, finalLog)
	if err != nil {
		return err
	}

	narrationPipeline := pipeline.New(
		engine,
		buildRewriter(cfg, finalLog),
		nil,
		cache.New(store),
		pipeline.Config{
			Voice:             cfg.Narration.Voice,
			OutputDir:         cfg.Paths.OutputDir,
			MaxCaptionChars:   cfg.Subtitles.MaxChars,
			WordsPerMinute:    cfg.Subtitles.WordsPerMinute,
			RescaleToDuration: cfg.Subtitles.RescaleToDuration,
			ChapterDelay:      time.Duration(cfg.Narration.ChapterDelaySeconds) * time.Second,
		},
		finalLog,
	)

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		jetstreamContext,
		cfg.NATS.ChapterRequestedSubject,
		store,
		narrationPipeline,
		finalLog,
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	finalLog.System(
		"Narration service initialized with engine %q. Listening for jobs on subject: %s",
		engine.EngineID(), cfg.NATS.ChapterRequestedSubject,
	)

	err = natsWorker.Run(ctx)
	if err != nil {
		return fmt.Errorf("worker stopped with error: %w", err)
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
