package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/book-expert/logger"
)

// EngineIDCommand identifies the local synthesizer-binary backend.
const EngineIDCommand = "command"

// ErrBinaryPathEmpty indicates a command engine configured without a binary.
var ErrBinaryPathEmpty = errors.New("synthesizer binary path cannot be empty")

// CommandConfig holds the configuration for the local synthesizer binary.
type CommandConfig struct {
	// BinaryPath is the synthesizer executable, looked up on PATH when not
	// absolute.
	BinaryPath string
	// ModelPath is passed to the binary's -m flag.
	ModelPath string
}

// CommandEngine renders narration by invoking a local synthesizer binary
// that writes a WAV file. It is the offline fallback when no speech service
// is reachable.
type CommandEngine struct {
	config CommandConfig
	log    *logger.Logger
}

// NewCommandEngine creates a command engine for the configured binary.
func NewCommandEngine(cfg CommandConfig, log *logger.Logger) (*CommandEngine, error) {
	if cfg.BinaryPath == "" {
		return nil, ErrBinaryPathEmpty
	}

	return &CommandEngine{config: cfg, log: log}, nil
}

// EngineID returns the registry identifier of this engine.
func (e *CommandEngine) EngineID() string {
	return EngineIDCommand
}

// Available reports whether the synthesizer binary can be found.
func (e *CommandEngine) Available(_ context.Context) bool {
	_, err := exec.LookPath(e.config.BinaryPath)

	return err == nil
}

// Synthesize runs the binary once per chapter, exporting to a temp WAV file
// that is read back and removed.
func (e *CommandEngine) Synthesize(
	ctx context.Context,
	text string,
	voice string,
) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	tempFile, err := os.CreateTemp("", "narration-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for audio output: %w", err)
	}

	defer func() {
		removeErr := os.Remove(tempFile.Name())
		if removeErr != nil {
			e.log.Warn(
				"Failed to remove temp file '%s': %v",
				tempFile.Name(), removeErr,
			)
		}
	}()

	args := []string{
		"-m", e.config.ModelPath,
		"--voice", voice,
		"--export", tempFile.Name(),
		"--text", text,
	}

	// #nosec G204 -- binary path and model path come from validated config
	cmd := exec.CommandContext(ctx, e.config.BinaryPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf(
			"synthesizer binary execution failed: %w - output: %s",
			err, string(output),
		)
	}

	audioData, err := os.ReadFile(tempFile.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data from temp file: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}
