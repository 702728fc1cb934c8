// Package worker provides a NATS worker that narrates chapters on demand.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/pipeline"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// handleMessageTimeout bounds one chapter's narration end to end; synthesis
// dominates it.
const handleMessageTimeout = 120 * time.Second

// Artifact key extensions.
const (
	audioKeyExtension = ".wav"
	trackKeyExtension = ".srt"
)

var (
	// ErrTextKeyEmpty indicates a narration request without a text key.
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
)

// ChapterNarrationRequestedEvent asks the service to narrate one chapter
// whose text sits in the object store under TextKey.
type ChapterNarrationRequestedEvent struct {
	Header        events.EventHeader `json:"header"`
	TextKey       string             `json:"text_key"`
	ChapterTitle  string             `json:"chapter_title"`
	ChapterIndex  int                `json:"chapter_index"`
	TotalChapters int                `json:"total_chapters"`
	Voice         string             `json:"voice"`
}

// ChapterNarratedEvent reports the object store keys of the rendered audio
// and subtitle track for one chapter.
type ChapterNarratedEvent struct {
	Header        events.EventHeader `json:"header"`
	AudioKey      string             `json:"audio_key"`
	TrackKey      string             `json:"track_key"`
	ChapterIndex  int                `json:"chapter_index"`
	TotalChapters int                `json:"total_chapters"`
	CacheHit      bool               `json:"cache_hit"`
}

// ChapterRenderer narrates a single chapter in memory.
type ChapterRenderer interface {
	Render(
		ctx context.Context,
		chapter core.Chapter,
		voice string,
	) (*pipeline.Artifact, error)
}

// NatsWorker listens for narration jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection   *nats.Conn
	jetstreamContext nats.JetStreamContext
	subject          string
	store            core.ObjectStore
	renderer         ChapterRenderer
	log              *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	jetstreamContext nats.JetStreamContext,
	subject string,
	store core.ObjectStore,
	renderer ChapterRenderer,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection:   natsConnection,
		jetstreamContext: jetstreamContext,
		subject:          subject,
		store:            store,
		renderer:         renderer,
		log:              log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)

		return
	}

	replyEvent, processErr := w.processNarrationJob(ctx, event)
	if processErr != nil {
		w.log.Error(
			"Failed to narrate chapter %d for workflow %s: %v",
			event.ChapterIndex, event.Header.WorkflowID, processErr,
		)

		return
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error(
			"Failed to publish reply event for workflow %s: %v",
			event.Header.WorkflowID, err,
		)
	}
}

// processNarrationJob downloads the chapter text, narrates it, and uploads
// the audio and subtitle artifacts under a shared identifier.
func (w *NatsWorker) processNarrationJob(
	ctx context.Context,
	event *ChapterNarrationRequestedEvent,
) (*ChapterNarratedEvent, error) {
	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to download chapter text for key '%s': %w",
			event.TextKey, err,
		)
	}

	chapter := core.Chapter{
		Title:   event.ChapterTitle,
		Body:    string(textData),
		Ordinal: event.ChapterIndex,
	}

	artifact, err := w.renderer.Render(ctx, chapter, event.Voice)
	if err != nil {
		return nil, fmt.Errorf("failed to render chapter narration: %w", err)
	}

	artifactID := uuid.NewString()
	audioKey := artifactID + audioKeyExtension
	trackKey := artifactID + trackKeyExtension

	err = w.store.Upload(ctx, audioKey, artifact.Audio)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to upload audio data for key '%s': %w", audioKey, err,
		)
	}

	err = w.store.Upload(ctx, trackKey, []byte(artifact.Track))
	if err != nil {
		return nil, fmt.Errorf(
			"failed to upload subtitle track for key '%s': %w", trackKey, err,
		)
	}

	return &ChapterNarratedEvent{
		Header:        event.Header,
		AudioKey:      audioKey,
		TrackKey:      trackKey,
		ChapterIndex:  event.ChapterIndex,
		TotalChapters: event.TotalChapters,
		CacheHit:      artifact.CacheHit,
	}, nil
}

// publishReplyEvent marshals and responds with the ChapterNarratedEvent.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *ChapterNarratedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*ChapterNarrationRequestedEvent, error) {
	var event ChapterNarrationRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.TextKey == "" {
		return nil, ErrTextKeyEmpty
	}

	return &event, nil
}
