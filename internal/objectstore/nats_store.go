// Package objectstore stores narration artifacts in NATS JetStream.
//
// Chapter text arrives through the store and rendered audio plus subtitle
// tracks leave through it, so every worker in the pipeline can run on a
// different host.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Content types recorded on uploaded artifacts, keyed by file extension.
var contentTypes = map[string]string{
	".wav": "audio/wav",
	".mp3": "audio/mpeg",
	".srt": "application/x-subrip",
	".txt": "text/plain",
}

// Store implements core.ObjectStore on a single JetStream object store
// bucket.
type Store struct {
	bucket string
	store  nats.ObjectStore
}

// NewStore creates the bucket when it does not exist yet and binds to it
// otherwise.
func NewStore(jetstreamContext nats.JetStreamContext, bucketName string) (*Store, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Narration artifacts for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf(
				"failed to create object store bucket '%s': %w",
				bucketName, err,
			)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to bind to existing object store bucket '%s': %w",
				bucketName, err,
			)
		}
	}

	return &Store{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Download retrieves an artifact by key.
func (s *Store) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := s.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to get object '%s' from bucket '%s': %w",
			key, s.bucket, err,
		)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload saves an artifact under key, recording a content type derived from
// the key's extension when it is one the pipeline produces.
func (s *Store) Upload(_ context.Context, key string, data []byte) error {
	var headers nats.Header

	if contentType, ok := contentTypes[filepath.Ext(key)]; ok {
		headers = nats.Header{"Content-Type": []string{contentType}}
	}

	_, err := s.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     headers,
		Metadata:    nil,
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf(
			"failed to put object '%s' to bucket '%s': %w",
			key, s.bucket, err,
		)
	}

	return nil
}
