// Package cache provides a content-addressed store for rendered narration
// audio, keyed by a fingerprint of the chapter text and the engine and voice
// that rendered it.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/book-expert/narration-service/internal/core"
)

const fingerprintSeparator = "\x1f"

// AudioCache wraps a blob store with fingerprint-derived keys. Identical
// text rendered by the same engine and voice always resolves to the same key,
// so re-runs skip synthesis entirely.
type AudioCache struct {
	store core.ObjectStore
}

// New creates an audio cache backed by the given object store.
func New(store core.ObjectStore) *AudioCache {
	return &AudioCache{store: store}
}

// Fingerprint derives the deterministic cache key for a piece of narration.
// The separator byte keeps (ab, c) and (a, bc) from colliding.
func Fingerprint(text, engineID, voice string) string {
	hash := sha256.Sum256([]byte(
		text + fingerprintSeparator + engineID + fingerprintSeparator + voice,
	))

	return hex.EncodeToString(hash[:])
}

// Get returns the cached audio for the fingerprint. The object store reports
// absence as an error, and a cache cannot distinguish that from transient
// store trouble, so every download failure is treated as a miss; the chapter
// is then re-rendered instead of failed.
func (c *AudioCache) Get(ctx context.Context, fingerprint string) ([]byte, bool) {
	data, downloadErr := c.store.Download(ctx, fingerprint)
	if downloadErr != nil {
		return nil, false
	}

	return data, true
}

// Put stores rendered audio under the fingerprint.
func (c *AudioCache) Put(ctx context.Context, fingerprint string, data []byte) error {
	err := c.store.Upload(ctx, fingerprint, data)
	if err != nil {
		return fmt.Errorf("failed to cache audio for %s: %w", fingerprint, err)
	}

	return nil
}
