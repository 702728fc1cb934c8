// Package cache_test tests the content-addressed audio cache.
package cache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/book-expert/narration-service/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errObjectMissing = errors.New("object not found")
	errUploadFailed  = errors.New("upload failed")
)

// memoryStore is an in-memory ObjectStore for tests.
type memoryStore struct {
	objects    map[string][]byte
	uploadFail bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte), uploadFail: false}
}

func (m *memoryStore) Download(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errObjectMissing
	}

	return data, nil
}

func (m *memoryStore) Upload(_ context.Context, key string, data []byte) error {
	if m.uploadFail {
		return errUploadFailed
	}

	m.objects[key] = data

	return nil
}

func TestFingerprint_DeterministicAndDistinct(t *testing.T) {
	t.Parallel()

	base := cache.Fingerprint("chapter text", "http", "aria")

	assert.Equal(t, base, cache.Fingerprint("chapter text", "http", "aria"))
	assert.NotEqual(t, base, cache.Fingerprint("chapter text", "http", "guy"))
	assert.NotEqual(t, base, cache.Fingerprint("chapter text", "command", "aria"))
	assert.NotEqual(t, base, cache.Fingerprint("other text", "http", "aria"))
	assert.Len(t, base, 64)
}

func TestFingerprint_FieldBoundariesDoNotCollide(t *testing.T) {
	t.Parallel()

	assert.NotEqual(
		t,
		cache.Fingerprint("ab", "c", "v"),
		cache.Fingerprint("a", "bc", "v"),
	)
}

func TestAudioCache_PutThenGet(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	audioCache := cache.New(store)
	ctx := context.Background()

	key := cache.Fingerprint("hello", "http", "aria")
	require.NoError(t, audioCache.Put(ctx, key, []byte("audio-bytes")))

	data, found := audioCache.Get(ctx, key)
	require.True(t, found)
	assert.Equal(t, []byte("audio-bytes"), data)
}

func TestAudioCache_MissingKeyIsAMiss(t *testing.T) {
	t.Parallel()

	audioCache := cache.New(newMemoryStore())

	_, found := audioCache.Get(context.Background(), "no-such-key")
	assert.False(t, found)
}

func TestAudioCache_UploadErrorSurfaces(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.uploadFail = true
	audioCache := cache.New(store)

	err := audioCache.Put(context.Background(), "key", []byte("data"))
	require.Error(t, err)
}
