package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowsreplays/ingest/internal/config"
)

func newTestCompactor(t *testing.T, policy config.RetentionPolicy) (*Compactor, *BlobStore) {
	t.Helper()
	blobs, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)
	c := NewCompactor(blobs, &config.Config{RetentionPolicy: policy, RetentionAfterHours: 1})
	return c, blobs
}

func TestCompactor_KeepLeavesBlobAlone(t *testing.T) {
	c, blobs := newTestCompactor(t, config.RetentionKeep)
	require.NoError(t, blobs.Put("replays/p1/a.wowsreplay", []byte("data")))

	key, err := c.Apply("replays/p1/a.wowsreplay", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "replays/p1/a.wowsreplay", key)
	assert.True(t, blobs.Exists(key))
}

func TestCompactor_TooYoungIsUntouchedRegardlessOfPolicy(t *testing.T) {
	c, blobs := newTestCompactor(t, config.RetentionDelete)
	require.NoError(t, blobs.Put("replays/p1/a.wowsreplay", []byte("data")))

	_, err := c.Apply("replays/p1/a.wowsreplay", time.Now())
	require.NoError(t, err)
	assert.True(t, blobs.Exists("replays/p1/a.wowsreplay"))
}

func TestCompactor_CompressRoundTrips(t *testing.T) {
	c, blobs := newTestCompactor(t, config.RetentionCompress)
	original := []byte("replay bytes that compress; replay bytes that compress")
	require.NoError(t, blobs.Put("replays/p1/a.wowsreplay", original))

	key, err := c.Apply("replays/p1/a.wowsreplay", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "replays/p1/a.wowsreplay.zst", key)
	assert.False(t, blobs.Exists("replays/p1/a.wowsreplay"), "original pruned after rewrite")

	restored, err := c.Decompress(key)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
}

func TestCompactor_DeleteRemovesBlob(t *testing.T) {
	c, blobs := newTestCompactor(t, config.RetentionDelete)
	require.NoError(t, blobs.Put("replays/p1/a.wowsreplay", []byte("data")))

	_, err := c.Apply("replays/p1/a.wowsreplay", time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	assert.False(t, blobs.Exists("replays/p1/a.wowsreplay"))
}

func TestBlobStore_RejectsTraversalKeys(t *testing.T) {
	blobs, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, blobs.Put("../outside", []byte("x")))
	_, err = blobs.Get("replays/../../etc/passwd")
	assert.Error(t, err)
}
