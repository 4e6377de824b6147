package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/wowsreplays/ingest/internal/applog"
	"github.com/wowsreplays/ingest/internal/config"
)

// Compactor applies the configurable retention policy to raw replay
// blobs older than the configured retention window. Only the blob's age
// is checked; whether its video render has completed is not.
type Compactor struct {
	blobs  *BlobStore
	policy config.RetentionPolicy
	after  time.Duration
	log    *applog.Logger
}

func NewCompactor(blobs *BlobStore, cfg *config.Config) *Compactor {
	return &Compactor{
		blobs:  blobs,
		policy: cfg.RetentionPolicy,
		after:  time.Duration(cfg.RetentionAfterHours) * time.Hour,
		log:    applog.New("compactor"),
	}
}

// Apply runs the configured policy against one replay blob uploaded at
// uploadedAt. It returns key+".zst" when the blob was compressed, and the
// key it was given in every other case (including after a delete).
func (c *Compactor) Apply(key string, uploadedAt time.Time) (string, error) {
	if time.Since(uploadedAt) < c.after {
		return key, nil
	}

	switch c.policy {
	case config.RetentionDelete:
		c.log.Printf("deleting %s per retention policy", key)
		return key, c.blobs.Delete(key)

	case config.RetentionCompress:
		return c.compress(key)

	case config.RetentionKeep, "":
		return key, nil

	default:
		return key, fmt.Errorf("unknown retention policy %q", c.policy)
	}
}

// compress writes a zstd-compressed copy of a replay blob under the key
// plus a ".zst" suffix and deletes the original. Decompress restores the
// original bytes; the UPLOAD record's object key is not updated.
func (c *Compactor) compress(key string) (string, error) {
	data, err := c.blobs.Get(key)
	if err != nil {
		return key, fmt.Errorf("read for compaction: %w", err)
	}

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return key, err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return key, err
	}
	if err := enc.Close(); err != nil {
		return key, err
	}

	newKey := key + ".zst"
	if err := c.blobs.Put(newKey, buf.Bytes()); err != nil {
		return key, err
	}
	if err := c.blobs.Delete(key); err != nil {
		return key, err
	}

	c.log.Printf("compacted %s -> %s (%d -> %d bytes)", key, newKey, len(data), buf.Len())
	return newKey, nil
}

// Decompress reverses compress, for a blob whose key carries the ".zst"
// suffix.
func (c *Compactor) Decompress(key string) ([]byte, error) {
	compressed, err := c.blobs.Get(key)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	out, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}
