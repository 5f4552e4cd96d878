// Package buildcache records which raw configuration byte sequences have
// already been loaded and successfully validated, and when (SPEC_FULL.md
// §4.10). A lookup only reports whether content was recorded; it does not
// by itself spare a caller the rebuild. It never caches the compiled
// tree itself: the tree holds compiled *regexp.Regexp values and other
// non-serializable state, and "it was built by a config build we already
// validated" is all a cache needs to tell a reload loop.
package buildcache

import (
	"bytes"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("validated_configs")

// Cache is a bbolt-backed record of content hashes that have already been
// through a successful treecfg.Build.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if absent) a cache database at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying bbolt handle.
func (c *Cache) Close() error { return c.db.Close() }

// Hash returns the content hash buildcache uses as a cache key.
func Hash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// Seen reports whether content has already been recorded as validated,
// and if so returns the timestamp it was recorded at.
func (c *Cache) Seen(content []byte) (time.Time, bool, error) {
	key := keyBytes(Hash(content))

	var recorded time.Time
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		raw := b.Get(key)
		if raw == nil {
			return nil
		}
		decoded, err := decompress(raw)
		if err != nil {
			return err
		}
		if err := recorded.UnmarshalText(decoded); err != nil {
			return err
		}
		found = true
		return nil
	})
	return recorded, found, err
}

// Record marks content as validated at time t, compressing the stored
// record with zstd (the record is tiny, but this keeps the on-disk
// format consistent with how the rest of the pack compresses cached
// payloads).
func (c *Cache) Record(content []byte, t time.Time) error {
	key := keyBytes(Hash(content))
	raw, err := t.MarshalText()
	if err != nil {
		return err
	}
	compressed, err := compress(raw)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put(key, compressed)
	})
}

func keyBytes(h uint64) []byte {
	return []byte{
		byte(h >> 56), byte(h >> 48), byte(h >> 40), byte(h >> 32),
		byte(h >> 24), byte(h >> 16), byte(h >> 8), byte(h),
	}
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
