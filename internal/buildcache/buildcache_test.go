package buildcache

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSeenRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	content := []byte("nodes: []\n")

	_, found, err := c.Seen(content)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if found {
		t.Fatalf("expected not seen before Record")
	}

	now := time.Now().Truncate(time.Second)
	if err := c.Record(content, now); err != nil {
		t.Fatalf("Record: %v", err)
	}

	recorded, found, err := c.Seen(content)
	if err != nil {
		t.Fatalf("Seen after Record: %v", err)
	}
	if !found {
		t.Fatalf("expected seen after Record")
	}
	if !recorded.Equal(now) {
		t.Fatalf("expected recorded time %v, got %v", now, recorded)
	}
}

func TestDifferentContentDifferentKeys(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	a := []byte("a")
	b := []byte("b")

	if err := c.Record(a, time.Now()); err != nil {
		t.Fatalf("Record a: %v", err)
	}
	_, found, err := c.Seen(b)
	if err != nil {
		t.Fatalf("Seen b: %v", err)
	}
	if found {
		t.Fatalf("expected b not seen")
	}
}
