package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDir is where extracted content lands unless overridden.
	DefaultDir = "./.ragserve-cache"
	// DefaultChunkSize is the write segment size in bytes.
	DefaultChunkSize = 1024
)

var (
	// ErrNotFound is returned on a cache miss.
	ErrNotFound = errors.New("cache entry not found")
	// ErrCorrupted is returned when stored content fails its checksum.
	ErrCorrupted = errors.New("cache entry corrupted")
)

// Cache is a content-addressable store on the local filesystem. Each
// entry keeps an index record mapping the original key to the sha256
// of its content; content files are named by that checksum. Entries
// are never evicted.
type Cache struct {
	dir       string
	chunkSize int
}

type indexEntry struct {
	Key       string `json:"key"`
	Integrity string `json:"integrity"`
	Size      int    `json:"size"`
}

func New(dir string, chunkSize int) *Cache {
	if dir == "" {
		dir = DefaultDir
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Cache{dir: dir, chunkSize: chunkSize}
}

// Put stores content under key. The write is segmented at the
// configured chunk size; readers get the full content back regardless.
func (c *Cache) Put(key string, content []byte) error {
	if err := os.MkdirAll(c.contentDir(), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.MkdirAll(c.indexDir(), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	sum := sha256.Sum256(content)
	integrity := hex.EncodeToString(sum[:])

	tmp, err := os.CreateTemp(c.contentDir(), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	for start := 0; start < len(content); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(content) {
			end = len(content)
		}
		if _, err := tmp.Write(content[start:end]); err != nil {
			tmp.Close()
			return fmt.Errorf("write cache content: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache content: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.contentPath(integrity)); err != nil {
		return fmt.Errorf("commit cache content: %w", err)
	}

	entry, err := json.Marshal(indexEntry{Key: key, Integrity: integrity, Size: len(content)})
	if err != nil {
		return fmt.Errorf("marshal index entry: %w", err)
	}
	if err := os.WriteFile(c.indexPath(key), entry, 0o644); err != nil {
		return fmt.Errorf("write index entry: %w", err)
	}
	return nil
}

// Get returns the content stored under key, verifying its checksum.
// A missing entry yields ErrNotFound, a checksum mismatch ErrCorrupted.
func (c *Cache) Get(key string) ([]byte, error) {
	raw, err := os.ReadFile(c.indexPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read index entry: %w", err)
	}

	var entry indexEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("get %q: %w", key, ErrCorrupted)
	}

	content, err := os.ReadFile(c.contentPath(entry.Integrity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("read cache content: %w", err)
	}

	sum := sha256.Sum256(content)
	if hex.EncodeToString(sum[:]) != entry.Integrity || len(content) != entry.Size {
		return nil, fmt.Errorf("get %q: %w", key, ErrCorrupted)
	}
	return content, nil
}

func (c *Cache) contentDir() string { return filepath.Join(c.dir, "content") }
func (c *Cache) indexDir() string   { return filepath.Join(c.dir, "index") }

func (c *Cache) contentPath(integrity string) string {
	return filepath.Join(c.contentDir(), integrity)
}

func (c *Cache) indexPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.indexDir(), hex.EncodeToString(sum[:]))
}
