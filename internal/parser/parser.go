package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sparselabs/ragserve/internal/cache"
	"github.com/sparselabs/ragserve/pkg/textextract"
)

// DocumentSource produces the extracted text of every supported file
// in a directory. The local implementation extracts on this machine;
// Remote hands the work to a parsing service. Callers never need to
// know which one is active.
type DocumentSource interface {
	Documents(ctx context.Context) ([]string, error)
}

// Local reads a directory and extracts text file by file. Binary
// documents go through the content cache: a hit skips extraction, a
// successful extraction populates it. Plain-text files are read
// verbatim and never cached.
type Local struct {
	dir   string
	cache *cache.Cache
}

func NewLocal(dir string, c *cache.Cache) *Local {
	return &Local{dir: dir, cache: c}
}

func (l *Local) Documents(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %q: %w", l.dir, err)
	}

	var texts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(l.dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))

		switch {
		case slices.Contains(textextract.BinaryTypes(), ext):
			text, err := l.extractThroughCache(path, ext)
			if err != nil {
				if errors.Is(err, errCacheWrite) {
					return nil, err
				}
				slog.Error("extraction failed, dropping document", "file", path, "error", err)
				continue
			}
			texts = append(texts, text)
		case slices.Contains(textextract.PlainTypes(), ext):
			raw, err := os.ReadFile(path)
			if err != nil {
				slog.Error("read failed, dropping document", "file", path, "error", err)
				continue
			}
			texts = append(texts, string(raw))
		default:
			slog.Warn("unsupported file type, skipping", "file", path)
		}
	}
	return texts, nil
}

var errCacheWrite = errors.New("cache write failed")

func (l *Local) extractThroughCache(path, ext string) (string, error) {
	if cached, err := l.cache.Get(path); err == nil {
		slog.Debug("cache hit", "file", path)
		return string(cached), nil
	} else if !errors.Is(err, cache.ErrNotFound) {
		// corrupted or unreadable entries fall through to extraction
		slog.Warn("cache read failed, re-extracting", "file", path, "error", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", path, err)
	}

	text, err := textextract.Extract(bytes.NewReader(raw), int64(len(raw)), ext)
	if err != nil {
		return "", fmt.Errorf("extract %q: %w", path, err)
	}

	if err := l.cache.Put(path, []byte(text)); err != nil {
		return "", fmt.Errorf("%w for %q: %v", errCacheWrite, path, err)
	}
	return text, nil
}
