package vectorstore

import (
	"context"
	"errors"

	"github.com/sparselabs/ragserve/internal/embedding"
)

// SparseFieldName is the single named sparse-vector field every
// collection is created with.
const SparseFieldName = "text"

// ErrCollectionMissing distinguishes "collection does not exist" from
// "collection exists but holds no points" (the latter is Ready=false).
var ErrCollectionMissing = errors.New("collection does not exist")

// Chunk is one segment of a source document on its way into the
// index. Embedding is attached by the embedder and may be nil when
// embedding produced nothing usable.
type Chunk struct {
	Content   string
	Embedding *embedding.SparseVector
}

// Store manages a single named collection in a remote vector index.
// Implementations are stateless handles, safe to share across
// concurrent callers; ingestion writes through Upload, serving reads
// through Search.
type Store interface {
	// EnsureCollection creates the collection if absent. Calling it
	// against an existing collection is a no-op.
	EnsureCollection(ctx context.Context) error

	// Ready reports whether the collection exists and holds at least
	// one point. A missing collection is an error, not false.
	Ready(ctx context.Context) (bool, error)

	// Upload bulk-inserts the chunks as points with 1-based
	// sequential ids. If the collection is already ready the whole
	// upload is a no-op.
	Upload(ctx context.Context, chunks []Chunk) error

	// Search returns the content payloads of the top-limit hits for
	// the query vector, ranked by similarity.
	Search(ctx context.Context, query embedding.SparseVector, limit uint64) ([]string, error)
}
