package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sparselabs/ragserve/internal/embedding"
	"github.com/sparselabs/ragserve/internal/parser"
	"github.com/sparselabs/ragserve/internal/vectorstore"
	"github.com/sparselabs/ragserve/pkg/chunker"
)

// DefaultStoreTimeout bounds each index call the pipeline makes.
// A hung create or upload fails the run instead of stalling it.
const DefaultStoreTimeout = 2 * time.Minute

// Pipeline loads a directory's documents into the vector index:
// parse, chunk, embed, upload. One failed upload aborts the whole
// run; re-running is safe because a populated collection is never
// written to again.
type Pipeline struct {
	source       parser.DocumentSource
	embedder     *embedding.BM25
	store        vectorstore.Store
	chunkSize    int
	storeTimeout time.Duration
}

func NewPipeline(source parser.DocumentSource, embedder *embedding.BM25, store vectorstore.Store, chunkSize int) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultChunkSize
	}
	return &Pipeline{
		source:       source,
		embedder:     embedder,
		store:        store,
		chunkSize:    chunkSize,
		storeTimeout: DefaultStoreTimeout,
	}
}

func (p *Pipeline) Run(ctx context.Context) error {
	log := slog.With("run", uuid.NewString())

	docs, err := p.source.Documents(ctx)
	if err != nil {
		return fmt.Errorf("parse documents: %w", err)
	}
	log.Info("documents parsed", "documents", len(docs))

	if err := p.ensureCollection(ctx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	for i, doc := range docs {
		segments := chunker.Split(doc, p.chunkSize)
		vectors := p.embedder.EmbedBatch(segments)

		chunks := make([]vectorstore.Chunk, len(segments))
		for j, segment := range segments {
			vec := vectors[j]
			chunks[j] = vectorstore.Chunk{Content: segment, Embedding: &vec}
		}
		log.Info("document chunked and embedded", "document", i+1, "chunks", len(chunks))

		if err := p.upload(ctx, chunks); err != nil {
			return fmt.Errorf("upload chunks for document %d: %w", i+1, err)
		}
	}

	log.Info("ingestion finished", "documents", len(docs))
	return nil
}

func (p *Pipeline) ensureCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	return p.store.EnsureCollection(ctx)
}

func (p *Pipeline) upload(ctx context.Context, chunks []vectorstore.Chunk) error {
	ctx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	return p.store.Upload(ctx, chunks)
}
