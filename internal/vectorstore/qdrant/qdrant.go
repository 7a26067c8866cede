package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/sparselabs/ragserve/internal/embedding"
	"github.com/sparselabs/ragserve/internal/vectorstore"
)

const defaultPort = 6334

// pointsClient is the slice of the Qdrant client the store uses.
type pointsClient interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	GetCollectionInfo(ctx context.Context, collectionName string) (*qdrant.CollectionInfo, error)
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
}

// Store is a vectorstore.Store backed by a Qdrant collection with a
// single named sparse field. It keeps no state beyond the collection
// name and the client handle.
type Store struct {
	client     pointsClient
	collection string
}

// New connects to the Qdrant instance at rawURL. An empty API key is
// fine for unauthenticated instances.
func New(rawURL, apiKey, collection string) (*Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url: %w", err)
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse qdrant port: %w", err)
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}
	return &Store{client: client, collection: collection}, nil
}

func newWithClient(client pointsClient, collection string) *Store {
	return &Store{client: client, collection: collection}
}

// EnsureCollection creates the collection with the "text" sparse
// field unless it already exists.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check collection %q: %w", s.collection, err)
	}
	if exists {
		slog.Info("collection already exists", "collection", s.collection)
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			vectorstore.SparseFieldName: {},
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %q: %w", s.collection, err)
	}
	slog.Info("collection created", "collection", s.collection)
	return nil
}

// Ready reports whether the collection exists and contains points.
func (s *Store) Ready(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("check collection %q: %w", s.collection, err)
	}
	if !exists {
		return false, fmt.Errorf("collection %q: %w", s.collection, vectorstore.ErrCollectionMissing)
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("collection info %q: %w", s.collection, err)
	}
	if info.PointsCount == nil {
		return false, fmt.Errorf("collection %q reported no points count", s.collection)
	}
	return *info.PointsCount > 0, nil
}

// Upload normalizes each chunk's vector, assigns 1-based sequential
// ids and submits everything as one bulk upsert. Against an already
// populated collection the whole call is a no-op, so re-running an
// ingestion cannot duplicate points. Ids restart at 1 per batch;
// uploading twice into the same collection is not supported.
func (s *Store) Upload(ctx context.Context, chunks []vectorstore.Chunk) error {
	ready, err := s.Ready(ctx)
	if err != nil {
		return fmt.Errorf("readiness check before upload: %w", err)
	}
	if ready {
		slog.Info("collection already populated, skipping upload", "collection", s.collection)
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		if chunk.Embedding == nil || chunk.Embedding.IsEmpty() {
			slog.Warn("chunk has no embedding, skipping", "chunk", i+1)
			continue
		}
		vec := chunk.Embedding.Normalize()
		points = append(points, &qdrant.PointStruct{
			Id: qdrant.NewIDNum(uint64(len(points) + 1)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				vectorstore.SparseFieldName: qdrant.NewVectorSparse(vec.Indices, vec.Values),
			}),
			Payload: qdrant.NewValueMap(map[string]any{"content": chunk.Content}),
		})
	}
	if len(points) == 0 {
		slog.Warn("no embedded chunks to upload", "collection", s.collection)
		return nil
	}

	result, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	if result.GetStatus() != qdrant.UpdateStatus_Completed {
		return fmt.Errorf("upsert %d points: status %s", len(points), result.GetStatus())
	}
	slog.Info("points uploaded", "collection", s.collection, "points", len(points))
	return nil
}

// Search runs a top-limit similarity query on the sparse field and
// returns each hit's content payload in rank order. Hits without a
// content payload are logged and dropped.
func (s *Store) Search(ctx context.Context, query embedding.SparseVector, limit uint64) ([]string, error) {
	vec := query.Normalize()
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuerySparse(vec.Indices, vec.Values),
		Using:          qdrant.PtrOf(vectorstore.SparseFieldName),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query collection %q: %w", s.collection, err)
	}

	contents := make([]string, 0, len(hits))
	for _, hit := range hits {
		value, ok := hit.GetPayload()["content"]
		if !ok {
			slog.Warn("hit has no content payload, dropping", "id", hit.GetId())
			continue
		}
		contents = append(contents, value.GetStringValue())
	}
	return contents, nil
}
