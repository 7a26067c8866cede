package qdrant

import (
	"context"
	"errors"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparselabs/ragserve/internal/embedding"
	"github.com/sparselabs/ragserve/internal/vectorstore"
)

type fakeClient struct {
	exists      bool
	pointsCount *uint64

	existsErr error
	createErr error
	upsertErr error
	queryErr  error

	createCalls int
	upserted    []*qdrant.PointStruct
	upsertCalls int
	hits        []*qdrant.ScoredPoint
	lastQuery   *qdrant.QueryPoints

	upsertStatus qdrant.UpdateStatus
}

func (f *fakeClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeClient) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createCalls++
	f.exists = true
	return nil
}

func (f *fakeClient) GetCollectionInfo(ctx context.Context, name string) (*qdrant.CollectionInfo, error) {
	return &qdrant.CollectionInfo{PointsCount: f.pointsCount}, nil
}

func (f *fakeClient) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upsertCalls++
	f.upserted = req.Points
	status := f.upsertStatus
	if status == qdrant.UpdateStatus_UnknownUpdateStatus {
		status = qdrant.UpdateStatus_Completed
	}
	return &qdrant.UpdateResult{Status: status}, nil
}

func (f *fakeClient) Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.lastQuery = req
	return f.hits, nil
}

func ptr(v uint64) *uint64 { return &v }

func embedded(content string, indices []uint32, values []float32) vectorstore.Chunk {
	return vectorstore.Chunk{
		Content:   content,
		Embedding: &embedding.SparseVector{Indices: indices, Values: values},
	}
}

func TestEnsureCollection_CreatesWhenAbsent(t *testing.T) {
	client := &fakeClient{}
	store := newWithClient(client, "docs")

	require.NoError(t, store.EnsureCollection(context.Background()))
	assert.Equal(t, 1, client.createCalls)
}

func TestEnsureCollection_Idempotent(t *testing.T) {
	client := &fakeClient{}
	store := newWithClient(client, "docs")

	require.NoError(t, store.EnsureCollection(context.Background()))
	require.NoError(t, store.EnsureCollection(context.Background()))

	assert.Equal(t, 1, client.createCalls, "second call must not recreate")
}

func TestEnsureCollection_PropagatesIndexError(t *testing.T) {
	client := &fakeClient{existsErr: errors.New("connection refused")}
	store := newWithClient(client, "docs")

	err := store.EnsureCollection(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestReady_MissingCollectionIsError(t *testing.T) {
	client := &fakeClient{exists: false}
	store := newWithClient(client, "docs")

	_, err := store.Ready(context.Background())
	assert.ErrorIs(t, err, vectorstore.ErrCollectionMissing)
}

func TestReady_EmptyCollectionIsFalse(t *testing.T) {
	client := &fakeClient{exists: true, pointsCount: ptr(0)}
	store := newWithClient(client, "docs")

	ready, err := store.Ready(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestReady_PopulatedCollectionIsTrue(t *testing.T) {
	client := &fakeClient{exists: true, pointsCount: ptr(3)}
	store := newWithClient(client, "docs")

	ready, err := store.Ready(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestReady_MissingPointsCountIsError(t *testing.T) {
	client := &fakeClient{exists: true, pointsCount: nil}
	store := newWithClient(client, "docs")

	_, err := store.Ready(context.Background())
	assert.ErrorContains(t, err, "points count")
}

func TestUpload_AssignsSequentialIDs(t *testing.T) {
	client := &fakeClient{exists: true, pointsCount: ptr(0)}
	store := newWithClient(client, "docs")

	chunks := []vectorstore.Chunk{
		embedded("first", []uint32{1}, []float32{0.5}),
		embedded("second", []uint32{2}, []float32{0.7}),
	}
	require.NoError(t, store.Upload(context.Background(), chunks))

	require.Len(t, client.upserted, 2)
	assert.Equal(t, uint64(1), client.upserted[0].Id.GetNum())
	assert.Equal(t, uint64(2), client.upserted[1].Id.GetNum())
	assert.Equal(t, "first", client.upserted[0].Payload["content"].GetStringValue())
}

func TestUpload_NoOpWhenAlreadyReady(t *testing.T) {
	client := &fakeClient{exists: true, pointsCount: ptr(10)}
	store := newWithClient(client, "docs")

	chunks := []vectorstore.Chunk{embedded("x", []uint32{1}, []float32{1})}
	require.NoError(t, store.Upload(context.Background(), chunks))

	assert.Zero(t, client.upsertCalls, "populated collection must not be written to")
}

func TestUpload_SkipsChunksWithoutEmbedding(t *testing.T) {
	client := &fakeClient{exists: true, pointsCount: ptr(0)}
	store := newWithClient(client, "docs")

	chunks := []vectorstore.Chunk{
		{Content: "no vector"},
		embedded("empty vector", nil, nil),
		embedded("good", []uint32{7}, []float32{0.3}),
	}
	require.NoError(t, store.Upload(context.Background(), chunks))

	require.Len(t, client.upserted, 1)
	assert.Equal(t, uint64(1), client.upserted[0].Id.GetNum())
	assert.Equal(t, "good", client.upserted[0].Payload["content"].GetStringValue())
}

func TestUpload_NormalizesRawVectors(t *testing.T) {
	client := &fakeClient{exists: true, pointsCount: ptr(0)}
	store := newWithClient(client, "docs")

	chunks := []vectorstore.Chunk{
		embedded("dup", []uint32{5, 2, 5}, []float32{1.0, 0.5, 0.25}),
	}
	require.NoError(t, store.Upload(context.Background(), chunks))

	require.Len(t, client.upserted, 1)
	sparse := client.upserted[0].Vectors.GetVectors().GetVectors()[vectorstore.SparseFieldName]
	require.NotNil(t, sparse)
	assert.Equal(t, []uint32{2, 5}, sparse.GetIndices().GetData())
	assert.InDeltaSlice(t, []float32{0.5, 1.25}, sparse.GetData(), 1e-6)
}

func TestUpload_MissingCollectionFailsReadinessCheck(t *testing.T) {
	client := &fakeClient{exists: false}
	store := newWithClient(client, "docs")

	err := store.Upload(context.Background(), []vectorstore.Chunk{embedded("x", []uint32{1}, []float32{1})})
	assert.ErrorIs(t, err, vectorstore.ErrCollectionMissing)
}

func TestUpload_NonCompletedStatusIsBatchError(t *testing.T) {
	client := &fakeClient{exists: true, pointsCount: ptr(0), upsertStatus: qdrant.UpdateStatus_ClockRejected}
	store := newWithClient(client, "docs")

	err := store.Upload(context.Background(), []vectorstore.Chunk{embedded("x", []uint32{1}, []float32{1})})
	assert.ErrorContains(t, err, "status")
}

func TestSearch_ReturnsContentsInRankOrder(t *testing.T) {
	client := &fakeClient{
		exists: true,
		hits: []*qdrant.ScoredPoint{
			{Id: qdrant.NewIDNum(1), Score: 0.9, Payload: qdrant.NewValueMap(map[string]any{"content": "Paris is the capital of France."})},
			{Id: qdrant.NewIDNum(2), Score: 0.4, Payload: qdrant.NewValueMap(map[string]any{"content": "Berlin is the capital of Germany."})},
		},
	}
	store := newWithClient(client, "docs")

	got, err := store.Search(context.Background(), embedding.SparseVector{Indices: []uint32{1}, Values: []float32{1}}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris is the capital of France.", "Berlin is the capital of Germany."}, got)

	require.NotNil(t, client.lastQuery)
	assert.Equal(t, vectorstore.SparseFieldName, client.lastQuery.GetUsing())
	assert.Equal(t, uint64(2), client.lastQuery.GetLimit())
}

func TestSearch_DropsHitsWithoutContentPayload(t *testing.T) {
	client := &fakeClient{
		exists: true,
		hits: []*qdrant.ScoredPoint{
			{Id: qdrant.NewIDNum(1), Payload: qdrant.NewValueMap(map[string]any{"other": "field"})},
			{Id: qdrant.NewIDNum(2), Payload: qdrant.NewValueMap(map[string]any{"content": "kept"})},
		},
	}
	store := newWithClient(client, "docs")

	got, err := store.Search(context.Background(), embedding.SparseVector{Indices: []uint32{1}, Values: []float32{1}}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, got)
}

func TestSearch_PropagatesQueryError(t *testing.T) {
	client := &fakeClient{exists: true, queryErr: errors.New("deadline exceeded")}
	store := newWithClient(client, "docs")

	_, err := store.Search(context.Background(), embedding.SparseVector{}, 5)
	assert.ErrorContains(t, err, "deadline exceeded")
}
