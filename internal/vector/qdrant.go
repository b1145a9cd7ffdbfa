package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hyperjump/kotae/internal/models"
)

// Payload keys stored with every point.
const (
	payloadText       = "text"
	payloadSourceID   = "source_id"
	payloadSeqIndex   = "sequence_index"
	payloadSourceType = "source_type"
)

// QdrantStore implements Store over the Qdrant gRPC API. The collection is
// created on first use with cosine distance and a fixed dimension.
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	collection  string
	dimensions  int
}

// NewQdrantStore connects to Qdrant at host:port and ensures the collection exists.
func NewQdrantStore(ctx context.Context, host string, port int, collection string, dimensions int) (*QdrantStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}

	s := &QdrantStore{
		conn:        conn,
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		collection:  collection,
		dimensions:  dimensions,
	}
	if err := s.ensureCollection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	resp, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, c := range resp.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	return s.createCollection(ctx)
}

func (s *QdrantStore) createCollection(ctx context.Context) error {
	_, err := s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(s.dimensions),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}
	return nil
}

// Upsert writes records as points with UUID ids and chunk metadata payload.
// Waits for the write to be applied so a subsequent search sees the points.
func (s *QdrantStore) Upsert(ctx context.Context, records []*models.IndexedRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) != s.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(rec.Embedding), s.dimensions)
		}
		points = append(points, &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: uuid.New().String()},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: rec.Embedding},
				},
			},
			Payload: map[string]*qdrant.Value{
				payloadText:       {Kind: &qdrant.Value_StringValue{StringValue: rec.Chunk.Text}},
				payloadSourceID:   {Kind: &qdrant.Value_StringValue{StringValue: rec.Chunk.SourceID}},
				payloadSeqIndex:   {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(rec.Chunk.SequenceIndex)}},
				payloadSourceType: {Kind: &qdrant.Value_StringValue{StringValue: string(rec.Chunk.SourceType)}},
			},
		})
	}

	wait := true
	_, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search returns the top-k points by cosine similarity, descending.
func (s *QdrantStore) Search(ctx context.Context, query []float32, k int) ([]*models.RetrievedCandidate, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query got %d, expected %d", ErrDimensionMismatch, len(query), s.dimensions)
	}
	if k <= 0 {
		return []*models.RetrievedCandidate{}, nil
	}
	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         query,
		Limit:          uint64(k),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	candidates := make([]*models.RetrievedCandidate, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		payload := point.GetPayload()
		candidates = append(candidates, &models.RetrievedCandidate{
			Chunk: models.Chunk{
				Text:          payload[payloadText].GetStringValue(),
				SourceID:      payload[payloadSourceID].GetStringValue(),
				SequenceIndex: int(payload[payloadSeqIndex].GetIntegerValue()),
				SourceType:    models.SourceType(payload[payloadSourceType].GetStringValue()),
			},
			Score: float64(point.GetScore()),
		})
	}
	return candidates, nil
}

// Recreate drops the collection and creates it again empty.
func (s *QdrantStore) Recreate(ctx context.Context) error {
	if _, err := s.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: s.collection}); err != nil {
		return fmt.Errorf("delete collection %s: %w", s.collection, err)
	}
	return s.createCollection(ctx)
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	exact := true
	resp, err := s.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}

// Close tears down the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}
