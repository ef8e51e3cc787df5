package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// QdrantService stores embedded interview-guide chunks and finds the ones
// closest to a query vector.
type QdrantService interface {
	InitCollection(ctx context.Context) error
	UpsertChunk(ctx context.Context, chunk GuideChunk, embedding []float32) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, topic string, limit int) ([]SearchResult, error)
	DeleteGuide(ctx context.Context, guideID string) error
}

// GuideChunk is one piece of an ingested interview guide.
type GuideChunk struct {
	GuideID string
	Topic   string
	Index   int
	Text    string
}

type SearchResult struct {
	GuideID string
	Topic   string
	Score   float32
	Text    string
}

type qdrantService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

func NewQdrantService(urlStr, apiKey, collectionName string, log *zap.Logger) (QdrantService, error) {
	if log == nil {
		log = zap.NewNop()
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	// The go client speaks gRPC, which listens on 6334 unless the URL says otherwise.
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     768, // text-embedding-004
		log:            log,
	}, nil
}

// InitCollection implements QdrantService.
func (q *qdrantService) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		q.log.Debug("qdrant collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("✅ Qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// UpsertChunk implements QdrantService. Point ids are derived from the guide
// id and chunk index, so re-ingesting a guide overwrites its points.
func (q *qdrantService) UpsertChunk(ctx context.Context, chunk GuideChunk, embedding []float32) error {
	pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", chunk.GuideID, chunk.Index)))

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(pointID.String()),
		Vectors: qdrant.NewVectors(embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"guide_id": chunk.GuideID,
			"topic":    chunk.Topic,
			"index":    int64(chunk.Index),
			"text":     chunk.Text,
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// SearchSimilar implements QdrantService. An empty topic searches every guide.
func (q *qdrantService) SearchSimilar(ctx context.Context, queryEmbedding []float32, topic string, limit int) ([]SearchResult, error) {
	var filter *qdrant.Filter
	if topic != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("topic", topic)},
		}
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, point := range points {
		results = append(results, SearchResult{
			GuideID: payloadString(point.Payload, "guide_id"),
			Topic:   payloadString(point.Payload, "topic"),
			Score:   point.Score,
			Text:    payloadString(point.Payload, "text"),
		})
	}
	return results, nil
}

// DeleteGuide implements QdrantService.
func (q *qdrantService) DeleteGuide(ctx context.Context, guideID string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{qdrant.NewMatch("guide_id", guideID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete guide: %w", err)
	}
	return nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.GetKind().(*qdrant.Value_StringValue); ok {
		return s.StringValue
	}
	return ""
}
