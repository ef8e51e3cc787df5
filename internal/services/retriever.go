package services

import (
	"context"
	"fmt"
	"strings"
)

// Embedder turns text into a query vector.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ContextRetriever returns reference excerpts relevant to a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

type guideRetriever struct {
	embedder Embedder
	store    QdrantService
}

func NewGuideRetriever(embedder Embedder, store QdrantService) ContextRetriever {
	return &guideRetriever{embedder: embedder, store: store}
}

func (r *guideRetriever) Retrieve(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}

	vector, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed retrieval query: %w", err)
	}

	results, err := r.store.SearchSimilar(ctx, vector, "", limit)
	if err != nil {
		return nil, fmt.Errorf("search interview guides: %w", err)
	}
	return results, nil
}
