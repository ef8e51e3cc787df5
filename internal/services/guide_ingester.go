package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// GuideStore is the write side of the interview guide index.
type GuideStore interface {
	UpsertChunk(ctx context.Context, chunk GuideChunk, embedding []float32) error
	DeleteGuide(ctx context.Context, guideID string) error
}

// Guide is one reference document to index for question planning.
type Guide struct {
	ID    string
	Topic string
	Path  string
}

type GuideIngester struct {
	extractor    TextExtractor
	chunker      TextChunker
	embedder     Embedder
	store        GuideStore
	maxChunkSize int
	overlap      int
	log          *zap.Logger
}

func NewGuideIngester(extractor TextExtractor, chunker TextChunker, embedder Embedder, store GuideStore, log *zap.Logger) *GuideIngester {
	if log == nil {
		log = zap.NewNop()
	}
	return &GuideIngester{
		extractor:    extractor,
		chunker:      chunker,
		embedder:     embedder,
		store:        store,
		maxChunkSize: 1000,
		overlap:      200,
		log:          log,
	}
}

// Ingest replaces every indexed chunk of the guide with freshly embedded
// chunks of its current text and returns how many were stored.
func (g *GuideIngester) Ingest(ctx context.Context, guide Guide) (int, error) {
	if strings.TrimSpace(guide.ID) == "" {
		return 0, fmt.Errorf("guide id is required")
	}

	log := g.log.With(zap.String("guide_id", guide.ID), zap.String("topic", guide.Topic))

	text, err := g.extractor.ExtractText(guide.Path)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", guide.Path, err)
	}

	chunks := g.chunker.ChunkText(text, g.maxChunkSize, g.overlap)
	log.Debug("✂️ guide chunked", zap.Int("chunks", len(chunks)), zap.Int("chars", len(text)))
	if len(chunks) == 0 {
		return 0, fmt.Errorf("guide %s produced no chunks", guide.ID)
	}

	if err := g.store.DeleteGuide(ctx, guide.ID); err != nil {
		return 0, fmt.Errorf("clear previous chunks of %s: %w", guide.ID, err)
	}

	for i, chunk := range chunks {
		embedding, err := g.embedder.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return i, fmt.Errorf("embed chunk %d of %s: %w", i, guide.ID, err)
		}

		if err := g.store.UpsertChunk(ctx, GuideChunk{
			GuideID: guide.ID,
			Topic:   guide.Topic,
			Index:   i,
			Text:    chunk,
		}, embedding); err != nil {
			return i, fmt.Errorf("store chunk %d of %s: %w", i, guide.ID, err)
		}
	}

	log.Info("✅ Guide ingested", zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}
