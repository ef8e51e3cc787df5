package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingGuideStore struct {
	deleted []string
	chunks  []GuideChunk
	failAt  int
}

func (r *recordingGuideStore) UpsertChunk(ctx context.Context, chunk GuideChunk, embedding []float32) error {
	if r.failAt > 0 && len(r.chunks)+1 == r.failAt {
		return errors.New("qdrant down")
	}
	r.chunks = append(r.chunks, chunk)
	return nil
}

func (r *recordingGuideStore) DeleteGuide(ctx context.Context, guideID string) error {
	r.deleted = append(r.deleted, guideID)
	return nil
}

func writeGuide(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guide.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write guide: %v", err)
	}
	return path
}

func TestGuideIngesterReplacesChunks(t *testing.T) {
	body := strings.Repeat("Ask how the candidate sizes a cache.\n\n", 60)
	store := &recordingGuideStore{}
	ingester := NewGuideIngester(NewTextExtractor(), NewTextChunker(), fakeEmbedder{}, store, nil)

	n, err := ingester.Ingest(context.Background(), Guide{ID: "backend", Topic: "backend", Path: writeGuide(t, body)})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n < 2 || n != len(store.chunks) {
		t.Fatalf("stored %d chunks, reported %d", len(store.chunks), n)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "backend" {
		t.Fatalf("expected previous chunks to be cleared once, got %v", store.deleted)
	}
	for i, chunk := range store.chunks {
		if chunk.Index != i || chunk.GuideID != "backend" || chunk.Topic != "backend" {
			t.Fatalf("unexpected chunk %d: %+v", i, chunk)
		}
	}
}

func TestGuideIngesterErrors(t *testing.T) {
	path := writeGuide(t, strings.Repeat("Probe for trade-offs.\n\n", 80))

	t.Run("missing id", func(t *testing.T) {
		ingester := NewGuideIngester(NewTextExtractor(), NewTextChunker(), fakeEmbedder{}, &recordingGuideStore{}, nil)
		if _, err := ingester.Ingest(context.Background(), Guide{Path: path}); err == nil {
			t.Fatal("expected error for blank guide id")
		}
	})

	t.Run("embedding failure", func(t *testing.T) {
		boom := errors.New("quota")
		ingester := NewGuideIngester(NewTextExtractor(), NewTextChunker(), fakeEmbedder{err: boom}, &recordingGuideStore{}, nil)
		n, err := ingester.Ingest(context.Background(), Guide{ID: "g", Path: path})
		if !errors.Is(err, boom) || n != 0 {
			t.Fatalf("expected embedding error after 0 chunks, got %d, %v", n, err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := &recordingGuideStore{failAt: 2}
		ingester := NewGuideIngester(NewTextExtractor(), NewTextChunker(), fakeEmbedder{}, store, nil)
		n, err := ingester.Ingest(context.Background(), Guide{ID: "g", Path: path})
		if err == nil || n != 1 {
			t.Fatalf("expected failure on second chunk, got %d, %v", n, err)
		}
	})
}
