package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/config"
	"alfredoptarigan/interview-simulator/internal/logger"
	"alfredoptarigan/interview-simulator/internal/services"
)

// Indexes every .pdf and .txt interview guide under -dir into Qdrant. The file
// name (without extension) becomes the guide id, the parent folder its topic.
func main() {
	dir := flag.String("dir", "./reference_docs/guides", "directory of interview guides")
	flag.Parse()

	cfg := config.Load()
	log := logger.Must(logger.Options{JSON: cfg.Log.JSON, Debug: cfg.Log.Debug, File: cfg.Log.File})
	defer func() { _ = log.Sync() }()

	log.Info("🚀 Starting guide ingestion", zap.String("dir", *dir))

	ctx := context.Background()

	apiKey, err := cfg.GeminiAPIKey()
	if err != nil || apiKey == "" {
		log.Fatal("❌ A Gemini API key is required for embeddings", zap.Error(err))
	}

	geminiService, err := services.NewGeminiService(ctx, apiKey, services.GeminiSettings{
		Model:       cfg.Gemini.Model,
		EmbedModel:  cfg.Gemini.EmbedModel,
		Temperature: cfg.Gemini.Temperature,
		MaxRetries:  cfg.Gemini.MaxRetries,
		RetryDelay:  cfg.Gemini.RetryDelay,
	}, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize Gemini", zap.Error(err))
	}

	qdrantService, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
	}
	if err := qdrantService.InitCollection(ctx); err != nil {
		log.Fatal("❌ Failed to initialize collection", zap.Error(err))
	}

	ingester := services.NewGuideIngester(
		services.NewTextExtractor(),
		services.NewTextChunker(),
		geminiService,
		qdrantService,
		log,
	)

	guides, err := discoverGuides(*dir)
	if err != nil {
		log.Fatal("❌ Failed to list guides", zap.Error(err))
	}

	successCount := 0
	failCount := 0
	for _, guide := range guides {
		log.Info("📄 Processing guide", zap.String("path", guide.Path), zap.String("topic", guide.Topic))
		chunks, err := ingester.Ingest(ctx, guide)
		if err != nil {
			log.Error("❌ Failed to ingest guide", zap.String("guide_id", guide.ID), zap.Int("stored", chunks), zap.Error(err))
			failCount++
			continue
		}
		successCount++
	}

	log.Info("📊 Ingestion summary", zap.Int("successful", successCount), zap.Int("failed", failCount))
	if failCount > 0 {
		os.Exit(1)
	}
}

func discoverGuides(root string) ([]services.Guide, error) {
	var guides []services.Guide
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".pdf" && ext != ".txt" {
			return nil
		}

		topic := filepath.Base(filepath.Dir(path))
		if filepath.Clean(filepath.Dir(path)) == filepath.Clean(root) {
			topic = ""
		}
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if topic != "" {
			id = topic + "/" + id
		}

		guides = append(guides, services.Guide{ID: id, Topic: topic, Path: path})
		return nil
	})
	return guides, err
}
