package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/config"
	"alfredoptarigan/interview-simulator/internal/repositories"
	"alfredoptarigan/interview-simulator/internal/services"
)

// Stores groups the persistence the interview services run against.
type Stores struct {
	Sessions repositories.SessionRepository
	Turns    repositories.TurnRepository
	Reports  repositories.ReportRepository
}

// Services is the wired interview core shared by the API server and the CLI.
type Services struct {
	Orchestrator services.Orchestrator
	Reports      services.ReportService
	Worker       services.Worker
	Gemini       services.GeminiService
	Qdrant       services.QdrantService
}

// NewGateway picks Gemini when an API key is configured and the offline mock
// gateway otherwise. The returned gateway is always instrumented.
func NewGateway(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.Gateway, services.GeminiService, error) {
	apiKey, err := cfg.GeminiAPIKey()
	if err != nil {
		return nil, nil, err
	}

	if apiKey == "" {
		log.Warn("⚠️ GEMINI_API_KEY not set, using mock gateway")
		return services.NewInstrumentedGateway(services.NewMockGateway(), "mock", "mock", log), nil, nil
	}

	gemini, err := services.NewGeminiService(ctx, apiKey, services.GeminiSettings{
		Model:       cfg.Gemini.Model,
		EmbedModel:  cfg.Gemini.EmbedModel,
		Temperature: cfg.Gemini.Temperature,
		MaxRetries:  cfg.Gemini.MaxRetries,
		RetryDelay:  cfg.Gemini.RetryDelay,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize gemini: %w", err)
	}
	log.Info("✅ Gemini AI initialized successfully", zap.String("model", cfg.Gemini.Model))

	return services.NewInstrumentedGateway(gemini, "gemini", cfg.Gemini.Model, log), gemini, nil
}

// Build wires planner, decision engine, synthesizer, report worker and
// orchestrator. The worker is returned unstarted.
func Build(ctx context.Context, cfg *config.Config, stores Stores, log *zap.Logger) (*Services, error) {
	if log == nil {
		log = zap.NewNop()
	}

	gateway, gemini, err := NewGateway(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	policy := services.NewPersonaPolicy(cfg.Interview.Language)
	prompts := services.NewPromptBuilder(cfg.Interview.SeedQuestionCount, cfg.Interview.MaxDocumentChars)

	var plannerOpts []services.PlannerOption
	var qdrant services.QdrantService
	if cfg.Qdrant.Enabled && gemini != nil {
		qdrant, err = services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant: %w", err)
		}
		if err := qdrant.InitCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize qdrant collection: %w", err)
		}
		retriever := services.NewGuideRetriever(gemini, qdrant)
		plannerOpts = append(plannerOpts, services.WithContextRetriever(retriever, cfg.Interview.ContextChunks))
		log.Info("✅ Qdrant guide retrieval enabled", zap.String("collection", cfg.Qdrant.Collection))
	}

	planner := services.NewQuestionPlanner(gateway, policy, prompts, log, plannerOpts...)
	engine := services.NewDecisionEngine(gateway, policy, prompts, log)
	synthesizer := services.NewReportSynthesizer(gateway, policy, prompts, log)

	reports := services.NewReportService(stores.Sessions, stores.Turns, stores.Reports, synthesizer, services.NewSessionLocks(), log)
	worker := services.NewWorker(stores.Sessions, reports, cfg.Worker.Concurrency, cfg.Worker.PollInterval, log)

	orchestrator := services.NewOrchestrator(
		stores.Sessions,
		stores.Turns,
		planner,
		engine,
		services.NewSessionLocks(),
		log,
		services.WithReportScheduler(worker),
	)

	return &Services{
		Orchestrator: orchestrator,
		Reports:      reports,
		Worker:       worker,
		Gemini:       gemini,
		Qdrant:       qdrant,
	}, nil
}
