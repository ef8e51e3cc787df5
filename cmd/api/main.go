package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/app"
	"alfredoptarigan/interview-simulator/internal/config"
	"alfredoptarigan/interview-simulator/internal/handlers"
	"alfredoptarigan/interview-simulator/internal/logger"
	"alfredoptarigan/interview-simulator/internal/repositories"
	"alfredoptarigan/interview-simulator/internal/services"
	"alfredoptarigan/interview-simulator/internal/telemetry"
)

func main() {
	cfg := config.Load()

	log := logger.Must(logger.Options{
		JSON:  cfg.Log.JSON,
		Debug: cfg.Log.Debug,
		File:  cfg.Log.File,
	})
	defer func() { _ = log.Sync() }()
	log.Info("✅ Config loaded successfully", zap.String("env", cfg.Server.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry.Dir, "interview-api", log)
		if err != nil {
			log.Fatal("❌ Failed to initialize telemetry", zap.Error(err))
		}
		defer shutdownTelemetry()
		log.Info("✅ Telemetry initialized", zap.String("dir", cfg.Telemetry.Dir))
	}

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	docRepo := repositories.NewDocumentRepository(db)
	stores := app.Stores{
		Sessions: repositories.NewSessionRepository(db),
		Turns:    repositories.NewTurnRepository(db),
		Reports:  repositories.NewReportRepository(db),
	}
	log.Info("✅ Repositories initialized successfully")

	storageService := services.NewStorageService(cfg.Storage.UploadPath, cfg.Storage.MaxFileSize)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	svc, err := app.Build(ctx, cfg, stores, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize services", zap.Error(err))
	}
	log.Info("✅ Services initialized successfully")

	svc.Worker.Start(ctx)

	routes := handlers.Handlers{
		Upload:  handlers.NewUploadHandler(docRepo, storageService, services.NewTextExtractor(), cfg.Storage.MaxFileSize, log),
		Session: handlers.NewSessionHandler(svc.Orchestrator, docRepo, log),
		Report:  handlers.NewReportHandler(svc.Reports, log),
	}

	server := fiber.New(fiber.Config{
		AppName:      "Interview Simulator API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: handlers.ErrorHandler,
	})

	server.Use(recover.New())
	server.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	server.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.Register(server.Group("/api/v1"), routes)

	server.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Interview Simulator API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/upload",
				"POST /api/v1/sessions",
				"GET /api/v1/sessions/:id",
				"POST /api/v1/sessions/:id/answers",
				"GET /api/v1/sessions/:id/transcript",
				"GET /api/v1/sessions/:id/report",
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("🛑 Shutting down server...")
		if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("❌ Server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", zap.String("addr", addr))

	if err := server.Listen(addr); err != nil {
		log.Fatal("❌ Failed to start server", zap.Error(err))
	}

	cancel()
	svc.Worker.Stop()
	log.Info("👋 Server stopped")
}
