package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Upload  *UploadHandler
	Session *SessionHandler
	Report  *ReportHandler
}

// Register mounts every endpoint under router.
func Register(router fiber.Router, h Handlers) {
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	if h.Upload != nil {
		router.Post("/upload", h.Upload.HandleUpload)
	}

	sessions := router.Group("/sessions")
	sessions.Post("/", h.Session.HandleStart)
	sessions.Get("/:id", h.Session.HandleGetSession)
	sessions.Post("/:id/answers", h.Session.HandleSubmitAnswer)
	sessions.Get("/:id/transcript", h.Session.HandleTranscript)
	sessions.Get("/:id/report", h.Report.HandleGetReport)
}
