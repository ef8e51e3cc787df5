package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/models"
	"alfredoptarigan/interview-simulator/internal/services"
)

type ReportHandler struct {
	reports services.ReportService
	log     *zap.Logger
}

func NewReportHandler(reports services.ReportService, log *zap.Logger) *ReportHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportHandler{reports: reports, log: log}
}

// HandleGetReport returns the stored report, generating it on first access.
// ?refresh=true forces a new synthesis.
func (h *ReportHandler) HandleGetReport(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid_session_id", "Invalid session ID format.")
	}

	report, err := h.reports.GetReport(c.UserContext(), sessionID, c.QueryBool("refresh", false))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(models.ReportResponse{
		SessionID:       report.SessionID.String(),
		Summary:         report.Summary,
		Strengths:       nonNil(report.Strengths),
		Risks:           nonNil(report.Risks),
		Recommendations: nonNil(report.Recommendations),
	})
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
