package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/models"
	"alfredoptarigan/interview-simulator/internal/repositories"
	"alfredoptarigan/interview-simulator/internal/services"
)

type SessionHandler struct {
	orchestrator services.Orchestrator
	docRepo      repositories.DocumentRepository
	log          *zap.Logger
}

func NewSessionHandler(orchestrator services.Orchestrator, docRepo repositories.DocumentRepository, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{
		orchestrator: orchestrator,
		docRepo:      docRepo,
		log:          log,
	}
}

// HandleStart creates a session from inline text or uploaded document ids.
func (h *SessionHandler) HandleStart(c *fiber.Ctx) error {
	var req models.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid_body", "Request body must be JSON.")
	}

	rawPersona := strings.TrimSpace(req.Persona)
	if rawPersona == "" {
		rawPersona = string(models.PersonaNeutral)
	}
	persona, err := services.ParsePersona(rawPersona)
	if err != nil {
		return respondError(c, h.log, err)
	}

	jd, err := h.documentText(c, req.JobDescriptionText, req.JobDescriptionDocumentID, models.DocumentJobDescription)
	if err != nil {
		return badRequest(c, "invalid_document", err.Error())
	}
	resume, err := h.documentText(c, req.ResumeText, req.ResumeDocumentID, models.DocumentResume)
	if err != nil {
		return badRequest(c, "invalid_document", err.Error())
	}
	if jd == "" && resume == "" {
		return badRequest(c, "missing_documents", "Provide a job description and/or a resume, as text or document id.")
	}

	res, err := h.orchestrator.StartSession(c.UserContext(), services.StartRequest{
		Persona:            persona,
		JobDescriptionText: jd,
		ResumeText:         resume,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.StartSessionResponse{
		SessionID:     res.SessionID.String(),
		FirstQuestion: res.FirstQuestion,
		Persona:       string(res.Persona),
		Voice:         models.VoiceResponse{Rate: res.Voice.Rate, Pitch: res.Voice.Pitch},
	})
}

func (h *SessionHandler) HandleSubmitAnswer(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid_session_id", "Invalid session ID format.")
	}

	var req models.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid_body", "Request body must be JSON.")
	}

	res, err := h.orchestrator.SubmitAnswer(c.UserContext(), sessionID, req.Answer)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(models.SubmitAnswerResponse{
		NextInterviewerText: res.NextInterviewerText,
		SessionCompleted:    res.SessionCompleted,
		CurrentSeedIndex:    res.CurrentSeedIndex,
	})
}

func (h *SessionHandler) HandleGetSession(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid_session_id", "Invalid session ID format.")
	}

	session, err := h.orchestrator.GetSession(c.UserContext(), sessionID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(models.SessionResponse{
		ID:               session.ID.String(),
		Persona:          string(session.Persona),
		State:            string(session.State),
		CurrentSeedIndex: session.CurrentSeedIndex,
		SeedCount:        len(session.SeedQuestions),
		Completed:        session.Completed,
		CurrentQuestion:  session.CurrentSeed(),
	})
}

func (h *SessionHandler) HandleTranscript(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid_session_id", "Invalid session ID format.")
	}

	turns, err := h.orchestrator.Transcript(c.UserContext(), sessionID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	response := make([]models.TurnResponse, 0, len(turns))
	for _, turn := range turns {
		response = append(response, models.TurnResponse{
			SequenceNumber: turn.SequenceNumber,
			Speaker:        string(turn.Speaker),
			Kind:           string(turn.Kind),
			Text:           turn.Text,
			CreatedAt:      turn.CreatedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID.String(),
		"turns":      response,
	})
}

// documentText prefers inline text and falls back to an uploaded document of
// the expected type.
func (h *SessionHandler) documentText(c *fiber.Ctx, text, documentID string, want models.DocumentType) (string, error) {
	if text = strings.TrimSpace(text); text != "" {
		return text, nil
	}
	if strings.TrimSpace(documentID) == "" {
		return "", nil
	}

	id, err := uuid.Parse(strings.TrimSpace(documentID))
	if err != nil {
		return "", fmt.Errorf("invalid %s document id", want)
	}

	doc, err := h.docRepo.FindByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", fmt.Errorf("%s document not found", want)
		}
		h.log.Error("failed to load document", zap.String("document_id", id.String()), zap.Error(err))
		return "", fmt.Errorf("could not load %s document", want)
	}
	if doc.FileType != want {
		return "", fmt.Errorf("document %s is a %s, not a %s", id, doc.FileType, want)
	}
	return doc.TextExtracted, nil
}
