package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/logger"
	"alfredoptarigan/interview-simulator/internal/models"
	"alfredoptarigan/interview-simulator/internal/repositories"
)

// ReportService returns stored reports and generates missing ones. Generation
// for a session runs under that session's lock, so concurrent requests and the
// background worker produce a single report.
type ReportService interface {
	GetReport(ctx context.Context, sessionID uuid.UUID, refresh bool) (*models.Report, error)
	// Generate creates the report for a completed session unless one exists.
	Generate(ctx context.Context, sessionID uuid.UUID) error
}

type reportService struct {
	sessions    repositories.SessionRepository
	turns       repositories.TurnRepository
	reports     repositories.ReportRepository
	synthesizer ReportSynthesizer
	locks       *SessionLocks
	log         *zap.Logger
}

func NewReportService(
	sessions repositories.SessionRepository,
	turns repositories.TurnRepository,
	reports repositories.ReportRepository,
	synthesizer ReportSynthesizer,
	locks *SessionLocks,
	log *zap.Logger,
) ReportService {
	if log == nil {
		log = zap.NewNop()
	}
	if locks == nil {
		locks = NewSessionLocks()
	}
	return &reportService{
		sessions:    sessions,
		turns:       turns,
		reports:     reports,
		synthesizer: synthesizer,
		locks:       locks,
		log:         log,
	}
}

func (s *reportService) GetReport(ctx context.Context, sessionID uuid.UUID, refresh bool) (*models.Report, error) {
	const op = "get report"

	if _, err := s.completedSession(ctx, op, sessionID); err != nil {
		return nil, err
	}

	if !refresh {
		report, err := s.storedReport(ctx, op, sessionID)
		if err != nil || report != nil {
			return report, err
		}
	}

	return s.generate(ctx, op, sessionID, refresh)
}

func (s *reportService) Generate(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.generate(ctx, "generate report", sessionID, false)
	return err
}

func (s *reportService) generate(ctx context.Context, op string, sessionID uuid.UUID, refresh bool) (*models.Report, error) {
	release, err := s.locks.Acquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer release()

	session, err := s.completedSession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}

	// Another caller may have produced the report while we waited.
	if !refresh {
		report, err := s.storedReport(ctx, op, sessionID)
		if err != nil || report != nil {
			return report, err
		}
	}

	transcript, err := s.turns.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	content, err := s.synthesizer.Synthesize(ctx, session.Persona, transcript)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		SessionID:       sessionID,
		Summary:         content.Summary,
		Strengths:       content.Strengths,
		Risks:           content.Risks,
		Recommendations: content.Recommendations,
	}
	if err := s.reports.Upsert(ctx, report); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.WithFields(s.log, logger.SessionFields(sessionID.String(), string(session.Persona))...).
		Info("📝 Interview report generated", zap.Bool("refresh", refresh))
	return report, nil
}

func (s *reportService) completedSession(ctx context.Context, op string, sessionID uuid.UUID) (*models.Session, error) {
	session, err := findSession(ctx, s.sessions, op, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Completed {
		return nil, newError(op, ErrSessionNotComplete, nil)
	}
	return session, nil
}

// storedReport returns nil, nil when no report exists yet.
func (s *reportService) storedReport(ctx context.Context, op string, sessionID uuid.UUID) (*models.Report, error) {
	report, err := s.reports.FindBySessionID(ctx, sessionID)
	if err == nil {
		return report, nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}
