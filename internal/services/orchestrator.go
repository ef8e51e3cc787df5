package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"alfredoptarigan/interview-simulator/internal/logger"
	"alfredoptarigan/interview-simulator/internal/models"
	"alfredoptarigan/interview-simulator/internal/repositories"
	"alfredoptarigan/interview-simulator/internal/telemetry"
)

// ClosingLine is returned to the candidate after the last answer. It is not
// part of the transcript.
const ClosingLine = "Thank you, that concludes the interview. Your report is being prepared."

type StartRequest struct {
	Persona            models.Persona
	JobDescriptionText string
	ResumeText         string
}

type StartResult struct {
	SessionID     uuid.UUID
	FirstQuestion string
	Persona       models.Persona
	Voice         Voice
}

type AnswerResult struct {
	NextInterviewerText string
	SessionCompleted    bool
	CurrentSeedIndex    int
}

// ReportScheduler accepts completed sessions for background report generation.
type ReportScheduler interface {
	EnqueueJob(sessionID uuid.UUID)
}

// Orchestrator owns the interview state machine. It is the only writer of
// sessions and turns.
type Orchestrator interface {
	StartSession(ctx context.Context, req StartRequest) (*StartResult, error)
	SubmitAnswer(ctx context.Context, sessionID uuid.UUID, answer string) (*AnswerResult, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	Transcript(ctx context.Context, sessionID uuid.UUID) ([]models.Turn, error)
}

type OrchestratorOption func(*orchestrator)

// WithReportScheduler hands every completed session to s.
func WithReportScheduler(s ReportScheduler) OrchestratorOption {
	return func(o *orchestrator) {
		o.scheduler = s
	}
}

// WithClock overrides the time source used for completion timestamps.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *orchestrator) {
		o.now = now
	}
}

type orchestrator struct {
	sessions  repositories.SessionRepository
	turns     repositories.TurnRepository
	planner   QuestionPlanner
	engine    DecisionEngine
	locks     *SessionLocks
	scheduler ReportScheduler
	now       func() time.Time
	log       *zap.Logger
}

func NewOrchestrator(
	sessions repositories.SessionRepository,
	turns repositories.TurnRepository,
	planner QuestionPlanner,
	engine DecisionEngine,
	locks *SessionLocks,
	log *zap.Logger,
	opts ...OrchestratorOption,
) Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if locks == nil {
		locks = NewSessionLocks()
	}

	o := &orchestrator{
		sessions: sessions,
		turns:    turns,
		planner:  planner,
		engine:   engine,
		locks:    locks,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *orchestrator) StartSession(ctx context.Context, req StartRequest) (*StartResult, error) {
	const op = "start session"

	if _, ok := personaTones[req.Persona]; !ok {
		return nil, newError(op, ErrInvalidPersona, fmt.Errorf("unknown persona %q", req.Persona))
	}

	session := &models.Session{
		ID:                 uuid.New(),
		Persona:            req.Persona,
		JobDescriptionText: req.JobDescriptionText,
		ResumeText:         req.ResumeText,
		State:              models.StateInitializing,
	}
	log := logger.WithFields(o.log, logger.SessionFields(session.ID.String(), string(session.Persona))...)

	questions, err := o.planner.Plan(ctx, req.JobDescriptionText, req.ResumeText, req.Persona)
	if err != nil {
		log.Warn("failed to plan interview", zap.Error(err))
		return nil, err
	}

	session.SeedQuestions = questions
	session.State = models.StateAwaitingAnswer
	first := &models.Turn{
		Speaker: models.SpeakerInterviewer,
		Kind:    models.TurnSeed,
		Text:    questions[0],
	}
	if err := o.sessions.Create(ctx, session, first); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("🎙️ Interview session started", zap.Int("seed_questions", len(questions)))

	return &StartResult{
		SessionID:     session.ID,
		FirstQuestion: first.Text,
		Persona:       session.Persona,
		Voice:         VoiceFor(session.Persona),
	}, nil
}

func (o *orchestrator) SubmitAnswer(ctx context.Context, sessionID uuid.UUID, answer string) (*AnswerResult, error) {
	const op = "submit answer"

	ctx, span := otel.Tracer(telemetry.ScopeName).Start(ctx, "orchestrator.submit_answer")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID.String()))

	result, err := o.submitAnswer(ctx, op, sessionID, answer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
		return nil, err
	}
	span.SetAttributes(attribute.Bool("session.completed", result.SessionCompleted))
	return result, nil
}

func (o *orchestrator) submitAnswer(ctx context.Context, op string, sessionID uuid.UUID, answer string) (*AnswerResult, error) {
	release, ok := o.locks.TryAcquire(sessionID)
	if !ok {
		return nil, newError(op, ErrSessionBusy, nil)
	}
	defer release()

	session, err := o.loadSession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed {
		return nil, newError(op, ErrSessionAlreadyCompleted, nil)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, newError(op, ErrEmptyAnswer, nil)
	}

	log := logger.WithFields(o.log, logger.SessionFields(sessionID.String(), string(session.Persona))...)

	if err := o.reaskIfUnanswered(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	candidate := &models.Turn{
		SessionID: sessionID,
		Speaker:   models.SpeakerCandidate,
		Kind:      models.TurnAnswer,
		Text:      answer,
	}
	if err := o.turns.Append(ctx, candidate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	verdict := FollowUpVerdict{Advance: true}
	if !session.FollowUpAsked {
		verdict, err = o.engine.Decide(ctx, session.Persona, session.CurrentSeed(), answer)
		if err != nil {
			log.Warn("decision failed, answer kept and session left awaiting an answer", zap.Error(err))
			return nil, err
		}
	}

	var (
		next   *models.Turn
		result = &AnswerResult{}
	)
	if !verdict.Advance {
		session.FollowUpAsked = true
		next = &models.Turn{Speaker: models.SpeakerInterviewer, Kind: models.TurnFollowUp, Text: verdict.FollowUpText}
	} else {
		session.CurrentSeedIndex++
		session.FollowUpAsked = false
		if session.CurrentSeedIndex < len(session.SeedQuestions) {
			next = &models.Turn{Speaker: models.SpeakerInterviewer, Kind: models.TurnSeed, Text: session.CurrentSeed()}
		} else {
			completedAt := o.now()
			session.Completed = true
			session.State = models.StateCompleted
			session.CompletedAt = &completedAt
		}
	}

	if err := o.sessions.Save(ctx, session, next); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result.CurrentSeedIndex = session.CurrentSeedIndex
	result.SessionCompleted = session.Completed
	if next != nil {
		result.NextInterviewerText = next.Text
	} else {
		result.NextInterviewerText = ClosingLine
	}

	log.Debug("answer processed",
		zap.Bool("follow_up", !verdict.Advance),
		zap.Bool("fallback", verdict.Fallback),
		zap.Int("seed_index", session.CurrentSeedIndex),
	)

	if session.Completed {
		log.Info("✅ Interview session completed")
		if o.scheduler != nil {
			o.scheduler.EnqueueJob(sessionID)
		}
	}

	return result, nil
}

// reaskIfUnanswered restores turn alternation after a submission whose
// decision failed: the question the candidate is answering is repeated before
// the new answer is recorded.
func (o *orchestrator) reaskIfUnanswered(ctx context.Context, sessionID uuid.UUID) error {
	transcript, err := o.turns.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(transcript) == 0 || transcript[len(transcript)-1].Speaker != models.SpeakerCandidate {
		return nil
	}

	var question string
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Speaker == models.SpeakerInterviewer {
			question = transcript[i].Text
			break
		}
	}
	if question == "" {
		return errors.New("transcript has no interviewer turn to repeat")
	}

	return o.turns.Append(ctx, &models.Turn{
		SessionID: sessionID,
		Speaker:   models.SpeakerInterviewer,
		Kind:      models.TurnReask,
		Text:      question,
	})
}

func (o *orchestrator) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return o.loadSession(ctx, "get session", sessionID)
}

func (o *orchestrator) Transcript(ctx context.Context, sessionID uuid.UUID) ([]models.Turn, error) {
	const op = "transcript"

	if _, err := o.loadSession(ctx, op, sessionID); err != nil {
		return nil, err
	}

	turns, err := o.turns.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return turns, nil
}

func (o *orchestrator) loadSession(ctx context.Context, op string, sessionID uuid.UUID) (*models.Session, error) {
	return findSession(ctx, o.sessions, op, sessionID)
}

func findSession(ctx context.Context, sessions repositories.SessionRepository, op string, sessionID uuid.UUID) (*models.Session, error) {
	session, err := sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(op, ErrSessionNotFound, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return session, nil
}
