package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/interview-simulator/internal/models"
)

type SessionRepository interface {
	// Create stores a new session together with its opening interviewer turn.
	Create(ctx context.Context, session *models.Session, first *models.Turn) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// Save persists the session state and, when next is non-nil, appends it to
	// the transcript in the same transaction.
	Save(ctx context.Context, session *models.Session, next *models.Turn) error
	FindCompletedWithoutReport(ctx context.Context, limit int) ([]models.Session, error)
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session, first *models.Turn) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		if first == nil {
			return nil
		}
		first.SessionID = session.ID
		return appendTurn(tx, first)
	})
}

func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *models.Session, next *models.Turn) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(session).
			Select("current_seed_index", "follow_up_asked", "completed", "state", "completed_at", "updated_at").
			Updates(session)
		if result.Error != nil {
			return fmt.Errorf("failed to update session: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("session %s: %w", session.ID, ErrNotFound)
		}

		if next == nil {
			return nil
		}
		next.SessionID = session.ID
		return appendTurn(tx, next)
	})
}

func (r *sessionRepository) FindCompletedWithoutReport(ctx context.Context, limit int) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).
		Where("completed = ?", true).
		Where("NOT EXISTS (SELECT 1 FROM interview_reports r WHERE r.session_id = interview_sessions.id)").
		Order("completed_at ASC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find sessions awaiting report: %w", err)
	}
	return sessions, nil
}
