package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/interview-simulator/internal/models"
)

// TurnRepository is the append-only transcript log keyed by session.
type TurnRepository interface {
	// Append assigns the next sequence number for the turn's session and stores it.
	Append(ctx context.Context, turn *models.Turn) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Turn, error)
	Last(ctx context.Context, sessionID uuid.UUID) (*models.Turn, error)
}

type turnRepository struct {
	db *gorm.DB
}

func NewTurnRepository(db *gorm.DB) TurnRepository {
	return &turnRepository{db: db}
}

func (r *turnRepository) Append(ctx context.Context, turn *models.Turn) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return appendTurn(tx, turn)
	})
}

func (r *turnRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Turn, error) {
	var turns []models.Turn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_number ASC").
		Find(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return turns, nil
}

func (r *turnRepository) Last(ctx context.Context, sessionID uuid.UUID) (*models.Turn, error) {
	var turn models.Turn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_number DESC").
		First(&turn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("last turn of session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find last turn: %w", err)
	}
	return &turn, nil
}

// appendTurn must run inside a transaction so the max lookup and insert are atomic;
// the unique (session_id, sequence_number) index rejects any interleaving writer.
func appendTurn(tx *gorm.DB, turn *models.Turn) error {
	if turn.SessionID == uuid.Nil {
		return errors.New("turn session id is required")
	}

	var last int
	row := tx.Model(&models.Turn{}).
		Where("session_id = ?", turn.SessionID).
		Select("COALESCE(MAX(sequence_number), 0)").
		Row()
	if err := row.Scan(&last); err != nil {
		return fmt.Errorf("failed to read last sequence number: %w", err)
	}

	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	turn.SequenceNumber = last + 1

	if err := tx.Create(turn).Error; err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}
