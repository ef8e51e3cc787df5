package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/interview-simulator/internal/models"
)

type ReportRepository interface {
	Upsert(ctx context.Context, report *models.Report) error
	FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.Report, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Upsert(ctx context.Context, report *models.Report) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary", "strengths", "risks", "recommendations", "updated_at"}),
		}).
		Create(report).Error
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (r *reportRepository) FindBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report for session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	return &report, nil
}
