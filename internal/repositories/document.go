package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/interview-simulator/internal/models"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create implements DocumentRepository.
func (d *documentRepository) Create(ctx context.Context, document *models.Document) error {
	if document.ID == uuid.Nil {
		document.ID = uuid.New()
	}
	if err := d.db.WithContext(ctx).Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// FindByID implements DocumentRepository.
func (d *documentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

// FindByIDs implements DocumentRepository.
func (d *documentRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Document, error) {
	var docs []models.Document
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}

	return docs, nil
}
