package models

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentJobDescription DocumentType = "job_description"
	DocumentResume         DocumentType = "resume"
)

type Document struct {
	ID               uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Filename         string       `gorm:"type:text" json:"filename"`
	OriginalFileName string       `gorm:"type:text" json:"original_filename"`
	FileType         DocumentType `gorm:"type:text" json:"file_type"`
	FilePath         string       `gorm:"type:text" json:"file_path"`
	TextExtracted    string       `gorm:"type:text" json:"-"`
	CreatedAt        time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (d *Document) TableName() string {
	return "documents"
}
