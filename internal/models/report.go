package models

import (
	"time"

	"github.com/google/uuid"
)

type Report struct {
	SessionID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"session_id"`
	Summary         string    `gorm:"type:text" json:"summary"`
	Strengths       []string  `gorm:"type:text;serializer:json" json:"strengths"`
	Risks           []string  `gorm:"type:text;serializer:json" json:"risks"`
	Recommendations []string  `gorm:"type:text;serializer:json" json:"recommendations"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Report) TableName() string {
	return "interview_reports"
}
