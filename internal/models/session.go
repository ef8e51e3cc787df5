package models

import (
	"time"

	"github.com/google/uuid"
)

type Persona string

const (
	PersonaSupportive  Persona = "supportive"
	PersonaNeutral     Persona = "neutral"
	PersonaAdversarial Persona = "adversarial"
)

type SessionState string

const (
	StateInitializing   SessionState = "initializing"
	StateAwaitingAnswer SessionState = "awaiting_answer"
	StateCompleted      SessionState = "completed"
)

// Session is one interview instance. Only the orchestrator mutates it.
type Session struct {
	ID                 uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Persona            Persona      `gorm:"type:text;not null" json:"persona"`
	JobDescriptionText string       `gorm:"type:text" json:"-"`
	ResumeText         string       `gorm:"type:text" json:"-"`
	SeedQuestions      []string     `gorm:"type:text;serializer:json" json:"seed_questions"`
	CurrentSeedIndex   int          `gorm:"not null;default:0" json:"current_seed_index"`
	FollowUpAsked      bool         `gorm:"not null;default:false" json:"follow_up_asked"`
	Completed          bool         `gorm:"not null;default:false;index" json:"completed"`
	State              SessionState `gorm:"type:text;not null" json:"state"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
	CreatedAt          time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Session) TableName() string {
	return "interview_sessions"
}

// CurrentSeed returns the seed question the session is on, or "" once all
// seeds are exhausted.
func (s *Session) CurrentSeed() string {
	if s.CurrentSeedIndex < 0 || s.CurrentSeedIndex >= len(s.SeedQuestions) {
		return ""
	}
	return s.SeedQuestions[s.CurrentSeedIndex]
}

// Consistent reports whether the progress counters satisfy the session invariants.
func (s *Session) Consistent() bool {
	if s.CurrentSeedIndex < 0 || s.CurrentSeedIndex > len(s.SeedQuestions) {
		return false
	}
	if s.Completed != (s.CurrentSeedIndex == len(s.SeedQuestions)) {
		return false
	}
	return s.Completed == (s.State == StateCompleted)
}
