package models

import (
	"time"

	"github.com/google/uuid"
)

type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

type TurnKind string

const (
	TurnSeed     TurnKind = "seed"
	TurnFollowUp TurnKind = "follow_up"
	TurnReask    TurnKind = "reask"
	TurnAnswer   TurnKind = "answer"
)

type Turn struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_turn_session_seq" json:"session_id"`
	SequenceNumber int       `gorm:"not null;uniqueIndex:idx_turn_session_seq" json:"sequence_number"`
	Speaker        Speaker   `gorm:"type:text;not null" json:"speaker"`
	Kind           TurnKind  `gorm:"type:text;not null" json:"kind"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Turn) TableName() string {
	return "interview_turns"
}
