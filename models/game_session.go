package models

import (
	"time"
)

// GameMode names the kind of round a session belongs to.
type GameMode string

const (
	GameModeStreak   GameMode = "streak"
	GameModePractice GameMode = "practice"
	GameModeVersus   GameMode = "versus"
)

// Valid reports whether m is one of the known modes.
func (m GameMode) Valid() bool {
	switch m {
	case GameModeStreak, GameModePractice, GameModeVersus:
		return true
	}
	return false
}

// DifficultyAdaptive is the only difficulty setting rounds currently run with.
const DifficultyAdaptive = "adaptive"

// GameSession records one played round. A session without CompletedAt is
// either still running or was abandoned; both are ignored by statistics.
type GameSession struct {
	ID                string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID            string     `gorm:"type:uuid;index;not null" json:"userId"`
	Score             int64      `gorm:"index;not null;default:0" json:"score"`
	Streak            int        `gorm:"index;not null;default:0" json:"streak"`
	QuestionsAnswered int        `gorm:"not null;default:0" json:"questionsAnswered"`
	CorrectAnswers    int        `gorm:"not null;default:0" json:"correctAnswers"`
	StartedAt         time.Time  `gorm:"not null" json:"startedAt"`
	CompletedAt       *time.Time `gorm:"index" json:"completedAt,omitempty"`
	GameMode          GameMode   `gorm:"type:varchar(16);index;not null" json:"gameMode"`

	// Performance metrics
	AverageAnswerTime *float64 `json:"averageAnswerTime,omitempty"`
	DifficultyLevel   *string  `gorm:"type:varchar(16)" json:"difficultyLevel,omitempty"`

	// Location snapshot taken from the owner at creation time
	UserCountry *string `gorm:"index" json:"userCountry,omitempty"`
	UserRegion  *string `gorm:"index" json:"userRegion,omitempty"`
}

// Completed reports whether the session has been finalized.
func (s *GameSession) Completed() bool {
	return s.CompletedAt != nil
}

// SessionCompletion carries the final counters of a round.
type SessionCompletion struct {
	Score             int64    `json:"finalScore" validate:"gte=0"`
	Streak            int      `json:"finalStreak" validate:"gte=0"`
	QuestionsAnswered int      `json:"questionsAnswered" validate:"gte=0"`
	CorrectAnswers    int      `json:"correctAnswers" validate:"gte=0,ltefield=QuestionsAnswered"`
	AverageAnswerTime *float64 `json:"averageAnswerTime,omitempty" validate:"omitempty,gte=0"`
}

// RecentGame pairs a completed session with its owner's public fields.
type RecentGame struct {
	GameSession
	User *PublicUser `json:"user"`
}
