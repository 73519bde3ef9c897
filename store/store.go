// store/store.go
package store

import (
	"context"
	"errors"
	"time"

	"strik-trivia/models"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a user or session does not exist.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrAlreadyCompleted is returned when a session has already been finalized.
	ErrAlreadyCompleted = errors.New("session already completed")
)

// SessionFilter narrows ListCompletedSessions. Zero values mean "no filter".
type SessionFilter struct {
	Since    time.Time
	GameMode models.GameMode
}

// Store persists users and game sessions.
type Store interface {
	// UpsertUser inserts u or, when a user with the same ExternalID exists,
	// overwrites its profile fields, UpdatedAt and LastLoginAt. Aggregates
	// and preferences of an existing user are kept.
	UpsertUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserPreferences(ctx context.Context, userID string, prefs models.UserPreferences, at time.Time) (*models.User, error)
	// ApplyGameStats atomically adds one game and score to the user's totals
	// and raises BestStreak to streak when it is higher.
	ApplyGameStats(ctx context.Context, userID string, score int64, streak int, at time.Time) (*models.User, error)
	// ListUsers returns users ordered by creation, restricted to country when it is not empty.
	ListUsers(ctx context.Context, country string) ([]models.User, error)

	CreateSession(ctx context.Context, s *models.GameSession) error
	GetSession(ctx context.Context, id string) (*models.GameSession, error)
	// FinalizeSession writes the final counters and CompletedAt, and applies
	// the owner's aggregate update, as one unit. A session is finalized at
	// most once; later calls return ErrAlreadyCompleted.
	FinalizeSession(ctx context.Context, id string, c models.SessionCompletion, at time.Time) (*models.GameSession, error)
	ListUserSessions(ctx context.Context, userID string, limit int) ([]models.GameSession, error)
	ListRecentCompleted(ctx context.Context, limit int) ([]models.GameSession, error)
	// ListCompletedSessions returns completed sessions matching f ordered by completion time.
	ListCompletedSessions(ctx context.Context, f SessionFilter) ([]models.GameSession, error)

	Ping(ctx context.Context) error
	Close() error
}
