package services

import (
	"context"
	"errors"
	"time"

	"strik-trivia/models"
	"strik-trivia/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionRecorder turns rounds into persisted game sessions.
type SessionRecorder struct {
	Store store.Store
	Now   func() time.Time
}

func NewSessionRecorder(s store.Store) *SessionRecorder {
	return &SessionRecorder{Store: s, Now: time.Now}
}

// lookupUser resolves the caller. Missing identity and unknown users map to
// the matching APIError; anything else is transient.
func lookupUser(ctx context.Context, s store.Store, identity string) (*models.User, error) {
	if identity == "" {
		return nil, models.NewAuthRequiredError()
	}
	u, err := s.GetUserByExternalID(ctx, identity)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.NewUserNotFoundError()
	}
	if err != nil {
		return nil, models.NewTransientError("load user", err)
	}
	return u, nil
}

// StartSession opens a session owned by identity and returns its id.
func (r *SessionRecorder) StartSession(ctx context.Context, identity string, mode models.GameMode) (string, error) {
	if identity == "" {
		return "", models.NewAuthRequiredError()
	}
	if !mode.Valid() {
		return "", models.NewValidationError("gameMode must be one of streak, practice, versus")
	}
	user, err := lookupUser(ctx, r.Store, identity)
	if err != nil {
		return "", err
	}

	difficulty := models.DifficultyAdaptive
	gs := &models.GameSession{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		StartedAt:       r.Now(),
		GameMode:        mode,
		DifficultyLevel: &difficulty,
		UserCountry:     user.Country,
		UserRegion:      user.Region,
	}
	if err := r.Store.CreateSession(ctx, gs); err != nil {
		return "", models.NewTransientError("create session", err)
	}

	logrus.WithFields(logrus.Fields{
		"session_id": gs.ID,
		"user_id":    user.ID,
		"mode":       mode,
	}).Info("[RECORDER] session started")
	return gs.ID, nil
}

// CompleteSession finalizes a session owned by identity and applies the
// owner's aggregate update. Nothing is written when any check fails.
func (r *SessionRecorder) CompleteSession(ctx context.Context, identity, sessionID string, c models.SessionCompletion) (*models.GameSession, error) {
	if identity == "" {
		return nil, models.NewAuthRequiredError()
	}
	if err := validateInput(c); err != nil {
		return nil, err
	}
	user, err := lookupUser(ctx, r.Store, identity)
	if err != nil {
		return nil, err
	}

	// Session ids are uuids; postgres rejects anything else with a syntax error.
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, models.NewSessionNotFoundError(sessionID)
	}
	gs, err := r.Store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, models.NewTransientError("load session", err)
	}
	if gs.UserID != user.ID {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"caller":     user.ID,
			"owner":      gs.UserID,
		}).Warn("[RECORDER] completion rejected, caller does not own session")
		return nil, models.NewUnauthorizedError("this game session")
	}
	if gs.Completed() {
		return nil, models.NewSessionAlreadyCompletedError(sessionID)
	}

	at := r.Now()
	if at.Before(gs.StartedAt) {
		at = gs.StartedAt
	}
	done, err := r.Store.FinalizeSession(ctx, sessionID, c, at)
	switch {
	case errors.Is(err, store.ErrAlreadyCompleted):
		return nil, models.NewSessionAlreadyCompletedError(sessionID)
	case errors.Is(err, store.ErrNotFound):
		return nil, models.NewSessionNotFoundError(sessionID)
	case err != nil:
		return nil, models.NewTransientError("complete session", err)
	}

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    user.ID,
		"score":      c.Score,
		"streak":     c.Streak,
	}).Info("[RECORDER] session completed")
	return done, nil
}
