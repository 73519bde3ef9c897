// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"strik-trivia/models"
	"strik-trivia/store"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHistoryLimit = 20
	DefaultRecentLimit  = 10
	MaxListLimit        = 100
)

// GameStats is the input of a standalone aggregate update.
type GameStats struct {
	Score  int64 `json:"score" validate:"gte=0"`
	Streak int   `json:"streak" validate:"gte=0"`
}

// UserService manages player profiles and their game history.
type UserService struct {
	Store  store.Store
	Now    func() time.Time
	policy *bluemonday.Policy
}

func NewUserService(s store.Store) *UserService {
	return &UserService{
		Store:  s,
		Now:    time.Now,
		policy: bluemonday.StrictPolicy(),
	}
}

// sanitizeName strips markup from a display name. Names show up next to
// other players' data so they must be plain text.
func (s *UserService) sanitizeName(name *string) *string {
	if name == nil {
		return nil
	}
	clean := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(*name)))
	if clean == "" {
		return nil
	}
	return &clean
}

// UpsertUser creates the profile for identity on first sign-in and refreshes
// it on every later one.
func (s *UserService) UpsertUser(ctx context.Context, identity string, p models.UserProfile) (*models.User, error) {
	if identity == "" {
		return nil, models.NewAuthRequiredError()
	}
	p.Email = strings.TrimSpace(p.Email)
	if err := validateInput(p); err != nil {
		return nil, err
	}

	now := s.Now()
	u, err := s.Store.UpsertUser(ctx, &models.User{
		ID:          uuid.NewString(),
		ExternalID:  identity,
		Email:       p.Email,
		FirstName:   s.sanitizeName(p.FirstName),
		LastName:    s.sanitizeName(p.LastName),
		ImageURL:    p.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	})
	if err != nil {
		return nil, models.NewTransientError("upsert user", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": u.ID, "identity": identity}).Debug("[USERS] upserted user")
	return u, nil
}

// SyncProfile refreshes the profile fields of an existing player from the
// identity provider without touching LastLoginAt. Unknown identities are
// skipped; they get a profile on their first sign-in.
func (s *UserService) SyncProfile(ctx context.Context, identity string, p models.UserProfile) (*models.User, error) {
	existing, err := s.CurrentUser(ctx, identity)
	if err != nil || existing == nil {
		return nil, err
	}
	p.Email = strings.TrimSpace(p.Email)
	if err := validateInput(p); err != nil {
		return nil, err
	}

	u, err := s.Store.UpsertUser(ctx, &models.User{
		ID:          existing.ID,
		ExternalID:  identity,
		Email:       p.Email,
		FirstName:   s.sanitizeName(p.FirstName),
		LastName:    s.sanitizeName(p.LastName),
		ImageURL:    p.ImageURL,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   s.Now(),
		LastLoginAt: existing.LastLoginAt,
	})
	if err != nil {
		return nil, models.NewTransientError("sync profile", err)
	}
	return u, nil
}

// CurrentUser returns the caller's profile, or nil when none exists yet.
func (s *UserService) CurrentUser(ctx context.Context, identity string) (*models.User, error) {
	if identity == "" {
		return nil, models.NewAuthRequiredError()
	}
	u, err := s.Store.GetUserByExternalID(ctx, identity)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewTransientError("load user", err)
	}
	return u, nil
}

func (s *UserService) UpdatePreferences(ctx context.Context, identity string, prefs models.UserPreferences) (*models.User, error) {
	if identity == "" {
		return nil, models.NewAuthRequiredError()
	}
	if prefs.Country != nil {
		country := strings.ToUpper(strings.TrimSpace(*prefs.Country))
		prefs.Country = &country
	}
	if err := validateInput(prefs); err != nil {
		return nil, err
	}
	user, err := lookupUser(ctx, s.Store, identity)
	if err != nil {
		return nil, err
	}

	u, err := s.Store.UpdateUserPreferences(ctx, user.ID, prefs, s.Now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.NewUserNotFoundError()
	}
	if err != nil {
		return nil, models.NewTransientError("update preferences", err)
	}
	return u, nil
}

// UpdateGameStats applies one game to the caller's lifetime aggregates.
func (s *UserService) UpdateGameStats(ctx context.Context, identity string, stats GameStats) (*models.User, error) {
	if identity == "" {
		return nil, models.NewAuthRequiredError()
	}
	if err := validateInput(stats); err != nil {
		return nil, err
	}
	user, err := lookupUser(ctx, s.Store, identity)
	if err != nil {
		return nil, err
	}

	u, err := s.Store.ApplyGameStats(ctx, user.ID, stats.Score, stats.Streak, s.Now())
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.NewUserNotFoundError()
	}
	if err != nil {
		return nil, models.NewTransientError("update game stats", err)
	}
	return u, nil
}

// History lists the caller's sessions, newest first.
func (s *UserService) History(ctx context.Context, identity string, limit int) ([]models.GameSession, error) {
	if identity == "" {
		return nil, models.NewAuthRequiredError()
	}
	limit, err := resolveLimit(limit, DefaultHistoryLimit)
	if err != nil {
		return nil, err
	}
	user, err := lookupUser(ctx, s.Store, identity)
	if err != nil {
		return nil, err
	}

	sessions, err := s.Store.ListUserSessions(ctx, user.ID, limit)
	if err != nil {
		return nil, models.NewTransientError("load history", err)
	}
	if sessions == nil {
		sessions = []models.GameSession{}
	}
	return sessions, nil
}

// RecentGames lists the latest completed sessions of all players with the
// owners' public fields. An owner that no longer resolves yields a nil user.
func (s *UserService) RecentGames(ctx context.Context, limit int) ([]models.RecentGame, error) {
	limit, err := resolveLimit(limit, DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	sessions, err := s.Store.ListRecentCompleted(ctx, limit)
	if err != nil {
		return nil, models.NewTransientError("load recent games", err)
	}

	owners := map[string]*models.PublicUser{}
	out := make([]models.RecentGame, 0, len(sessions))
	for _, gs := range sessions {
		owner, seen := owners[gs.UserID]
		if !seen {
			u, err := s.Store.GetUserByID(ctx, gs.UserID)
			switch {
			case errors.Is(err, store.ErrNotFound):
			case err != nil:
				return nil, models.NewTransientError("load recent games", err)
			default:
				owner = u.Public()
			}
			owners[gs.UserID] = owner
		}
		out = append(out, models.RecentGame{GameSession: gs, User: owner})
	}
	return out, nil
}

// resolveLimit applies the default for 0 and caps at MaxListLimit.
func resolveLimit(limit, def int) (int, error) {
	switch {
	case limit < 0:
		return 0, models.NewValidationError(fmt.Sprintf("limit must not be negative, got %d", limit))
	case limit == 0:
		return def, nil
	case limit > MaxListLimit:
		return MaxListLimit, nil
	}
	return limit, nil
}
