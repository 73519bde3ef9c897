// store/memory.go
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"strik-trivia/models"
)

// MemoryStore keeps everything in process memory. It backs STORE_DRIVER=memory
// and tests. Returned records are copies.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*models.User // by ID
	byExternal map[string]string       // external ID -> ID
	userOrder  []string
	sessions   map[string]*models.GameSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*models.User),
		byExternal: make(map[string]string),
		sessions:   make(map[string]*models.GameSession),
	}
}

func (m *MemoryStore) UpsertUser(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byExternal[u.ExternalID]; ok {
		existing := m.users[id]
		existing.Email = u.Email
		existing.FirstName = u.FirstName
		existing.LastName = u.LastName
		existing.ImageURL = u.ImageURL
		existing.UpdatedAt = u.UpdatedAt
		existing.LastLoginAt = u.LastLoginAt
		out := *existing
		return &out, nil
	}

	stored := *u
	m.users[stored.ID] = &stored
	m.byExternal[stored.ExternalID] = stored.ID
	m.userOrder = append(m.userOrder, stored.ID)
	out := stored
	return &out, nil
}

func (m *MemoryStore) GetUserByExternalID(_ context.Context, externalID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byExternal[externalID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *m.users[id]
	return &out, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *MemoryStore) UpdateUserPreferences(_ context.Context, userID string, prefs models.UserPreferences, at time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if prefs.PreferredTheme != nil {
		u.PreferredTheme = copyString(prefs.PreferredTheme)
	}
	if prefs.Country != nil {
		u.Country = copyString(prefs.Country)
	}
	if prefs.Region != nil {
		u.Region = copyString(prefs.Region)
	}
	if prefs.Timezone != nil {
		u.Timezone = copyString(prefs.Timezone)
	}
	u.UpdatedAt = at
	out := *u
	return &out, nil
}

func (m *MemoryStore) ApplyGameStats(_ context.Context, userID string, score int64, streak int, at time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	applyStats(u, score, streak, at)
	out := *u
	return &out, nil
}

func applyStats(u *models.User, score int64, streak int, at time.Time) {
	u.TotalGamesPlayed++
	if streak > u.BestStreak {
		u.BestStreak = streak
	}
	u.TotalScore += score
	u.UpdatedAt = at
}

func (m *MemoryStore) ListUsers(_ context.Context, country string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		u := m.users[id]
		if country != "" && u.CountryCode() != country {
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, gs *models.GameSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *gs
	m.sessions[gs.ID] = &stored
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*models.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	gs, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *gs
	return &out, nil
}

func (m *MemoryStore) FinalizeSession(_ context.Context, id string, c models.SessionCompletion, at time.Time) (*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gs, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if gs.CompletedAt != nil {
		return nil, ErrAlreadyCompleted
	}
	owner, ok := m.users[gs.UserID]
	if !ok {
		return nil, ErrNotFound
	}

	gs.Score = c.Score
	gs.Streak = c.Streak
	gs.QuestionsAnswered = c.QuestionsAnswered
	gs.CorrectAnswers = c.CorrectAnswers
	if c.AverageAnswerTime != nil {
		avg := *c.AverageAnswerTime
		gs.AverageAnswerTime = &avg
	}
	completedAt := at
	gs.CompletedAt = &completedAt
	applyStats(owner, c.Score, c.Streak, at)

	out := *gs
	return &out, nil
}

func (m *MemoryStore) ListUserSessions(_ context.Context, userID string, limit int) ([]models.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.GameSession
	for _, gs := range m.sessions {
		if gs.UserID == userID {
			out = append(out, *gs)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

func (m *MemoryStore) ListRecentCompleted(_ context.Context, limit int) ([]models.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.GameSession
	for _, gs := range m.sessions {
		if gs.CompletedAt != nil {
			out = append(out, *gs)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(*out[j].CompletedAt) {
			return out[i].CompletedAt.After(*out[j].CompletedAt)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limit), nil
}

func (m *MemoryStore) ListCompletedSessions(_ context.Context, f SessionFilter) ([]models.GameSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.GameSession
	for _, gs := range m.sessions {
		if gs.CompletedAt == nil {
			continue
		}
		if !f.Since.IsZero() && gs.CompletedAt.Before(f.Since) {
			continue
		}
		if f.GameMode != "" && gs.GameMode != f.GameMode {
			continue
		}
		out = append(out, *gs)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(*out[j].CompletedAt) {
			return out[i].CompletedAt.Before(*out[j].CompletedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func truncate(sessions []models.GameSession, limit int) []models.GameSession {
	if limit > 0 && len(sessions) > limit {
		return sessions[:limit]
	}
	return sessions
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
