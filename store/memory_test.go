package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"strik-trivia/models"
)

func seedUser(t *testing.T, s *MemoryStore, id, externalID string, at time.Time) *models.User {
	t.Helper()
	u, err := s.UpsertUser(context.Background(), &models.User{
		ID:          id,
		ExternalID:  externalID,
		Email:       externalID + "@example.com",
		CreatedAt:   at,
		UpdatedAt:   at,
		LastLoginAt: at,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestMemoryUpsertKeepsAggregates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := seedUser(t, s, "u1", "ext-1", t0)

	if _, err := s.ApplyGameStats(ctx, u.ID, 50, 5, t0); err != nil {
		t.Fatalf("apply stats: %v", err)
	}

	t1 := t0.Add(time.Hour)
	name := "Sergio"
	got, err := s.UpsertUser(ctx, &models.User{
		ID:          "ignored",
		ExternalID:  "ext-1",
		Email:       "new@example.com",
		FirstName:   &name,
		CreatedAt:   t1,
		UpdatedAt:   t1,
		LastLoginAt: t1,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if got.ID != "u1" {
		t.Errorf("ID = %s, want u1", got.ID)
	}
	if got.Email != "new@example.com" || got.FirstName == nil || *got.FirstName != "Sergio" {
		t.Errorf("profile not updated: %+v", got)
	}
	if got.TotalGamesPlayed != 1 || got.BestStreak != 5 || got.TotalScore != 50 {
		t.Errorf("aggregates changed by upsert: %+v", got)
	}
	if !got.CreatedAt.Equal(t0) || !got.LastLoginAt.Equal(t1) {
		t.Errorf("timestamps: created=%v lastLogin=%v", got.CreatedAt, got.LastLoginAt)
	}
}

func TestMemoryFinalizeSessionOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := seedUser(t, s, "u1", "ext-1", t0)

	if err := s.CreateSession(ctx, &models.GameSession{ID: "s1", UserID: u.ID, StartedAt: t0, GameMode: models.GameModeStreak}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	completion := models.SessionCompletion{Score: 30, Streak: 3, QuestionsAnswered: 4, CorrectAnswers: 3}
	gs, err := s.FinalizeSession(ctx, "s1", completion, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !gs.Completed() || gs.Score != 30 {
		t.Fatalf("unexpected session: %+v", gs)
	}

	if _, err := s.FinalizeSession(ctx, "s1", completion, t0.Add(2*time.Minute)); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second finalize err = %v, want ErrAlreadyCompleted", err)
	}

	owner, _ := s.GetUserByID(ctx, u.ID)
	if owner.TotalGamesPlayed != 1 || owner.TotalScore != 30 || owner.BestStreak != 3 {
		t.Errorf("aggregates applied more than once: %+v", owner)
	}

	if _, err := s.FinalizeSession(ctx, "missing", completion, t0); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing session err = %v, want ErrNotFound", err)
	}
}

func TestMemoryBestStreakNeverDecreases(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	t0 := time.Now()
	u := seedUser(t, s, "u1", "ext-1", t0)

	for _, streak := range []int{4, 9, 2, 0, 7} {
		if _, err := s.ApplyGameStats(ctx, u.ID, int64(streak*10), streak, t0); err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	got, _ := s.GetUserByID(ctx, u.ID)
	if got.BestStreak != 9 {
		t.Errorf("BestStreak = %d, want 9", got.BestStreak)
	}
	if got.TotalGamesPlayed != 5 || got.TotalScore != 220 {
		t.Errorf("totals = %d games, %d score", got.TotalGamesPlayed, got.TotalScore)
	}
}

func TestMemoryListCompletedSessionsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	u := seedUser(t, s, "u1", "ext-1", now)

	add := func(id string, mode models.GameMode, completedAgo time.Duration, completed bool) {
		gs := &models.GameSession{ID: id, UserID: u.ID, StartedAt: now.Add(-completedAgo - time.Minute), GameMode: mode}
		if err := s.CreateSession(ctx, gs); err != nil {
			t.Fatal(err)
		}
		if completed {
			if _, err := s.FinalizeSession(ctx, id, models.SessionCompletion{}, now.Add(-completedAgo)); err != nil {
				t.Fatal(err)
			}
		}
	}
	add("a", models.GameModeStreak, time.Hour, true)
	add("b", models.GameModePractice, 2*time.Hour, true)
	add("c", models.GameModeStreak, 10*24*time.Hour, true)
	add("d", models.GameModeStreak, time.Minute, false)

	all, _ := s.ListCompletedSessions(ctx, SessionFilter{})
	if len(all) != 3 {
		t.Fatalf("completed = %d, want 3", len(all))
	}
	if all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("order = %s,%s,%s", all[0].ID, all[1].ID, all[2].ID)
	}

	recent, _ := s.ListCompletedSessions(ctx, SessionFilter{Since: now.Add(-7 * 24 * time.Hour), GameMode: models.GameModeStreak})
	if len(recent) != 1 || recent[0].ID != "a" {
		t.Errorf("filtered = %+v", recent)
	}

	history, _ := s.ListUserSessions(ctx, u.ID, 2)
	if len(history) != 2 || history[0].ID != "d" || history[1].ID != "a" {
		t.Errorf("history = %+v", history)
	}

	latest, _ := s.ListRecentCompleted(ctx, 1)
	if len(latest) != 1 || latest[0].ID != "a" {
		t.Errorf("recent = %+v", latest)
	}
}

func TestMemoryListUsersByCountry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	seedUser(t, s, "u1", "ext-1", now)
	u2 := seedUser(t, s, "u2", "ext-2", now)

	es := "ES"
	if _, err := s.UpdateUserPreferences(ctx, u2.ID, models.UserPreferences{Country: &es}, now); err != nil {
		t.Fatal(err)
	}

	users, _ := s.ListUsers(ctx, "ES")
	if len(users) != 1 || users[0].ID != "u2" {
		t.Errorf("users = %+v", users)
	}
	users, _ = s.ListUsers(ctx, "")
	if len(users) != 2 || users[0].ID != "u1" {
		t.Errorf("all users = %+v", users)
	}

	if _, err := s.UpdateUserPreferences(ctx, "nope", models.UserPreferences{}, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
