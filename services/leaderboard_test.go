package services

import (
	"context"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"strik-trivia/models"
	"strik-trivia/store"
)

func lifetimeUser(id string, best, games int, score int64) models.User {
	return models.User{ID: id, ExternalID: "ext-" + id, BestStreak: best, TotalGamesPlayed: games, TotalScore: score}
}

func completedSession(id, userID string, mode models.GameMode, completedAt time.Time, streak, correct, answered int) models.GameSession {
	at := completedAt
	return models.GameSession{
		ID:                id,
		UserID:            userID,
		GameMode:          mode,
		StartedAt:         completedAt.Add(-time.Minute),
		CompletedAt:       &at,
		Streak:            streak,
		CorrectAnswers:    correct,
		QuestionsAnswered: answered,
		Score:             int64(correct * PointsPerCorrectAnswer),
	}
}

func rankingIDs(entries []LeaderboardEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	return ids
}

func TestRankPlayersStreakTieBreak(t *testing.T) {
	users := []models.User{
		lifetimeUser("a", 10, 5, 100),
		lifetimeUser("b", 10, 8, 100),
		lifetimeUser("c", 7, 20, 100),
	}
	entries := RankPlayers(users, nil, RankFilter{AllTime: true, SortBy: SortByStreak})

	if got, want := rankingIDs(entries), []string{"b", "a", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i, e := range entries {
		if e.Ranking != i+1 {
			t.Errorf("entry %s ranking = %d, want %d", e.UserID, e.Ranking, i+1)
		}
	}
}

func TestRankPlayersDropsInactiveUsers(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	users := []models.User{
		lifetimeUser("veteran", 40, 300, 9000),
		lifetimeUser("fresh", 0, 0, 0),
		lifetimeUser("active", 2, 1, 20),
	}
	sessions := []models.GameSession{
		completedSession("s1", "veteran", models.GameModeStreak, now.AddDate(0, 0, -30), 40, 40, 41),
		completedSession("s2", "active", models.GameModeStreak, now.Add(-time.Hour), 2, 2, 3),
	}

	week := RankFilter{Since: PeriodCutoff(PeriodWeek, now, time.UTC), SortBy: SortByStreak}
	if got := rankingIDs(RankPlayers(users, sessions, week)); !reflect.DeepEqual(got, []string{"active"}) {
		t.Errorf("week = %v, want [active]", got)
	}

	allTime := RankFilter{AllTime: true, SortBy: SortByStreak}
	if got := rankingIDs(RankPlayers(users, sessions, allTime)); !reflect.DeepEqual(got, []string{"veteran", "active"}) {
		t.Errorf("all-time = %v, want [veteran active]", got)
	}
}

func TestRankPlayersPeriodCutoff(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	users := []models.User{lifetimeUser("u", 5, 1, 50)}
	sessions := []models.GameSession{
		completedSession("old", "u", models.GameModeStreak, now.Add(-8*24*time.Hour), 5, 5, 6),
	}

	for _, c := range []struct {
		period TimePeriod
		want   int
	}{
		{PeriodToday, 0},
		{PeriodWeek, 0},
		{PeriodMonth, 1},
		{PeriodAllTime, 1},
	} {
		f := RankFilter{
			Since:   PeriodCutoff(c.period, now, time.UTC),
			AllTime: c.period == PeriodAllTime,
			SortBy:  SortByStreak,
		}
		if got := len(RankPlayers(users, sessions, f)); got != c.want {
			t.Errorf("%s: %d entries, want %d", c.period, got, c.want)
		}
	}
}

func TestRankPlayersPeriodAggregates(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	users := []models.User{lifetimeUser("u", 99, 99, 9999)}
	sessions := []models.GameSession{
		completedSession("s1", "u", models.GameModeStreak, now.Add(-time.Hour), 3, 3, 4),
		completedSession("s2", "u", models.GameModePractice, now.Add(-2*time.Hour), 6, 6, 7),
		completedSession("s3", "u", models.GameModeStreak, now.Add(-3*time.Hour), 1, 1, 2),
	}
	open := models.GameSession{ID: "s4", UserID: "u", GameMode: models.GameModeStreak, StartedAt: now, Streak: 50}
	sessions = append(sessions, open)

	f := RankFilter{Since: PeriodCutoff(PeriodToday, now, time.UTC), GameMode: models.GameModeStreak, SortBy: SortByStreak}
	entries := RankPlayers(users, sessions, f)
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.TotalGamesPlayed != 2 || e.BestStreak != 3 || e.TotalScore != 40 {
		t.Errorf("aggregate = %+v", e)
	}
	// 4 correct of 6 answered = 66.67 -> 67
	if e.WinRate != 67 {
		t.Errorf("WinRate = %d, want 67", e.WinRate)
	}
}

func TestRankPlayersWinRateTieBreakAndOtherSorts(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	users := []models.User{
		lifetimeUser("a", 1, 1, 0),
		lifetimeUser("b", 1, 3, 0),
		lifetimeUser("c", 1, 3, 0),
	}
	sessions := []models.GameSession{
		completedSession("a1", "a", models.GameModeStreak, now, 1, 1, 2),
		completedSession("b1", "b", models.GameModeStreak, now, 1, 1, 2),
		completedSession("b2", "b", models.GameModeStreak, now, 1, 1, 2),
		completedSession("c1", "c", models.GameModeStreak, now, 1, 1, 2),
		completedSession("c2", "c", models.GameModeStreak, now, 1, 1, 2),
	}
	week := PeriodCutoff(PeriodWeek, now, time.UTC)

	winRate := RankPlayers(users, sessions, RankFilter{Since: week, SortBy: SortByWinRate})
	if got := rankingIDs(winRate); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Errorf("winRate order = %v, want [b c a]", got)
	}

	games := RankPlayers(users, sessions, RankFilter{Since: week, SortBy: SortByGamesPlayed})
	if got := rankingIDs(games); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Errorf("gamesPlayed order = %v, want [b c a]", got)
	}

	score := RankPlayers(users, sessions, RankFilter{Since: week, SortBy: SortByTotalScore})
	if got := rankingIDs(score); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Errorf("totalScore order = %v, want [b c a]", got)
	}
}

func TestRankPlayersDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(7))
	var users []models.User
	var sessions []models.GameSession
	for i := 0; i < 30; i++ {
		id := string(rune('a'+i%26)) + string(rune('0'+i/26))
		users = append(users, lifetimeUser(id, rng.Intn(5), rng.Intn(4), int64(rng.Intn(50))))
		for j := 0; j < rng.Intn(4); j++ {
			answered := rng.Intn(5)
			correct := 0
			if answered > 0 {
				correct = rng.Intn(answered + 1)
			}
			sessions = append(sessions, completedSession(id+"-"+string(rune('0'+j)), id, models.GameModeStreak,
				now.Add(-time.Duration(rng.Intn(72))*time.Hour), correct, correct, answered))
		}
	}

	for _, sortBy := range []SortBy{SortByStreak, SortByWinRate, SortByGamesPlayed, SortByTotalScore} {
		f := RankFilter{Since: PeriodCutoff(PeriodWeek, now, time.UTC), SortBy: sortBy}
		first := RankPlayers(users, sessions, f)
		second := RankPlayers(users, sessions, f)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: ranking not deterministic", sortBy)
		}
	}
}

func TestWinRateBounds(t *testing.T) {
	if WinRate(0, 0) != 0 || WinRate(3, 0) != 0 {
		t.Error("no questions must give 0")
	}
	if WinRate(1, 2) != 50 || WinRate(1, 3) != 33 || WinRate(2, 3) != 67 || WinRate(1, 8) != 13 {
		t.Error("unexpected rounding")
	}
	for q := 1; q <= 200; q++ {
		for c := 0; c <= q; c++ {
			if r := WinRate(c, q); r < 0 || r > 100 {
				t.Fatalf("WinRate(%d, %d) = %d out of bounds", c, q, r)
			}
		}
	}
}

func TestPeriodCutoff(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2026, 3, 20, 23, 30, 0, 0, time.UTC) // 01:30 on the 21st in loc

	if got, want := PeriodCutoff(PeriodToday, now, loc), time.Date(2026, 3, 21, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("today = %v, want %v", got, want)
	}
	if got := PeriodCutoff(PeriodWeek, now, loc); !got.Equal(now.Add(-7 * 24 * time.Hour)) {
		t.Errorf("week = %v", got)
	}
	if got, want := PeriodCutoff(PeriodMonth, now, loc), time.Date(2026, 3, 1, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("month = %v, want %v", got, want)
	}
	if !PeriodCutoff(PeriodAllTime, now, loc).IsZero() {
		t.Error("all-time should not filter")
	}
}

// leaderboardFixture seeds three players through the public services.
func leaderboardFixture(t *testing.T) (*LeaderboardService, *UserService, *SessionRecorder) {
	t.Helper()
	ctx := context.Background()
	rec, users, st, clock := newRecorderFixture(t)
	board := NewLeaderboardService(st, time.UTC, nil)
	board.Now = clock.Now

	es, fr := "ES", "FR"
	play := func(identity string, country *string, streaks ...int) {
		mustUpsert(t, users, identity)
		if country != nil {
			if _, err := users.UpdatePreferences(ctx, identity, models.UserPreferences{Country: country}); err != nil {
				t.Fatal(err)
			}
		}
		for _, s := range streaks {
			id, err := rec.StartSession(ctx, identity, models.GameModeStreak)
			if err != nil {
				t.Fatal(err)
			}
			c := models.SessionCompletion{Score: int64(s * 10), Streak: s, QuestionsAnswered: s + 1, CorrectAnswers: s}
			if _, err := rec.CompleteSession(ctx, identity, id, c); err != nil {
				t.Fatal(err)
			}
		}
	}
	play("ext-ana", &es, 4, 9)
	play("ext-bo", &fr, 6)
	play("ext-cy", &es, 2)
	mustUpsert(t, users, "ext-idle")
	return board, users, rec
}

func TestLeaderboardQuery(t *testing.T) {
	ctx := context.Background()
	board, _, _ := leaderboardFixture(t)

	entries, err := board.Query(ctx, "", LeaderboardQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3 (idle user excluded)", len(entries))
	}
	if entries[0].BestStreak != 9 || entries[1].BestStreak != 6 || entries[2].BestStreak != 2 {
		t.Errorf("order = %+v", entries)
	}

	top, _ := board.Query(ctx, "", LeaderboardQuery{Limit: 2, TimePeriod: PeriodToday})
	if len(top) != 2 || top[1].Ranking != 2 {
		t.Errorf("limited = %+v", top)
	}

	spain, _ := board.Query(ctx, "", LeaderboardQuery{Region: "es"})
	if len(spain) != 2 || spain[0].BestStreak != 9 {
		t.Errorf("region ES = %+v", spain)
	}

	local, err := board.Query(ctx, "ext-bo", LeaderboardQuery{Region: RegionLocal})
	if err != nil || len(local) != 1 || local[0].BestStreak != 6 {
		t.Errorf("local = %+v, err = %v", local, err)
	}
}

func TestLeaderboardQueryValidation(t *testing.T) {
	ctx := context.Background()
	board, _, _ := leaderboardFixture(t)

	bad := []LeaderboardQuery{
		{Limit: -1},
		{TimePeriod: "decade"},
		{SortBy: "height"},
		{GameMode: "blitz"},
		{Region: "atlantis"},
	}
	for _, q := range bad {
		if _, err := board.Query(ctx, "", q); !models.HasCode(err, models.ErrCodeValidation) {
			t.Errorf("query %+v: err = %v, want VALIDATION_FAILED", q, err)
		}
	}

	if _, err := board.Query(ctx, "", LeaderboardQuery{Region: RegionLocal}); !models.HasCode(err, models.ErrCodeAuthRequired) {
		t.Errorf("local without identity: %v", err)
	}
	if _, err := board.Query(ctx, "ext-idle", LeaderboardQuery{Region: RegionLocal}); !models.HasCode(err, models.ErrCodeValidation) {
		t.Errorf("local without stored country: %v", err)
	}
}

func TestLeaderboardUserRank(t *testing.T) {
	ctx := context.Background()
	board, _, _ := leaderboardFixture(t)

	rank, err := board.UserRank(ctx, "ext-bo", LeaderboardQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if rank.Rank == nil || *rank.Rank != 2 || rank.TotalPlayers != 3 {
		t.Errorf("rank = %+v", rank)
	}

	idle, err := board.UserRank(ctx, "ext-idle", LeaderboardQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if idle.Rank != nil || idle.TotalPlayers != 3 {
		t.Errorf("idle rank = %+v, want nil of 3", idle)
	}

	if _, err := board.UserRank(ctx, "", LeaderboardQuery{}); !models.HasCode(err, models.ErrCodeAuthRequired) {
		t.Errorf("err = %v, want AUTH_REQUIRED", err)
	}
}

func TestLeaderboardPropagatesStoreFailure(t *testing.T) {
	board := NewLeaderboardService(brokenListStore{store.NewMemoryStore()}, nil, nil)
	if _, err := board.Query(context.Background(), "", LeaderboardQuery{}); !models.HasCode(err, models.ErrCodeTransient) {
		t.Fatalf("err = %v, want TRANSIENT", err)
	}
}

type brokenListStore struct {
	*store.MemoryStore
}

func (brokenListStore) ListUsers(context.Context, string) ([]models.User, error) {
	return nil, context.DeadlineExceeded
}
