package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"strik-trivia/metrics"
	"strik-trivia/models"
	"strik-trivia/store"
)

type TimePeriod string

const (
	PeriodToday   TimePeriod = "today"
	PeriodWeek    TimePeriod = "week"
	PeriodMonth   TimePeriod = "month"
	PeriodAllTime TimePeriod = "all-time"
)

type SortBy string

const (
	SortByStreak      SortBy = "streak"
	SortByWinRate     SortBy = "winRate"
	SortByGamesPlayed SortBy = "gamesPlayed"
	SortByTotalScore  SortBy = "totalScore"
)

const (
	RegionAll   = "all"
	RegionLocal = "local"
	ModeAll     = "all"

	DefaultLeaderboardLimit = 10
)

// LeaderboardQuery selects and orders leaderboard rows. Empty fields take
// their defaults: limit 10, all-time, every mode, by streak, every region.
type LeaderboardQuery struct {
	Limit      int        `json:"limit" validate:"gte=0"`
	TimePeriod TimePeriod `json:"timePeriod" validate:"omitempty,oneof=today week month all-time"`
	GameMode   string     `json:"gameMode" validate:"omitempty,oneof=all streak practice versus"`
	SortBy     SortBy     `json:"sortBy" validate:"omitempty,oneof=streak winRate gamesPlayed totalScore"`
	Region     string     `json:"region"`
}

func (q LeaderboardQuery) withDefaults() LeaderboardQuery {
	if q.Limit == 0 {
		q.Limit = DefaultLeaderboardLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.TimePeriod == "" {
		q.TimePeriod = PeriodAllTime
	}
	if q.GameMode == "" {
		q.GameMode = ModeAll
	}
	if q.SortBy == "" {
		q.SortBy = SortByStreak
	}
	if q.Region == "" {
		q.Region = RegionAll
	}
	return q
}

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	UserID           string  `json:"userId"`
	FirstName        *string `json:"firstName,omitempty"`
	LastName         *string `json:"lastName,omitempty"`
	ImageURL         *string `json:"imageUrl,omitempty"`
	Country          *string `json:"country,omitempty"`
	BestStreak       int     `json:"bestStreak"`
	TotalScore       int64   `json:"totalScore"`
	TotalGamesPlayed int     `json:"totalGamesPlayed"`
	WinRate          int     `json:"winRate"`
	Ranking          int     `json:"ranking"`
}

// UserRank locates one player among everyone ranked by a query.
type UserRank struct {
	Rank         *int `json:"rank"`
	TotalPlayers int  `json:"totalPlayers"`
}

// RankFilter is the resolved form of a query used by RankPlayers.
type RankFilter struct {
	Since    time.Time       // zero for all-time
	AllTime  bool            // report lifetime fields from the user record
	GameMode models.GameMode // empty for every mode
	SortBy   SortBy
}

// PeriodCutoff returns the earliest completion instant counted by period.
// Day and month boundaries are taken in loc.
func PeriodCutoff(period TimePeriod, now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	switch period {
	case PeriodToday:
		y, m, d := local.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PeriodMonth:
		return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	}
	return time.Time{}
}

// WinRate is 100*correct/questions rounded half up, 0 without questions.
func WinRate(correct, questions int) int {
	if questions <= 0 || correct <= 0 {
		return 0
	}
	if correct >= questions {
		return 100
	}
	return (200*correct + questions) / (2 * questions)
}

type periodAggregate struct {
	games      int
	correct    int
	questions  int
	bestStreak int
	score      int64
}

// RankPlayers aggregates sessions per user, drops users without games,
// sorts by f.SortBy and numbers the result from 1. Users keep their input
// order on ties that the sort key does not break.
func RankPlayers(users []models.User, sessions []models.GameSession, f RankFilter) []LeaderboardEntry {
	aggregates := make(map[string]*periodAggregate, len(users))
	for i := range users {
		aggregates[users[i].ID] = &periodAggregate{}
	}

	for i := range sessions {
		gs := &sessions[i]
		agg, ok := aggregates[gs.UserID]
		if !ok || gs.CompletedAt == nil {
			continue
		}
		if f.GameMode != "" && gs.GameMode != f.GameMode {
			continue
		}
		if !f.Since.IsZero() && gs.CompletedAt.Before(f.Since) {
			continue
		}
		agg.games++
		agg.correct += gs.CorrectAnswers
		agg.questions += gs.QuestionsAnswered
		agg.score += gs.Score
		if gs.Streak > agg.bestStreak {
			agg.bestStreak = gs.Streak
		}
	}

	entries := make([]LeaderboardEntry, 0, len(users))
	for i := range users {
		u := &users[i]
		agg := aggregates[u.ID]
		e := LeaderboardEntry{
			UserID:    u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			ImageURL:  u.ImageURL,
			Country:   u.Country,
			WinRate:   WinRate(agg.correct, agg.questions),
		}
		if f.AllTime {
			e.BestStreak = u.BestStreak
			e.TotalScore = u.TotalScore
			e.TotalGamesPlayed = u.TotalGamesPlayed
		} else {
			e.BestStreak = agg.bestStreak
			e.TotalScore = agg.score
			e.TotalGamesPlayed = agg.games
		}
		if e.TotalGamesPlayed == 0 {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch f.SortBy {
		case SortByWinRate:
			if a.WinRate != b.WinRate {
				return a.WinRate > b.WinRate
			}
			return a.TotalGamesPlayed > b.TotalGamesPlayed
		case SortByGamesPlayed:
			return a.TotalGamesPlayed > b.TotalGamesPlayed
		case SortByTotalScore:
			return a.TotalScore > b.TotalScore
		default:
			if a.BestStreak != b.BestStreak {
				return a.BestStreak > b.BestStreak
			}
			return a.TotalGamesPlayed > b.TotalGamesPlayed
		}
	})

	for i := range entries {
		entries[i].Ranking = i + 1
	}
	return entries
}

// LeaderboardService computes rankings fresh from the store on every call.
type LeaderboardService struct {
	Store    store.Store
	Location *time.Location
	Now      func() time.Time
	Metrics  metrics.Recorder
}

func NewLeaderboardService(s store.Store, loc *time.Location, rec metrics.Recorder) *LeaderboardService {
	if loc == nil {
		loc = time.UTC
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &LeaderboardService{Store: s, Location: loc, Now: time.Now, Metrics: rec}
}

// Query returns the top q.Limit players.
func (s *LeaderboardService) Query(ctx context.Context, identity string, q LeaderboardQuery) ([]LeaderboardEntry, error) {
	entries, q, err := s.rank(ctx, identity, q)
	if err != nil {
		return nil, err
	}
	if len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	return entries, nil
}

// UserRank finds the caller among every ranked player. Rank is nil when the
// caller has no qualifying games.
func (s *LeaderboardService) UserRank(ctx context.Context, identity string, q LeaderboardQuery) (*UserRank, error) {
	user, err := lookupUser(ctx, s.Store, identity)
	if err != nil {
		return nil, err
	}
	entries, _, err := s.rank(ctx, identity, q)
	if err != nil {
		return nil, err
	}

	out := &UserRank{TotalPlayers: len(entries)}
	for i := range entries {
		if entries[i].UserID == user.ID {
			rank := entries[i].Ranking
			out.Rank = &rank
			break
		}
	}
	return out, nil
}

func (s *LeaderboardService) rank(ctx context.Context, identity string, q LeaderboardQuery) ([]LeaderboardEntry, LeaderboardQuery, error) {
	if err := validateInput(q); err != nil {
		return nil, q, err
	}
	q = q.withDefaults()

	country, err := s.resolveRegion(ctx, identity, q.Region)
	if err != nil {
		return nil, q, err
	}

	started := time.Now()
	defer func() { s.Metrics.LeaderboardQueried(string(q.TimePeriod), time.Since(started)) }()

	f := RankFilter{
		Since:   PeriodCutoff(q.TimePeriod, s.Now(), s.Location),
		AllTime: q.TimePeriod == PeriodAllTime,
		SortBy:  q.SortBy,
	}
	if q.GameMode != ModeAll {
		f.GameMode = models.GameMode(q.GameMode)
	}

	users, err := s.Store.ListUsers(ctx, country)
	if err != nil {
		return nil, q, models.NewTransientError("load leaderboard users", err)
	}
	sessions, err := s.Store.ListCompletedSessions(ctx, store.SessionFilter{Since: f.Since, GameMode: f.GameMode})
	if err != nil {
		return nil, q, models.NewTransientError("load leaderboard sessions", err)
	}
	return RankPlayers(users, sessions, f), q, nil
}

// resolveRegion maps a region filter to a country code, "" meaning every country.
func (s *LeaderboardService) resolveRegion(ctx context.Context, identity, region string) (string, error) {
	switch strings.ToLower(region) {
	case "", RegionAll:
		return "", nil
	case RegionLocal:
		user, err := lookupUser(ctx, s.Store, identity)
		if err != nil {
			return "", err
		}
		if user.CountryCode() == "" {
			return "", models.NewValidationError("region=local requires a country in your preferences")
		}
		return user.CountryCode(), nil
	}

	code := strings.ToUpper(region)
	if err := validate.Var(code, "iso3166_1_alpha2"); err != nil {
		return "", models.NewValidationError("region must be all, local or an ISO 3166 country code")
	}
	return code, nil
}
