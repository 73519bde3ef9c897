// store/gorm.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"strik-trivia/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	DB *gorm.DB
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := NewGormStore(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Migrate() error {
	if err := s.DB.AutoMigrate(
		&models.User{},
		&models.GameSession{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *GormStore) UpsertUser(ctx context.Context, u *models.User) (*models.User, error) {
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "first_name", "last_name", "image_url", "updated_at", "last_login_at",
		}),
	}).Create(u).Error
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", u.ExternalID, err)
	}
	return s.GetUserByExternalID(ctx, u.ExternalID)
}

func (s *GormStore) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("external_id = ?", externalID).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) UpdateUserPreferences(ctx context.Context, userID string, prefs models.UserPreferences, at time.Time) (*models.User, error) {
	updates := map[string]interface{}{"updated_at": at}
	if prefs.PreferredTheme != nil {
		updates["preferred_theme"] = *prefs.PreferredTheme
	}
	if prefs.Country != nil {
		updates["country"] = *prefs.Country
	}
	if prefs.Region != nil {
		updates["region"] = *prefs.Region
	}
	if prefs.Timezone != nil {
		updates["timezone"] = *prefs.Timezone
	}

	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update preferences for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUserByID(ctx, userID)
}

// gameStatsUpdates increments the aggregates in SQL so concurrent completions
// for the same user cannot lose each other's writes.
func gameStatsUpdates(score int64, streak int, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"total_games_played": gorm.Expr("total_games_played + 1"),
		"best_streak":        gorm.Expr("CASE WHEN best_streak < ? THEN ? ELSE best_streak END", streak, streak),
		"total_score":        gorm.Expr("total_score + ?", score),
		"updated_at":         at,
	}
}

func (s *GormStore) ApplyGameStats(ctx context.Context, userID string, score int64, streak int, at time.Time) (*models.User, error) {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(gameStatsUpdates(score, streak, at))
	if res.Error != nil {
		return nil, fmt.Errorf("apply game stats for %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUserByID(ctx, userID)
}

func (s *GormStore) ListUsers(ctx context.Context, country string) ([]models.User, error) {
	var users []models.User
	q := s.DB.WithContext(ctx).Model(&models.User{})
	if country != "" {
		q = q.Where("country = ?", country)
	}
	if err := q.Order("created_at ASC, id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *GormStore) CreateSession(ctx context.Context, gs *models.GameSession) error {
	if err := s.DB.WithContext(ctx).Create(gs).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *GormStore) GetSession(ctx context.Context, id string) (*models.GameSession, error) {
	var gs models.GameSession
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&gs).Error; err != nil {
		return nil, err
	}
	return &gs, nil
}

func (s *GormStore) FinalizeSession(ctx context.Context, id string, c models.SessionCompletion, at time.Time) (*models.GameSession, error) {
	var finalized models.GameSession
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gs models.GameSession
		if err := tx.Where("id = ?", id).First(&gs).Error; err != nil {
			return err
		}
		if gs.CompletedAt != nil {
			return ErrAlreadyCompleted
		}

		updates := map[string]interface{}{
			"score":              c.Score,
			"streak":             c.Streak,
			"questions_answered": c.QuestionsAnswered,
			"correct_answers":    c.CorrectAnswers,
			"completed_at":       at,
		}
		if c.AverageAnswerTime != nil {
			updates["average_answer_time"] = *c.AverageAnswerTime
		}

		// Conditional on completed_at so a concurrent finalize loses cleanly.
		res := tx.Model(&models.GameSession{}).
			Where("id = ? AND completed_at IS NULL", id).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyCompleted
		}

		res = tx.Model(&models.User{}).
			Where("id = ?", gs.UserID).
			Updates(gameStatsUpdates(c.Score, c.Streak, at))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("owner %s of session %s: %w", gs.UserID, id, ErrNotFound)
		}

		return tx.Where("id = ?", id).First(&finalized).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyCompleted) {
			return nil, err
		}
		return nil, fmt.Errorf("finalize session %s: %w", id, err)
	}
	return &finalized, nil
}

func (s *GormStore) ListUserSessions(ctx context.Context, userID string, limit int) ([]models.GameSession, error) {
	var sessions []models.GameSession
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions for %s: %w", userID, err)
	}
	return sessions, nil
}

func (s *GormStore) ListRecentCompleted(ctx context.Context, limit int) ([]models.GameSession, error) {
	var sessions []models.GameSession
	err := s.DB.WithContext(ctx).
		Where("completed_at IS NOT NULL").
		Order("completed_at DESC, id DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list recent sessions: %w", err)
	}
	return sessions, nil
}

func (s *GormStore) ListCompletedSessions(ctx context.Context, f SessionFilter) ([]models.GameSession, error) {
	q := s.DB.WithContext(ctx).Model(&models.GameSession{}).Where("completed_at IS NOT NULL")
	if !f.Since.IsZero() {
		q = q.Where("completed_at >= ?", f.Since)
	}
	if f.GameMode != "" {
		q = q.Where("game_mode = ?", f.GameMode)
	}

	var sessions []models.GameSession
	if err := q.Order("completed_at ASC, id ASC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	return sessions, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
