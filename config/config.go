// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds every setting the service reads at startup.
// It is loaded once and treated as immutable afterwards.
type Config struct {
	Port        string
	StoreDriver string
	DatabaseURL string

	// Auth
	GameServiceToken   string
	SessionTokenSecret string
	AllowedOrigins     []string

	// Logging
	LogLevel  string
	LogFormat string

	// Game
	LeaderboardLocation *time.Location
	QuestionsFile       string
	DefaultTimeLimit    time.Duration
	AnswerRatePerSec    float64
	AnswerBurst         int
	RoundIdleTimeout    time.Duration
	RoundSweepInterval  time.Duration
	OutboxBuffer        int

	// Profile sync from the identity provider
	ProfileSyncURL      string
	ProfileSyncPath     string
	ProfileSyncInterval time.Duration

	// Leaderboard export (Cloudflare R2)
	ExportInterval    time.Duration
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2Bucket          string
	CDNBaseURL        string
}

// ExportEnabled reports whether enough R2 settings are present to upload snapshots.
func (c *Config) ExportEnabled() bool {
	return c.R2Bucket != "" && c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != ""
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("[CONFIG] no .env file found, reading environment variables directly")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	var missing []string

	cfg.StoreDriver = strings.ToLower(getEnvString("STORE_DRIVER", StoreDriverPostgres))
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q (want postgres or memory)", cfg.StoreDriver)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	tzName := getEnvString("LEADERBOARD_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid LEADERBOARD_TIMEZONE %q: %w", tzName, err)
	}
	cfg.LeaderboardLocation = loc

	cfg.Port = getEnvString("PORT", "5200")
	cfg.GameServiceToken = os.Getenv("GAME_SERVICE_TOKEN")
	cfg.SessionTokenSecret = os.Getenv("SESSION_TOKEN_SECRET")
	cfg.AllowedOrigins = splitOrigins(getEnvString("ALLOWED_ORIGINS", "http://localhost:3000"))
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.LogFormat = getEnvString("LOG_FORMAT", "text")
	cfg.QuestionsFile = os.Getenv("QUESTIONS_FILE")
	cfg.DefaultTimeLimit = getEnvDuration("DEFAULT_TIME_LIMIT", 30*time.Second)
	cfg.AnswerRatePerSec = getEnvFloat("ANSWER_RATE_PER_SEC", 2)
	cfg.AnswerBurst = getEnvInt("ANSWER_BURST", 5)
	cfg.RoundIdleTimeout = getEnvDuration("ROUND_IDLE_TIMEOUT", 30*time.Minute)
	cfg.RoundSweepInterval = getEnvDuration("ROUND_SWEEP_INTERVAL", 5*time.Minute)
	cfg.OutboxBuffer = getEnvInt("OUTBOX_BUFFER", 64)
	cfg.ExportInterval = getEnvDuration("LEADERBOARD_EXPORT_INTERVAL", 15*time.Minute)

	cfg.ProfileSyncURL = os.Getenv("PROFILE_SYNC_URL")
	cfg.ProfileSyncPath = getEnvString("PROFILE_SYNC_PATH", "/api/v1/public/profiles")
	cfg.ProfileSyncInterval = getEnvDuration("PROFILE_SYNC_INTERVAL", time.Minute)

	cfg.R2AccountID = os.Getenv("CLOUDFLARE_ACCOUNT_ID")
	cfg.R2AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.R2AccessKeySecret = os.Getenv("R2_ACCESS_KEY_SECRET")
	cfg.R2Bucket = os.Getenv("R2_BUCKET_NAME")
	cfg.CDNBaseURL = os.Getenv("CDN_BASE_URL")

	return cfg, nil
}

func splitOrigins(raw string) []string {
	var out []string
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
