// workers/leaderboard_export.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"strik-trivia/metrics"
	"strik-trivia/services"

	"github.com/sirupsen/logrus"
)

// Uploader stores an object and returns its public URL. utils.R2Uploader
// implements it.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// LeaderboardSnapshot is the static JSON document served from the CDN.
type LeaderboardSnapshot struct {
	TimePeriod  services.TimePeriod         `json:"timePeriod"`
	SortBy      services.SortBy             `json:"sortBy"`
	GeneratedAt time.Time                   `json:"generatedAt"`
	Entries     []services.LeaderboardEntry `json:"entries"`
}

var exportPeriods = []services.TimePeriod{services.PeriodAllTime, services.PeriodToday}

// LeaderboardExporter publishes the top streak boards to object storage.
type LeaderboardExporter struct {
	Boards   *services.LeaderboardService
	Uploader Uploader
	Metrics  metrics.Recorder
	Now      func() time.Time
}

func NewLeaderboardExporter(boards *services.LeaderboardService, up Uploader, rec metrics.Recorder) *LeaderboardExporter {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &LeaderboardExporter{Boards: boards, Uploader: up, Metrics: rec, Now: time.Now}
}

// ExportOnce uploads one snapshot per period. A failing period does not stop
// the others; all failures are returned joined.
func (e *LeaderboardExporter) ExportOnce(ctx context.Context) error {
	var errs []error
	for _, period := range exportPeriods {
		url, err := e.export(ctx, period)
		e.Metrics.LeaderboardExported(err == nil)
		if err != nil {
			logrus.WithError(err).WithField("period", period).Error("❌ [EXPORT] leaderboard export failed")
			errs = append(errs, err)
			continue
		}
		logrus.WithFields(logrus.Fields{"period": period, "url": url}).Info("✅ [EXPORT] leaderboard exported")
	}
	return errors.Join(errs...)
}

func (e *LeaderboardExporter) export(ctx context.Context, period services.TimePeriod) (string, error) {
	entries, err := e.Boards.Query(ctx, "", services.LeaderboardQuery{
		Limit:      services.MaxListLimit,
		TimePeriod: period,
		SortBy:     services.SortByStreak,
	})
	if err != nil {
		return "", fmt.Errorf("query %s board: %w", period, err)
	}

	body, err := json.Marshal(LeaderboardSnapshot{
		TimePeriod:  period,
		SortBy:      services.SortByStreak,
		GeneratedAt: e.Now().UTC(),
		Entries:     entries,
	})
	if err != nil {
		return "", fmt.Errorf("encode %s board: %w", period, err)
	}

	return e.Uploader.Upload(ctx, "leaderboards/"+string(period)+".json", body, "application/json")
}
