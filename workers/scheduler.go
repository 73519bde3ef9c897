// workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// RoundSweeper drops idle rounds. services.RoundManager implements it.
type RoundSweeper interface {
	SweepIdle() int
}

// LimiterCleaner forgets idle rate-limit entries. middleware.AnswerRateLimiter implements it.
type LimiterCleaner interface {
	Cleanup(ttl time.Duration) int
}

type SchedulerConfig struct {
	Rounds        RoundSweeper
	SweepInterval time.Duration

	Limiter    LimiterCleaner
	LimiterTTL time.Duration

	// Exporter is optional; nil disables snapshot uploads.
	Exporter       *LeaderboardExporter
	ExportInterval time.Duration
}

// StartScheduler registers the periodic maintenance jobs and starts them.
// The caller owns the returned scheduler and must Shutdown it.
func StartScheduler(ctx context.Context, cfg SchedulerConfig) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	if cfg.Rounds != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(cfg.SweepInterval),
			gocron.NewTask(func() {
				cfg.Rounds.SweepIdle()
				if cfg.Limiter != nil {
					if n := cfg.Limiter.Cleanup(cfg.LimiterTTL); n > 0 {
						logrus.WithField("removed", n).Debug("[SWEEP] dropped idle rate limiters")
					}
				}
			}),
			gocron.WithName("round-sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("schedule round sweep: %w", err)
		}
	}

	if cfg.Exporter != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(cfg.ExportInterval),
			gocron.NewTask(func() {
				exportCtx, cancel := context.WithTimeout(ctx, time.Minute)
				defer cancel()
				_ = cfg.Exporter.ExportOnce(exportCtx)
			}),
			gocron.WithName("leaderboard-export"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("schedule leaderboard export: %w", err)
		}
	}

	sched.Start()
	logrus.WithFields(logrus.Fields{
		"sweep_every":  cfg.SweepInterval,
		"export":       cfg.Exporter != nil,
		"export_every": cfg.ExportInterval,
	}).Info("✅ [Scheduler] maintenance jobs running")
	return sched, nil
}
