package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"strik-trivia/config"
	"strik-trivia/handlers"
	"strik-trivia/metrics"
	"strik-trivia/middleware"
	"strik-trivia/services"
	"strik-trivia/store"
	"strik-trivia/utils"
	"strik-trivia/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("❌ invalid configuration")
	}
	utils.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	st, err := openStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("❌ failed to open store")
	}
	defer st.Close()

	bank, err := services.LoadQuestionBank(cfg.QuestionsFile)
	if err != nil {
		logrus.WithError(err).Fatal("❌ failed to load question bank")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userService := services.NewUserService(st)
	recorder := services.NewSessionRecorder(st)
	leaderboardService := services.NewLeaderboardService(st, cfg.LeaderboardLocation, collector)

	// The outbox stops after the server and the round manager, so rounds
	// ending during shutdown are still persisted.
	outbox := services.NewOutbox(cfg.OutboxBuffer, collector)
	outboxCtx, stopOutbox := context.WithCancel(context.Background())
	outboxDone := make(chan struct{})
	go func() {
		outbox.Run(outboxCtx)
		close(outboxDone)
	}()

	roundManager := services.NewRoundManager(userService, recorder, bank, outbox, collector, services.RoundManagerConfig{
		DefaultTimeLimit: cfg.DefaultTimeLimit,
		IdleTimeout:      cfg.RoundIdleTimeout,
	})
	answerLimiter := middleware.NewAnswerRateLimiter(cfg.AnswerRatePerSec, cfg.AnswerBurst)

	schedCfg := workers.SchedulerConfig{
		Rounds:         roundManager,
		SweepInterval:  cfg.RoundSweepInterval,
		Limiter:        answerLimiter,
		LimiterTTL:     cfg.RoundIdleTimeout,
		ExportInterval: cfg.ExportInterval,
	}
	if cfg.ExportEnabled() {
		uploader, err := utils.NewR2Uploader(ctx, utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			logrus.WithError(err).Fatal("❌ failed to initialize R2 client")
		}
		schedCfg.Exporter = workers.NewLeaderboardExporter(leaderboardService, uploader, collector)
	} else {
		logrus.Warn("⚠️  R2 settings incomplete, leaderboard export disabled")
	}

	sched, err := workers.StartScheduler(ctx, schedCfg)
	if err != nil {
		logrus.WithError(err).Fatal("❌ failed to start scheduler")
	}

	if cfg.ProfileSyncURL != "" {
		workers.NewProfileSyncWorker(userService, cfg.ProfileSyncURL, cfg.ProfileSyncPath, cfg.GameServiceToken, cfg.ProfileSyncInterval).Start(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:      "strik-trivia",
		Immutable:    true,
		BodyLimit:    64 * 1024,
		ErrorHandler: fiberErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,PATCH,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Cache-Control, X-Session-Token, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, Retry-After",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Probes and scraping stay outside gateway auth.
	handlers.SetupSystemRoutes(app, st, reg)

	gatewayMode := cfg.GameServiceToken != ""
	if gatewayMode {
		app.Use(middleware.GatewayAuthMiddleware(cfg.GameServiceToken))
	}
	app.Use(middleware.IdentityMiddleware(middleware.IdentityConfig{
		GatewayMode:   gatewayMode,
		SessionSecret: []byte(cfg.SessionTokenSecret),
	}))

	handlers.SetupQuestionRoutes(app, bank)
	handlers.SetupUserRoutes(app, userService)
	handlers.SetupSessionRoutes(app, recorder)
	handlers.SetupLeaderboardRoutes(app, leaderboardService)
	handlers.SetupRoundRoutes(app, roundManager, handlers.RoundRoutesConfig{
		Limiter:      answerLimiter,
		StreamSecret: []byte(cfg.SessionTokenSecret),
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.WithError(err).Error("server error")
			stop()
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":      cfg.Port,
		"store":     cfg.StoreDriver,
		"questions": bank.Len(),
		"gateway":   gatewayMode,
		"origins":   cfg.AllowedOrigins,
	}).Info("✅ Server running")

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.WithError(err).Warn("server shutdown")
	}
	roundManager.Shutdown()
	if err := sched.Shutdown(); err != nil {
		logrus.WithError(err).Warn("scheduler shutdown")
	}
	stopOutbox()
	select {
	case <-outboxDone:
	case <-time.After(15 * time.Second):
		logrus.WithField("pending", outbox.Pending()).Warn("[OUTBOX] gave up waiting for pending jobs")
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logrus.Warn("⚠️  using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	gs, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return gs, nil
}

// fiberErrorHandler keeps fiber's own errors (404 route, body too large) in
// the same JSON shape as APIErrors.
func fiberErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.Path()).Error("[API] unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error(), "code": fmt.Sprintf("HTTP_%d", code)})
}
