// handlers/rounds.go
package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"strik-trivia/middleware"
	"strik-trivia/models"
	"strik-trivia/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type startRoundRequest struct {
	GameMode models.GameMode `json:"gameMode"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// RoundRoutesConfig carries the pieces the round routes need besides the manager.
type RoundRoutesConfig struct {
	Limiter      *middleware.AnswerRateLimiter
	StreamSecret []byte
	KeepAlive    time.Duration
}

func SetupRoundRoutes(app *fiber.App, rounds *services.RoundManager, cfg RoundRoutesConfig) {
	requireID := middleware.RequireIdentity()
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 15 * time.Second
	}

	app.Post("/rounds", requireID, func(c *fiber.Ctx) error {
		var body startRoundRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return badBody(c, err)
			}
		}
		if body.GameMode == "" {
			body.GameMode = models.GameModeStreak
		}
		snap, err := rounds.Start(c.UserContext(), middleware.UserID(c), body.GameMode)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(snap)
	})

	app.Get("/rounds/current", requireID, func(c *fiber.Ctx) error {
		snap, err := rounds.Current(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(snap)
	})

	answerHandlers := []fiber.Handler{requireID}
	if cfg.Limiter != nil {
		answerHandlers = append(answerHandlers, cfg.Limiter.Handler())
	}
	answerHandlers = append(answerHandlers, func(c *fiber.Ctx) error {
		var body answerRequest
		if err := c.BodyParser(&body); err != nil {
			return badBody(c, err)
		}
		correct, snap, err := rounds.SubmitAnswer(middleware.UserID(c), body.Answer)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"correct": correct, "round": snap})
	})
	app.Post("/rounds/current/answers", answerHandlers...)

	app.Post("/rounds/current/end", requireID, func(c *fiber.Ctx) error {
		snap, err := rounds.End(middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(snap)
	})

	app.Get("/rounds/current/stream",
		middleware.StreamTokenMiddleware(cfg.StreamSecret),
		requireID,
		func(c *fiber.Ctx) error {
			return streamRound(c, rounds, cfg.KeepAlive)
		},
	)
}

// streamRound pushes a snapshot after every round change until the round
// is dropped or the client goes away.
func streamRound(c *fiber.Ctx, rounds *services.RoundManager, keepAlive time.Duration) error {
	userID := middleware.UserID(c)
	updates, cancel, err := rounds.Subscribe(userID)
	if err != nil {
		return respondError(c, err)
	}
	initial, err := rounds.Current(userID)
	if err != nil {
		cancel()
		return respondError(c, err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	// c is recycled once this handler returns; the writer only uses what it captured.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		if !writeSnapshot(w, initial) {
			return
		}

		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					fmt.Fprint(w, "event: closed\ndata: {}\n\n")
					w.Flush()
					return
				}
				if !writeSnapshot(w, snap) {
					return
				}
			case <-ticker.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})

	logrus.WithField("user_id", userID).Debug("[SSE] round stream opened")
	return nil
}

func writeSnapshot(w *bufio.Writer, snap services.RoundSnapshot) bool {
	payload, err := json.Marshal(snap)
	if err != nil {
		logrus.WithError(err).Error("[SSE] failed to encode round snapshot")
		return false
	}
	fmt.Fprintf(w, "event: round\ndata: %s\n\n", payload)
	// A failed flush means the client disconnected.
	return w.Flush() == nil
}
