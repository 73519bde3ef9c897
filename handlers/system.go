// handlers/system.go
package handlers

import (
	"context"
	"time"

	"strik-trivia/metrics"
	"strik-trivia/services"
	"strik-trivia/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
)

// SetupSystemRoutes registers health, metrics and the public question catalog.
// Call it before the gateway middleware so probes need no token.
func SetupSystemRoutes(app *fiber.App, st store.Store, gatherer prometheus.Gatherer) {
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"store":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler(gatherer)))
}

func SetupQuestionRoutes(app *fiber.App, bank *services.QuestionBank) {
	app.Get("/questions/categories", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"categories": bank.Categories()})
	})
}
