// handlers/sessions.go
package handlers

import (
	"strik-trivia/middleware"
	"strik-trivia/models"
	"strik-trivia/services"

	"github.com/gofiber/fiber/v2"
)

type createSessionRequest struct {
	GameMode models.GameMode `json:"gameMode"`
}

func SetupSessionRoutes(app *fiber.App, recorder *services.SessionRecorder) {
	requireID := middleware.RequireIdentity()

	app.Post("/sessions", requireID, func(c *fiber.Ctx) error {
		var body createSessionRequest
		if err := c.BodyParser(&body); err != nil {
			return badBody(c, err)
		}
		id, err := recorder.StartSession(c.UserContext(), middleware.UserID(c), body.GameMode)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sessionId": id})
	})

	app.Post("/sessions/:id/complete", requireID, func(c *fiber.Ctx) error {
		var body models.SessionCompletion
		if err := c.BodyParser(&body); err != nil {
			return badBody(c, err)
		}
		gs, err := recorder.CompleteSession(c.UserContext(), middleware.UserID(c), c.Params("id"), body)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"sessionId": gs.ID, "session": gs})
	})
}
