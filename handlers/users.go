// handlers/users.go
package handlers

import (
	"strik-trivia/middleware"
	"strik-trivia/models"
	"strik-trivia/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, users *services.UserService) {
	requireID := middleware.RequireIdentity()

	app.Put("/user", requireID, func(c *fiber.Ctx) error {
		var body models.UserProfile
		if err := c.BodyParser(&body); err != nil {
			return badBody(c, err)
		}
		u, err := users.UpsertUser(c.UserContext(), middleware.UserID(c), body)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"userId": u.ID, "user": u})
	})

	app.Get("/user", requireID, func(c *fiber.Ctx) error {
		u, err := users.CurrentUser(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"user": u})
	})

	app.Patch("/user/preferences", requireID, func(c *fiber.Ctx) error {
		var body models.UserPreferences
		if err := c.BodyParser(&body); err != nil {
			return badBody(c, err)
		}
		u, err := users.UpdatePreferences(c.UserContext(), middleware.UserID(c), body)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"user": u})
	})

	app.Post("/user/stats", requireID, func(c *fiber.Ctx) error {
		var body services.GameStats
		if err := c.BodyParser(&body); err != nil {
			return badBody(c, err)
		}
		u, err := users.UpdateGameStats(c.UserContext(), middleware.UserID(c), body)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"userId": u.ID, "user": u})
	})

	app.Get("/user/history", requireID, func(c *fiber.Ctx) error {
		limit, err := queryLimit(c)
		if err != nil {
			return respondError(c, err)
		}
		sessions, err := users.History(c.UserContext(), middleware.UserID(c), limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"sessions": sessions})
	})

	app.Get("/games/recent", func(c *fiber.Ctx) error {
		limit, err := queryLimit(c)
		if err != nil {
			return respondError(c, err)
		}
		games, err := users.RecentGames(c.UserContext(), limit)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"games": games})
	})
}
