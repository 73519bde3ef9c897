// handlers/leaderboard.go
package handlers

import (
	"strik-trivia/middleware"
	"strik-trivia/services"

	"github.com/gofiber/fiber/v2"
)

func leaderboardQuery(c *fiber.Ctx) (services.LeaderboardQuery, error) {
	limit, err := queryLimit(c)
	if err != nil {
		return services.LeaderboardQuery{}, err
	}
	return services.LeaderboardQuery{
		Limit:      limit,
		TimePeriod: services.TimePeriod(c.Query("timePeriod")),
		GameMode:   c.Query("gameMode"),
		SortBy:     services.SortBy(c.Query("sortBy")),
		Region:     c.Query("region"),
	}, nil
}

func SetupLeaderboardRoutes(app *fiber.App, boards *services.LeaderboardService) {
	// Identity is optional here; region=local needs it.
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		q, err := leaderboardQuery(c)
		if err != nil {
			return respondError(c, err)
		}
		entries, err := boards.Query(c.UserContext(), middleware.UserID(c), q)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"entries": entries})
	})

	app.Get("/leaderboard/rank", middleware.RequireIdentity(), func(c *fiber.Ctx) error {
		q, err := leaderboardQuery(c)
		if err != nil {
			return respondError(c, err)
		}
		rank, err := boards.UserRank(c.UserContext(), middleware.UserID(c), q)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(rank)
	})
}
