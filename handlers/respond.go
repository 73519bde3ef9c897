// handlers/respond.go
package handlers

import (
	"errors"
	"strconv"

	"strik-trivia/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// respondError writes err as JSON. APIErrors carry their own status; anything
// else is logged and hidden behind a 500.
func respondError(c *fiber.Ctx, err error) error {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Err != nil {
			logrus.WithError(apiErr.Err).WithFields(logrus.Fields{
				"path": c.Path(),
				"code": apiErr.Code,
			}).Warn("[API] request failed")
		}
		return c.Status(apiErr.HTTPStatus()).JSON(apiErr)
	}

	logrus.WithError(err).WithField("path", c.Path()).Error("[API] unexpected error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
		"code":  "INTERNAL",
	})
}

func badBody(c *fiber.Ctx, err error) error {
	return respondError(c, models.NewValidationError("invalid JSON body: "+err.Error()))
}

// queryLimit reads ?limit=. A missing value yields 0 (the operation default).
func queryLimit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError("limit must be an integer")
	}
	return n, nil
}
