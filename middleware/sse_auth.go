// middleware/sse_auth.go
package middleware

import (
	"strings"

	"strik-trivia/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// StreamTokenMiddleware lets EventSource clients, which cannot set headers,
// pass their session token as ?token=. It only fills in an identity that
// IdentityMiddleware did not already resolve.
//
// Usage:
//
//	app.Get("/rounds/current/stream", middleware.StreamTokenMiddleware(secret), middleware.RequireIdentity(), handler)
func StreamTokenMiddleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) != "" {
			return c.Next()
		}

		raw := strings.TrimSpace(c.Query("token"))
		if raw == "" {
			return c.Next()
		}

		sub, err := ParseSessionToken(secret, raw)
		if err != nil {
			logrus.WithError(err).WithField("ip", c.IP()).Warn("[SSE_AUTH] rejected stream token")
			return reject(c, &models.APIError{
				Code:     models.ErrCodeAuthRequired,
				Message:  "invalid stream token",
				Category: "auth",
				Action:   "Sign in again.",
			})
		}

		c.Locals(userIDLocal, sub)
		logrus.WithField("user_id", sub).Debug("[SSE_AUTH] stream authenticated")
		return c.Next()
	}
}
