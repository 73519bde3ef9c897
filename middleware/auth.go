// middleware/auth.go
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"strik-trivia/models"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const userIDLocal = "user_id"

// IdentityConfig selects where the caller's identity comes from.
// GatewayMode trusts X-User-ID (the gateway authenticated the caller);
// SessionSecret verifies X-Session-Token JWTs.
type IdentityConfig struct {
	GatewayMode   bool
	SessionSecret []byte
}

// SessionClaims is the payload of an X-Session-Token. The identity is Subject.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IdentityMiddleware resolves the caller's identity and stores it under
// c.Locals("user_id"). Anonymous requests pass through with an empty id;
// RequireIdentity rejects them where identity is mandatory.
//
// The stored id is a copy: header values point into fasthttp's request
// buffer, which is reused after the request, and identities outlive it as
// map keys in the round manager, rate limiter and memory store.
func IdentityMiddleware(cfg IdentityConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := ""

		if cfg.GatewayMode {
			identity = fiberutils.CopyString(strings.TrimSpace(c.Get("X-User-ID")))
		}

		if raw := strings.TrimSpace(c.Get("X-Session-Token")); identity == "" && raw != "" {
			sub, err := ParseSessionToken(cfg.SessionSecret, raw)
			if err != nil {
				logrus.WithError(err).WithField("path", c.Path()).Warn("[USER_CTX] rejected session token")
				return reject(c, &models.APIError{
					Code:     models.ErrCodeAuthRequired,
					Message:  "invalid session token",
					Category: "auth",
					Action:   "Sign in again.",
				})
			}
			identity = sub
		}

		c.Locals(userIDLocal, identity)
		return c.Next()
	}
}

// RequireIdentity answers 401 when no identity was resolved.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == "" {
			return reject(c, models.NewAuthRequiredError())
		}
		return c.Next()
	}
}

// UserID returns the identity resolved for this request, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}

// ParseSessionToken verifies an HS256 session token and returns its subject.
func ParseSessionToken(secret []byte, raw string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("session tokens are not enabled")
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid session token")
	}
	if claims.Subject == "" {
		return "", errors.New("session token has no subject")
	}
	return claims.Subject, nil
}

func reject(c *fiber.Ctx, apiErr *models.APIError) error {
	return c.Status(apiErr.HTTPStatus()).JSON(apiErr)
}
