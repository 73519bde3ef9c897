// middleware/ratelimit.go
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"strik-trivia/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// AnswerRateLimiter throttles answer submissions per player.
type AnswerRateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu       sync.Mutex
	limiters map[string]*userLimiter
}

func NewAnswerRateLimiter(perSecond float64, burst int) *AnswerRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &AnswerRateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*userLimiter),
	}
}

// Handler must run after IdentityMiddleware.
func (rl *AnswerRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == "" {
			return reject(c, models.NewAuthRequiredError())
		}

		if !rl.get(userID).AllowN(rl.now(), 1) {
			retryAfter := int(math.Ceil(1.0 / float64(rl.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			logrus.WithField("user_id", userID).Warn("[RATE_LIMIT] answer rate exceeded")
			return reject(c, models.NewRateLimitedError())
		}
		return c.Next()
	}
}

func (rl *AnswerRateLimiter) get(userID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[userID] = ul
	}
	ul.lastAccess = rl.now()
	return ul.limiter
}

// Cleanup forgets players idle for longer than ttl and returns how many.
func (rl *AnswerRateLimiter) Cleanup(ttl time.Duration) int {
	cutoff := rl.now().Add(-ttl)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for userID, ul := range rl.limiters {
		if ul.lastAccess.Before(cutoff) {
			delete(rl.limiters, userID)
			removed++
		}
	}
	return removed
}

// Len reports how many players currently hold a limiter.
func (rl *AnswerRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
