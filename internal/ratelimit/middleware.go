package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/logger"
)

// Rule is one named limit
type Rule struct {
	Name    string
	Limit   int64
	Window  time.Duration
	Message string

	// SkipSuccessful stops responses below 400 from counting
	SkipSuccessful bool
}

var (
	General = Rule{
		Name:    "api",
		Limit:   100,
		Window:  15 * time.Minute,
		Message: "Too many requests from this IP, please try again later.",
	}
	Auth = Rule{
		Name:           "auth",
		Limit:          5,
		Window:         time.Minute,
		Message:        "Too many login attempts, please try again after 1 minute.",
		SkipSuccessful: true,
	}
	TaskCreation = Rule{
		Name:    "task-create",
		Limit:   50,
		Window:  time.Hour,
		Message: "Too many task creation requests, please try again later.",
	}
)

// Middleware enforces rule per client IP. Limiter failures let the request
// through.
func Middleware(l Limiter, rule Rule, log *slog.Logger) gin.HandlerFunc {
	log = logger.OrDefault(log).With("component", "ratelimit", "rule", rule.Name)

	return func(c *gin.Context) {
		key := rule.Name + ":" + c.ClientIP()

		count, reset, err := l.Hit(c.Request.Context(), key, rule.Window)
		if err != nil {
			log.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		remaining := rule.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		resetSeconds := int64(math.Ceil(time.Until(reset).Seconds()))

		c.Header("RateLimit-Limit", strconv.FormatInt(rule.Limit, 10))
		c.Header("RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Header("RateLimit-Reset", strconv.FormatInt(resetSeconds, 10))

		if count > rule.Limit {
			c.Header("Retry-After", strconv.FormatInt(resetSeconds, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": rule.Message,
			})
			return
		}

		c.Next()

		if rule.SkipSuccessful && c.Writer.Status() < http.StatusBadRequest {
			if err := l.Undo(c.Request.Context(), key); err != nil {
				log.Warn("failed to discount successful request", "error", err)
			}
		}
	}
}
