package middleware

import (
	"strings"

	"mliang-listings/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig holds CORS configuration (suffix + dev password).
type CORSConfig struct {
	AllowedSuffix string
	DevPassword   string
}

const corsAllowHeaders = "Content-Type, dev-password"

// corsExposeHeaders lets the dashboard read batch counters off binary responses.
const corsExposeHeaders = "X-Trace-Id, X-Logo-Drawn, X-Text-Drawn, X-Batch-Succeeded, X-Batch-Failed, X-Listing-Count, Content-Disposition"

// CORS allows origins ending with AllowedSuffix, localhost origins, or
// requests carrying the dev-password header. Requests without an Origin pass.
func CORS(cfg CORSConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin == "" {
			return c.Next()
		}
		allowed := isLocalOrigin(origin) ||
			(cfg.AllowedSuffix != "" && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(cfg.AllowedSuffix))) ||
			(cfg.DevPassword != "" && c.Get("dev-password") == cfg.DevPassword)

		if !allowed {
			return response.Forbidden(c, "Not allowed by CORS")
		}
		setCORSHeaders(c, origin)
		if c.Method() == fiber.MethodOptions {
			c.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func isLocalOrigin(origin string) bool {
	return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
}

func setCORSHeaders(c *fiber.Ctx, origin string) {
	c.Set("Access-Control-Allow-Origin", origin)
	c.Set("Access-Control-Allow-Credentials", "true")
	c.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	c.Set("Access-Control-Expose-Headers", corsExposeHeaders)
}
