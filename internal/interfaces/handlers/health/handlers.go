package health

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	healthsvc "mliang-listings/internal/application/health"
	"mliang-listings/internal/middleware"
	"mliang-listings/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// ServiceName is reported by /health/json.
const ServiceName = "mliang-listings-api"

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Rdb            *redis.Client
	DB             healthsvc.DBPinger
	SupabaseURL    string
	HealthAdminKey string
}

func (h *Handlers) collect(ctx context.Context) healthsvc.CollectResult {
	return healthsvc.CollectHealth(ctx, healthsvc.Deps{Redis: h.Rdb, DB: h.DB, SupabaseURL: h.SupabaseURL})
}

// adminKeyMatches accepts the plain key, or any key matching a bcrypt hash
// stored in HEALTH_ADMIN_KEY.
func (h *Handlers) adminKeyMatches(key string) bool {
	if key == "" || h.HealthAdminKey == "" {
		return false
	}
	if strings.HasPrefix(h.HealthAdminKey, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(h.HealthAdminKey), []byte(key)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.HealthAdminKey)) == 1
}

// Reset clears health stats in Redis. Requires query key=HEALTH_ADMIN_KEY.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	if !h.adminKeyMatches(c.Query("key")) {
		return response.Forbidden(c, "Unauthorized")
	}
	if h.Rdb == nil {
		return response.Unavailable(c, "Redis is not configured")
	}
	ctx := c.UserContext()
	if err := h.Rdb.Del(ctx, middleware.HealthKeys...).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	if err := h.Rdb.Set(ctx, middleware.KeyStartTime, strconv.FormatInt(time.Now().UnixMilli(), 10), 0).Err(); err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Stats reset successfully", fiber.Map{"success": true}, nil)
}

// JSON returns the collected health with the service name.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	result := h.collect(c.UserContext())
	return c.JSON(fiber.Map{
		"service":      ServiceName,
		"status":       result.Status,
		"runtime":      result.Runtime,
		"traffic":      result.Traffic,
		"dependencies": result.Dependencies,
	})
}

// Summary answers GET / with status and dependency states only.
func (h *Handlers) Summary(c *fiber.Ctx) error {
	result := h.collect(c.UserContext())
	deps := make(map[string]string, len(result.Dependencies))
	for name, d := range result.Dependencies {
		deps[name] = d.Status
	}
	return response.Success(c, "Mliang listings API", fiber.Map{
		"service":      ServiceName,
		"status":       result.Status,
		"uptime":       result.Runtime.UptimeSeconds,
		"dependencies": deps,
	}, nil)
}

// Errors returns the last logged server errors, newest first.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	if h.Rdb == nil {
		return c.JSON([]interface{}{})
	}
	entries, err := h.Rdb.LRange(c.UserContext(), middleware.KeyErrorLog, 0, middleware.ErrorLogSize-1).Result()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	out := make([]map[string]interface{}, 0, len(entries))
	for _, s := range entries {
		var m map[string]interface{}
		if json.Unmarshal([]byte(s), &m) == nil && m != nil {
			out = append(out, m)
		}
	}
	return c.JSON(out)
}
