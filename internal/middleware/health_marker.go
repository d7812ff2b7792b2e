package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Redis keys shared with the health service and the reset handler.
const (
	KeyReqTotal  = "health:mliang:req_total"
	KeyReqErrors = "health:mliang:req_errors"
	KeyResTime   = "health:mliang:res_time_total"
	KeyResCount  = "health:mliang:res_count"
	KeyStartTime = "health:mliang:start_time"
	KeyLastReq   = "health:mliang:last_request"
	KeyErrorLog  = "health:mliang:error_log"
)

// ErrorLogSize is how many failed requests /health/errors keeps.
const ErrorLogSize = 50

// HealthKeys lists every key the reset endpoint clears.
var HealthKeys = []string{KeyReqTotal, KeyReqErrors, KeyResTime, KeyResCount, KeyStartTime, KeyLastReq, KeyErrorLog}

// HealthMarker records request stats in Redis (skip /, /health*, favicon).
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		lastReq := map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		}
		b, _ := json.Marshal(lastReq)
		ctx := context.Background()
		_, _ = rdb.Set(ctx, KeyLastReq, b, 0).Result()
		_, _ = rdb.Incr(ctx, KeyReqTotal).Result()

		err := c.Next()

		ms := time.Since(start).Milliseconds()
		_, _ = rdb.Incr(ctx, KeyResCount).Result()
		_, _ = rdb.IncrByFloat(ctx, KeyResTime, float64(ms)).Result()
		status := responseStatus(c, err)
		if status >= 500 {
			_, _ = rdb.Incr(ctx, KeyReqErrors).Result()
			entry := map[string]interface{}{
				"time":    time.Now().UTC(),
				"path":    c.OriginalURL(),
				"method":  c.Method(),
				"status":  status,
				"message": errorMessage(c, err),
			}
			eb, _ := json.Marshal(entry)
			rdb.LPush(ctx, KeyErrorLog, eb)
			rdb.LTrim(ctx, KeyErrorLog, 0, ErrorLogSize-1)
		}
		return err
	}
}

func errorMessage(c *fiber.Ctx, err error) string {
	if err != nil {
		return err.Error()
	}
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(c.Response().Body(), &body)
	return body.Error.Message
}
