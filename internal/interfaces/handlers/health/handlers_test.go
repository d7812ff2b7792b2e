package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"mliang-listings/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupHealthHandlers(t *testing.T) (*Handlers, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return &Handlers{
		Rdb:            rdb,
		HealthAdminKey: "test-admin-key",
	}, mr
}

func decode(t *testing.T, body io.Reader, v interface{}) {
	b, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, v))
}

func TestReset_Unauthorized(t *testing.T) {
	h, _ := setupHealthHandlers(t)
	app := fiber.New()
	app.Get("/reset", h.Reset)

	resp, err := app.Test(httptest.NewRequest("GET", "/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	var out map[string]interface{}
	decode(t, resp.Body, &out)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "Unauthorized", out["error"].(map[string]interface{})["message"])

	resp2, err := app.Test(httptest.NewRequest("GET", "/reset?key=wrong", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp2.StatusCode)
}

func TestReset_Success(t *testing.T) {
	h, _ := setupHealthHandlers(t)
	app := fiber.New()
	app.Get("/reset", h.Reset)

	ctx := context.Background()
	require.NoError(t, h.Rdb.Set(ctx, middleware.KeyReqTotal, "5", 0).Err())
	resp, err := app.Test(httptest.NewRequest("GET", "/reset?key=test-admin-key", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	decode(t, resp.Body, &out)
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, "Stats reset successfully", out["message"])

	_, err = h.Rdb.Get(ctx, middleware.KeyReqTotal).Result()
	assert.Error(t, err)
	_, err = h.Rdb.Get(ctx, middleware.KeyStartTime).Result()
	assert.NoError(t, err)
}

func TestReset_BcryptKey(t *testing.T) {
	h, _ := setupHealthHandlers(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	h.HealthAdminKey = string(hash)
	app := fiber.New()
	app.Get("/reset", h.Reset)

	resp, err := app.Test(httptest.NewRequest("GET", "/reset?key=s3cret", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/reset?key="+string(hash), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestJSON_ReturnsStructure(t *testing.T) {
	h, _ := setupHealthHandlers(t)
	app := fiber.New()
	app.Get("/health/json", h.JSON)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/json", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	decode(t, resp.Body, &out)
	assert.Equal(t, "mliang-listings-api", out["service"])
	assert.Contains(t, out, "status")
	assert.Contains(t, out, "runtime")
	assert.Contains(t, out, "traffic")
	deps := out["dependencies"].(map[string]interface{})
	assert.Contains(t, deps, "supabase")
	assert.Equal(t, "connected", deps["redis"].(map[string]interface{})["status"])
}

func TestSummary(t *testing.T) {
	h, _ := setupHealthHandlers(t)
	app := fiber.New()
	app.Get("/", h.Summary)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var out struct {
		Data struct {
			Service      string            `json:"service"`
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		} `json:"data"`
	}
	decode(t, resp.Body, &out)
	assert.Equal(t, ServiceName, out.Data.Service)
	assert.Equal(t, "issue", out.Data.Status)
	assert.Equal(t, "connected", out.Data.Dependencies["redis"])
}

func TestErrors_ReturnsArray(t *testing.T) {
	h, _ := setupHealthHandlers(t)
	app := fiber.New()
	app.Get("/health/errors", h.Errors)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/errors", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var arr []interface{}
	decode(t, resp.Body, &arr)
	assert.Empty(t, arr)

	h.Rdb.LPush(context.Background(), middleware.KeyErrorLog, `{"time":"2024-01-01T12:00:00Z","path":"/api","method":"GET","message":"test"}`)
	resp2, err := app.Test(httptest.NewRequest("GET", "/health/errors", nil))
	require.NoError(t, err)
	var arr2 []map[string]interface{}
	decode(t, resp2.Body, &arr2)
	assert.Len(t, arr2, 1)
	assert.Equal(t, "test", arr2[0]["message"])
}

func TestHealthMarker_RecordsFailures(t *testing.T) {
	h, mr := setupHealthHandlers(t)
	app := fiber.New()
	app.Use(middleware.HealthMarker(h.Rdb))
	app.Get("/api/v1/boom", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fiber.Map{"message": "kaboom"}})
	})
	app.Get("/api/v1/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/health/errors", h.Errors)

	for _, p := range []string{"/api/v1/ok", "/api/v1/boom"} {
		_, err := app.Test(httptest.NewRequest("GET", p, nil))
		require.NoError(t, err)
	}
	total, _ := mr.Get(middleware.KeyReqTotal)
	failed, _ := mr.Get(middleware.KeyReqErrors)
	assert.Equal(t, "2", total)
	assert.Equal(t, "1", failed)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/errors", nil))
	require.NoError(t, err)
	var arr []map[string]interface{}
	decode(t, resp.Body, &arr)
	require.Len(t, arr, 1)
	assert.Equal(t, "kaboom", arr[0]["message"])
	assert.Equal(t, "/api/v1/boom", arr[0]["path"])
}
