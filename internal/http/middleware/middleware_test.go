package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())

	app.Get("/test", func(c *fiber.Ctx) error {
		rid := c.Locals(RequestIDLocalKey)
		return c.SendString(rid.(string))
	})

	t.Run("should generate new request id if not present", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		ridHeader := resp.Header.Get(RequestIDHeader)
		assert.NotEmpty(t, ridHeader)

		// Check if it's readable in handler (from response body)
		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, ridHeader, buf.String())
	})

	t.Run("should preserve existing request id", func(t *testing.T) {
		existingID := "test-id-123"
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, existingID)

		resp, _ := app.Test(req)

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, existingID, resp.Header.Get(RequestIDHeader))

		buf := new(bytes.Buffer)
		buf.ReadFrom(resp.Body)
		assert.Equal(t, existingID, buf.String())
	})

	t.Run("should replace unusable request id", func(t *testing.T) {
		for _, bad := range []string{"has space", strings.Repeat("x", 129)} {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set(RequestIDHeader, bad)

			resp, err := app.Test(req)
			assert.NoError(t, err)

			rid := resp.Header.Get(RequestIDHeader)
			assert.NotEqual(t, bad, rid)
			_, perr := uuid.Parse(rid)
			assert.NoError(t, perr)
		}
	})
}

func TestValidRequestID(t *testing.T) {
	assert.True(t, validRequestID("abc-123_DEF.4"))
	assert.True(t, validRequestID(strings.Repeat("a", maxRequestIDLength)))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID(strings.Repeat("a", maxRequestIDLength+1)))
	assert.False(t, validRequestID("café"))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	loc := time.UTC

	// Logger usually depends on RequestID for request_id field
	app.Use(RequestID())
	app.Use(LoggerWithWriter(&buf, loc))

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusAccepted)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	// Verify log output
	var logData map[string]any
	err := json.Unmarshal(buf.Bytes(), &logData)
	assert.NoError(t, err)

	assert.NotEmpty(t, logData["request_id"])
	assert.Equal(t, "GET", logData["method"])
	assert.Equal(t, "/test", logData["path"])
	assert.Equal(t, float64(fiber.StatusAccepted), logData["status"])
	assert.NotNil(t, logData["latency"])
	assert.NotEmpty(t, logData["ts"])
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(LoggerWithWriter(&buf, time.UTC))

	app.Get("/missing", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadGateway, "upstream")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		path   string
		level  string
		status float64
	}{
		{"/ok", "info", 200},
		{"/missing", "warn", 404},
		{"/boom", "error", 502},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()
			_, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			assert.NoError(t, err)

			var logData map[string]any
			assert.NoError(t, json.Unmarshal(buf.Bytes(), &logData))
			assert.Equal(t, tt.level, logData["level"])
			assert.Equal(t, tt.status, logData["status"])
			assert.Equal(t, "request", logData["message"])
		})
	}
}
