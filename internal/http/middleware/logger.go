package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"briefapi/internal/logger"
)

// Logger is a middleware that logs each HTTP request as one JSON line.
// Fields:
// - request_id (taken from context locals set by RequestID middleware)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
//
// 5xx responses log at error level, 4xx at warn.
func Logger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		ev := log.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = log.Error()
		case status >= fiber.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("request_id", rid).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Float64("latency", float64(time.Since(start).Microseconds())/1000).
			Msg("request")

		return err
	}
}

// LoggerWithWriter is Logger writing to w with timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	return Logger(logger.NewWithWriter(w, "info", loc))
}
