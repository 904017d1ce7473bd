package handler

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"

	"briefapi/internal/http/middleware"
	"briefapi/internal/ingest"
	"briefapi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "STORAGE_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps service and pipeline failures onto the error envelope.
// Only validation messages reach the client verbatim.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "media not found")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	}

	switch ingest.CodeOf(err) {
	case ingest.CodeValidation:
		return writeError(c, fiber.StatusBadRequest, string(ingest.CodeValidation), validationMessage(err))
	case ingest.CodeStorage:
		return writeError(c, fiber.StatusBadGateway, string(ingest.CodeStorage), "object storage is unavailable")
	case ingest.CodePersistence:
		return writeError(c, fiber.StatusInternalServerError, string(ingest.CodePersistence), "failed to save media metadata")
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

func validationMessage(err error) string {
	var e *ingest.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return "invalid upload"
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, string(ingest.CodeValidation), "file too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
