package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"wanderlust/internal/http/middleware"
	"wanderlust/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
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
// - code: machine-readable short error code (e.g., "VALIDATION_ERROR", "NOT_FOUND")
// - message: human-readable safe message (no internal details)
// - redirect: where a browser client should go next, may be empty
func writeError(c *fiber.Ctx, status int, code, message, redirect string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:     code,
			Message:  message,
			Redirect: redirect,
		},
	}
	return c.Status(status).JSON(res)
}

const (
	msgNotFound        = "Listing you requested for does not exist!"
	msgForbidden       = "You don't have permission to do that"
	msgUnauthenticated = "You must be logged in to do that"
	msgUnavailable     = "service temporarily unavailable, please retry"
	msgInternal        = "internal server error"
)

// writeServiceError translates a service error. listingID picks the redirect target
// for errors that leave the listing in place.
func writeServiceError(c *fiber.Ctx, err error, listingID string) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", ve.Reason, "")
	case errors.Is(err, service.ErrValidation):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid input", "")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", msgNotFound, listingsPath)
	case errors.Is(err, service.ErrUnauthenticated):
		return writeError(c, fiber.StatusUnauthorized, "UNAUTHENTICATED", msgUnauthenticated, loginPath)
	case errors.Is(err, service.ErrForbidden):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", msgForbidden, listingPath(listingID))
	case errors.Is(err, service.ErrPersistence):
		return writeError(c, fiber.StatusServiceUnavailable, "PERSISTENCE_ERROR", msgUnavailable, "")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", msgInternal, "")
	}
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
			return writeError(c, status, "BAD_REQUEST", "bad request", "")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHENTICATED", msgUnauthenticated, loginPath)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found", "")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed", "")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large", "")
		default:
			return writeError(c, status, "INTERNAL_ERROR", msgInternal, "")
		}
	}
}
