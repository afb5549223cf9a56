package hosting

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// quietPaths are polled often and only logged at debug level.
var quietPaths = []string{"/health", "/metrics", "/api/jobs"}

// LogAllRequestsMiddleware logs every request with its status and duration.
func LogAllRequestsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				status = e.Code
			}
		}

		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", duration.String(),
		}
		switch {
		case status >= 500:
			slog.Error("HTTP request", append(attrs, "error", err)...)
		case status >= 400:
			slog.Warn("HTTP request", attrs...)
		case isQuiet(c.Path()):
			slog.Debug("HTTP request", attrs...)
		default:
			slog.Info("HTTP request", attrs...)
		}
		return err
	}
}

func isQuiet(path string) bool {
	for _, p := range quietPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
