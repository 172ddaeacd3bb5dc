package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	Mode   string // "none" or "api-key"
	APIKey string
}

// probePaths are exempt from auth and audit logging.
var probePaths = map[string]bool{
	"/":         true,
	"/healthz":  true,
	"/readyz":   true,
	"/metrics":  true,
	"/api/test": true,
}

// newAuthMiddleware validates the Authorization bearer token when api-key
// mode is enabled. Probe paths stay open in every mode.
func newAuthMiddleware(cfg AuthConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Mode != "api-key" || probePaths[c.Path()] {
			return c.Next()
		}

		header := c.Get("Authorization")
		if header == "" {
			return errorStatus(c, fiber.StatusUnauthorized, "Authorization header is required")
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return errorStatus(c, fiber.StatusUnauthorized, "Authorization header must use Bearer scheme")
		}

		if cfg.APIKey == "" ||
			subtle.ConstantTimeCompare([]byte(token), []byte(cfg.APIKey)) != 1 {
			logger.Warn().
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("unauthorized request: invalid API key")
			return errorStatus(c, fiber.StatusUnauthorized, "Invalid API key")
		}

		return c.Next()
	}
}

// errorStatus writes a non-200 error envelope.
func errorStatus(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(ErrorResponse{Status: "error", Message: message})
}
