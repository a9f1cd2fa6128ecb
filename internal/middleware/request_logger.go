package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RequestLogger attaches a zerolog logger tagged with the request id to the
// user context, so log.Ctx in services carries it. Run it after requestid.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := log.With().
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Logger()
		c.SetUserContext(logger.WithContext(c.UserContext()))
		return c.Next()
	}
}
