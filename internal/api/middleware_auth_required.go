package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hyson0807/isolog/internal/security"
)

func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	key := clientKey(c)
	now := handler.now()
	if handler.authFailures.blocked(key, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too many attempts")
	}

	raw := security.BearerToken(c.Get(fiber.HeaderAuthorization))
	claims, err := security.ParseAPIToken(handler.secretKey, raw, now)
	if err != nil {
		handler.authFailures.record(key, now)
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	handler.authFailures.clear(key)

	c.Locals(contextSubjectKey, claims.Subject)
	return c.Next()
}
