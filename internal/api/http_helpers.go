package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hyson0807/isolog/internal/services"
)

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// engineError maps engine sentinel errors onto HTTP statuses.
func engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInterval):
		return apiError(c, fiber.StatusBadRequest, "invalid interval")
	case errors.Is(err, services.ErrInvalidDate):
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	case errors.Is(err, services.ErrInvalidSeverity):
		return apiError(c, fiber.StatusBadRequest, "invalid severity")
	case errors.Is(err, services.ErrSkinNoteTooLong):
		return apiError(c, fiber.StatusBadRequest, "note is too long")
	case errors.Is(err, services.ErrInvalidReminderTime):
		return apiError(c, fiber.StatusBadRequest, "invalid reminder time")
	case errors.Is(err, services.ErrScheduleAlreadySet):
		return apiError(c, fiber.StatusConflict, "schedule already set")
	default:
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}
}

func dayKeys(days []time.Time) []string {
	keys := make([]string, 0, len(days))
	for _, day := range days {
		keys = append(keys, services.DayKey(day))
	}
	return keys
}
