package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hyson0807/isolog/internal/services"
)

func (handler *Handler) GetPreferences(c *fiber.Ctx) error {
	return c.JSON(preferencesView{Preferences: handler.engine.Preferences()})
}

func (handler *Handler) UpdatePreferences(c *fiber.Ctx) error {
	update := services.PreferencesUpdate{}
	if err := c.BodyParser(&update); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	preferences, permission, err := handler.engine.UpdatePreferences(c.UserContext(), update)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(preferencesView{Preferences: preferences, Permission: permission})
}

func (handler *Handler) EnableNotifications(c *fiber.Ctx) error {
	preferences, permission, err := handler.engine.SetNotificationsEnabled(c.UserContext(), true)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(preferencesView{Preferences: preferences, Permission: permission})
}
