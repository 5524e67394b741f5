package api

import (
	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) BecameActive(c *fiber.Ctx) error {
	handler.engine.BecameActive(c.UserContext())
	today := handler.engine.Today()
	return c.JSON(fiber.Map{
		"today":       today.Format("2006-01-02"),
		"preferences": handler.engine.Preferences(),
	})
}

func (handler *Handler) EnteredBackground(c *fiber.Ctx) error {
	handler.engine.EnteredBackground()
	return c.SendStatus(fiber.StatusNoContent)
}

// ReportPermission records the OS permission state. A revocation turns
// notifications off at once; a grant for a pending request waits for the next
// foreground edge.
func (handler *Handler) ReportPermission(c *fiber.Ctx) error {
	if handler.notifications == nil {
		return apiError(c, fiber.StatusNotFound, "local scheduler not available")
	}
	input := permissionInput{}
	if err := c.BodyParser(&input); err != nil || !input.State.Valid() {
		return apiError(c, fiber.StatusBadRequest, "invalid permission state")
	}
	if err := handler.notifications.SetPermission(input.State); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid permission state")
	}
	result := handler.engine.PermissionChanged(c.UserContext())
	return c.JSON(fiber.Map{
		"state":       input.State,
		"preferences": handler.engine.Preferences(),
		"reconcile":   result,
	})
}
