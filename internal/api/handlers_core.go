package api

import "github.com/gofiber/fiber/v2"

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) GetToday(c *fiber.Ctx) error {
	today := handler.engine.Today()
	return c.JSON(fiber.Map{
		"today":              today.Format("2006-01-02"),
		"day":                handler.engine.DayDetail(today),
		"schedule":           handler.scheduleView(),
		"preferences":        handler.engine.Preferences(),
		"upcoming_dose_days": dayKeys(handler.engine.UpcomingDoseDays()),
	})
}

func (handler *Handler) GetSummary(c *fiber.Ctx) error {
	return c.JSON(handler.engine.Summary())
}

func (handler *Handler) Reconcile(c *fiber.Ctx) error {
	return c.JSON(handler.engine.Reconcile(c.UserContext()))
}

func (handler *Handler) GetReminders(c *fiber.Ctx) error {
	if handler.notifications == nil {
		return apiError(c, fiber.StatusNotFound, "local scheduler not available")
	}
	return c.JSON(fiber.Map{"reminders": handler.notifications.Armed()})
}
