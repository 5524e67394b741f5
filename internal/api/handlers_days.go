package api

import (
	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) GetMonth(c *fiber.Ctx) error {
	month, err := parseMonthQuery(c.Query("month"), handler.engine.Today(), handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid month")
	}
	return c.JSON(fiber.Map{
		"month": month.Format("2006-01"),
		"days":  handler.engine.MonthDayViews(month),
	})
}

func (handler *Handler) GetDay(c *fiber.Ctx) error {
	day, err := parseDayParam(c.Params("date"), handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	return c.JSON(handler.engine.DayDetail(day))
}

func (handler *Handler) ToggleTaken(c *fiber.Ctx) error {
	day, err := parseDayParam(c.Params("date"), handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	if !handler.engine.CanEdit(day) {
		return apiError(c, fiber.StatusForbidden, "date is not editable")
	}

	taken := handler.engine.ToggleTaken(c.UserContext(), day)
	return c.JSON(fiber.Map{
		"date":  day.Format("2006-01-02"),
		"taken": taken,
		"day":   handler.engine.DayDetail(day),
	})
}
