package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hyson0807/isolog/internal/services"
)

func (handler *Handler) GetSchedule(c *fiber.Ctx) error {
	return c.JSON(handler.scheduleView())
}

func (handler *Handler) UpdateSchedule(c *fiber.Ctx) error {
	input := scheduleInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	if err := handler.engine.UpdateSchedule(c.UserContext(), input.Interval); err != nil {
		return engineError(c, err)
	}
	return c.JSON(handler.scheduleView())
}

func (handler *Handler) Onboarding(c *fiber.Ctx) error {
	input := onboardingInput{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	lastDose, err := parseDayParam(input.LastDoseDate, handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid last dose date")
	}
	if err := handler.engine.SeedSchedule(c.UserContext(), input.Interval, lastDose); err != nil {
		return engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(handler.scheduleView())
}

func (handler *Handler) scheduleView() scheduleView {
	schedule := handler.engine.Schedule()
	return scheduleView{
		Cadence:          schedule.Cadence(),
		IntervalDays:     schedule.IntervalDays,
		ReferenceDate:    schedule.ReferenceDate,
		UpcomingDoseDays: dayKeys(handler.engine.UpcomingDoseDays()),
	}
}

func (handler *Handler) GetConflicts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"dates": handler.engine.ConflictDates()})
}

func (handler *Handler) AddConflict(c *fiber.Ctx) error {
	day, err := parseDayParam(c.Params("date"), handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	added := handler.engine.AddConflict(day)
	status := fiber.StatusOK
	if added {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"date": services.DayKey(day), "conflict": true, "dates": handler.engine.ConflictDates()})
}

func (handler *Handler) RemoveConflict(c *fiber.Ctx) error {
	day, err := parseDayParam(c.Params("date"), handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	if !handler.engine.RemoveConflict(day) {
		return apiError(c, fiber.StatusNotFound, "conflict not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) ToggleConflict(c *fiber.Ctx) error {
	day, err := parseDayParam(c.Params("date"), handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	declared := handler.engine.ToggleConflict(day)
	return c.JSON(fiber.Map{"date": services.DayKey(day), "conflict": declared, "dates": handler.engine.ConflictDates()})
}
