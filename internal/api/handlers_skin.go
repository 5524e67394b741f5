package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/hyson0807/isolog/internal/models"
)

func (handler *Handler) GetSkinRecord(c *fiber.Ctx) error {
	day, err := parseDayParam(c.Params("date"), handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	record, ok := handler.engine.SkinRecord(day)
	if !ok {
		return apiError(c, fiber.StatusNotFound, "skin record not found")
	}
	return c.JSON(record)
}

func (handler *Handler) SaveSkinRecord(c *fiber.Ctx) error {
	day, err := parseDayParam(c.Params("date"), handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	input := models.SkinRecord{}
	if err := c.BodyParser(&input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	saved, err := handler.engine.SaveSkinRecord(day, input)
	if err != nil {
		return engineError(c, err)
	}
	return c.JSON(saved)
}

func (handler *Handler) DeleteSkinRecord(c *fiber.Ctx) error {
	day, err := parseDayParam(c.Params("date"), handler.location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid date")
	}
	if !handler.engine.DeleteSkinRecord(day) {
		return apiError(c, fiber.StatusNotFound, "skin record not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
