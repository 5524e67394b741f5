package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api", handler.AuthRequired)

	api.Get("/today", handler.GetToday)
	api.Get("/summary", handler.GetSummary)
	api.Post("/reconcile", handler.Reconcile)
	api.Get("/reminders", handler.GetReminders)

	days := api.Group("/days")
	days.Get("", handler.GetMonth)
	days.Get("/:date", handler.GetDay)
	days.Post("/:date/taken", handler.ToggleTaken)

	api.Get("/schedule", handler.GetSchedule)
	api.Put("/schedule", handler.UpdateSchedule)
	api.Post("/onboarding", handler.Onboarding)

	conflicts := api.Group("/conflicts")
	conflicts.Get("", handler.GetConflicts)
	conflicts.Post("/:date", handler.AddConflict)
	conflicts.Delete("/:date", handler.RemoveConflict)
	conflicts.Post("/:date/toggle", handler.ToggleConflict)

	skin := api.Group("/skin")
	skin.Get("/:date", handler.GetSkinRecord)
	skin.Put("/:date", handler.SaveSkinRecord)
	skin.Delete("/:date", handler.DeleteSkinRecord)

	api.Get("/preferences", handler.GetPreferences)
	api.Put("/preferences", handler.UpdatePreferences)
	api.Post("/notifications/enable", handler.EnableNotifications)

	lifecycle := api.Group("/lifecycle")
	lifecycle.Post("/active", handler.BecameActive)
	lifecycle.Post("/background", handler.EnteredBackground)
	lifecycle.Post("/permission", handler.ReportPermission)
}
