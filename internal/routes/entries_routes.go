package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/epicollect5/epicollect5-server-sub006/config"
	"github.com/epicollect5/epicollect5-server-sub006/internal/handlers"
)

func SetupEntries(app *fiber.App, cfg config.Config) {
	api := app.Group("/api/projects/:slug")

	api.Post("/upload", handlers.Upload())
	api.Get("/entries", handlers.BrowseEntries(cfg))
	api.Delete("/entries/:uuid", handlers.DeleteEntry())

	api.Get("/export/entries", handlers.ExportEntries(cfg))
	api.Get("/export/entries.csv", handlers.ExportEntriesCSV(cfg))
}
