package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports readiness by pinging the primary store. The
// search index is deliberately excluded: the API stays up and degrades
// to 503 on /search when the engine is down.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a bare liveness endpoint.
func LivenessProbe(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// RegisterRoutes attaches all HTTP routes. Everything under /api/v1
// requires authentication.
func RegisterRoutes(app *fiber.App, db *sql.DB, h *Handler, auth fiber.Handler) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe)

	api := app.Group("/api/v1", auth)

	docs := api.Group("/documents")
	docs.Post("/", h.UploadDocument)
	docs.Get("/search", h.SearchDocuments)
	docs.Get("/shared", h.ListShared)
	docs.Get("/trash", h.ListTrash)
	docs.Delete("/trash", h.EmptyTrash)
	docs.Get("/:id", h.GetDocument)
	docs.Patch("/:id", h.UpdateDocument)
	docs.Delete("/:id", h.TrashDocument)
	docs.Post("/:id/restore", h.RestoreDocument)
	docs.Delete("/:id/purge", h.PurgeDocument)
	docs.Post("/:id/share", h.ShareDocument)
	docs.Delete("/:id/share/:userId", h.UnshareDocument)
	docs.Get("/:id/download", h.DownloadDocument)
}
