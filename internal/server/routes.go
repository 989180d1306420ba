package server

import (
	"github.com/gofiber/fiber/v2"

	"sitemirror/internal/core/job"
	"sitemirror/internal/core/mirror"
	"sitemirror/internal/health"
	"sitemirror/internal/platform/redis"
)

type Dependencies struct {
	Job    *job.Service
	Mirror *mirror.Service
	Redis  *redis.Service
}

func RegisterRoutes(app *fiber.App, d Dependencies) *health.Handler {
	healthHandler := health.NewHandler(d.Redis)
	app.Get("/v1/health", health.Limiter(), healthHandler.HandleHealth)

	api := app.Group("/v1")

	mirrorHandler := mirror.NewHandler(d.Job, d.Mirror, d.Redis)
	api.Post("/mirrors", mirrorHandler.HandleCreate)
	api.Get("/mirrors/:jobId", mirrorHandler.HandleGet)
	api.Delete("/mirrors/:jobId", mirrorHandler.HandleCancel)
	api.Get("/mirrors/:jobId/logs", mirrorHandler.HandleStreamLogs)

	return healthHandler
}
