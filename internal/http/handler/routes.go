package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doccatalog/internal/http/middleware"
	"doccatalog/internal/identity"
	"doccatalog/internal/service"
)

// Dependencies are the collaborators the HTTP layer needs. DB, Storage,
// Verifier and Metrics may be nil; the matching checks or routes are skipped.
type Dependencies struct {
	DB       Pinger
	Storage  BucketChecker
	Buckets  []string
	Service  service.DocumentService
	Verifier identity.Verifier
	Metrics  prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Document routes require a bearer token when a Verifier is configured.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/health", HealthCheck(deps.DB, deps.Storage, deps.Buckets...))
	app.Get("/healthz", LivenessProbe())

	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	docs := app.Group("/documents")
	if deps.Verifier != nil {
		docs.Use(middleware.Auth(deps.Verifier))
	}

	docs.Get("/", ListDocuments(deps.Service))
	docs.Put("/local/:localId", ReconcileDocument(deps.Service))
	docs.Get("/local/:localId", GetDocumentByLocalID(deps.Service))
	docs.Get("/:id", GetDocument(deps.Service))
	docs.Get("/:id/download", DownloadDocument(deps.Service))
	docs.Delete("/:id", DeleteDocument(deps.Service))
}
