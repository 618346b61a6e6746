package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clearport/import-console/internal/api/handler"
	"github.com/clearport/import-console/internal/core/service"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// db and rdb may be nil; the readiness probe only checks wired dependencies.
func NewRouter(sessions *service.SessionManager, db *mongo.Database, rdb *redis.Client, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("importconsole"))

	// --- Health probes and metrics ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Shipment edit routes ---
	editHandler := handler.NewEditHandler(sessions)

	v1 := e.Group("/v1")
	v1.GET("/shipments/:id", editHandler.Get)
	v1.GET("/shipments/:id/status", editHandler.GetStatus)
	v1.GET("/shipments/:id/update-state", editHandler.GetUpdateState)
	v1.GET("/shipments/:id/containers/:index/detention", editHandler.GetDetention)
	v1.PATCH("/shipments/:id/milestones", editHandler.EditMilestone)
	v1.PATCH("/shipments/:id/containers/:index", editHandler.EditContainer)
	v1.PUT("/shipments/:id/free-time", editHandler.SetFreeTime)

	return e
}
