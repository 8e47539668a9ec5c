// Package http exposes the fitted dataset and the observation intake over a
// gin router.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/fishlwr/internal/interfaces/http/handlers"
	"github.com/turtacn/fishlwr/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware of the route tree.
// Nil handlers leave their routes unmounted.
type RouterConfig struct {
	SpeciesHandler     *handlers.SpeciesHandler
	ObservationHandler *handlers.ObservationHandler
	HealthHandler      *handlers.HealthHandler

	Logging   middleware.LoggingConfig
	RateLimit *middleware.RateLimitConfig

	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
	Metrics          *prometheus.PipelineMetrics
}

// NewRouter builds the gin engine.  The caller sets gin's mode beforehand.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(logger, cfg.Logging, cfg.Metrics))
	if cfg.RateLimit != nil && cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimit(*cfg.RateLimit))
	}

	if h := cfg.HealthHandler; h != nil {
		r.GET("/healthz", h.Liveness)
		r.GET("/readyz", h.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	registerSpeciesRoutes(api, cfg.SpeciesHandler)
	registerObservationRoutes(api, cfg.ObservationHandler)

	return r
}

func registerSpeciesRoutes(g *gin.RouterGroup, h *handlers.SpeciesHandler) {
	if h == nil {
		return
	}
	sp := g.Group("/species")
	sp.GET("", h.List)
	sp.GET("/:id", h.Get)
	sp.GET("/:id/predict", h.Predict)
}

func registerObservationRoutes(g *gin.RouterGroup, h *handlers.ObservationHandler) {
	if h == nil {
		return
	}
	g.POST("/observations", h.Submit)
}

//Personal.AI order the ending
