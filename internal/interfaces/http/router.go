// Package http exposes molgrid over HTTP with gin.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgrid/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molgrid/internal/interfaces/http/handlers"
	"github.com/turtacn/molgrid/internal/interfaces/http/middleware"
)

type RouterConfig struct {
	GridHandler   *handlers.GridHandler
	HealthHandler *handlers.HealthHandler

	Logging middleware.LoggingConfig
	// Observer receives per-request metrics when set.
	Observer middleware.HTTPObserver

	// RateLimit applies to /api/v1 only.
	RateLimit middleware.RateLimitConfig

	Logger           logging.Logger
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter builds the gin engine. The gin mode is process-global and is
// set by the caller.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	}
	if cfg.Observer != nil {
		r.Use(middleware.Metrics(cfg.Observer))
	}

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.RateLimit.Enabled() {
		api.Use(middleware.RateLimit(middleware.NewClientLimiter(cfg.RateLimit)))
	}
	if cfg.GridHandler != nil {
		cfg.GridHandler.RegisterRoutes(api)
	}
	return r
}

//Personal.AI order the ending
