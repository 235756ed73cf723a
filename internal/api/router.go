package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/auth"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/config"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/metrics"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/service"
)

// ServiceName is reported by /health and attached to every log line
const ServiceName = "editorial-api"

// HealthCheck pings one dependency
type HealthCheck func(ctx context.Context) error

// Options carries the router collaborators that are optional in tests
type Options struct {
	Resolver *auth.Resolver
	Limiter  *RateLimiter
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
	Health   map[string]HealthCheck
}

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, opts Options) *gin.Engine {
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(metricsMiddleware(opts.Metrics))
	router.Use(corsMiddleware(cfg.Server.CORSOrigins))

	// Handlers
	articleHandler := NewArticleHandler(services, log)
	moduleHandler := NewModuleHandler(services, log)
	taxonomyHandler := NewTaxonomyHandler(services, log)

	// Health check
	router.GET("/health", healthCheck(opts.Health))
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(opts.Gatherer)))
	}

	// API v1
	v1 := router.Group("/v1")
	{
		articles := v1.Group("/articles")
		{
			articles.GET("", articleHandler.List)
			articles.GET("/by-ids", articleHandler.ByIDs)
			articles.GET("/:ref", articleHandler.GetPublished)
		}
		v1.GET("/modules", moduleHandler.ListLive)
		v1.GET("/taxonomy/:kind", taxonomyHandler.List)

		// Editorial endpoints
		editor := v1.Group("/editor")
		editor.Use(identityMiddleware(opts.Resolver))
		if opts.Limiter != nil {
			editor.Use(opts.Limiter.Middleware())
		}
		{
			ea := editor.Group("/articles")
			{
				ea.GET("", articleHandler.ListEditorial)
				ea.POST("", articleHandler.Create)
				ea.GET("/:id", articleHandler.Get)
				ea.PATCH("/:id", articleHandler.Update)
				ea.DELETE("/:id", articleHandler.Delete)
				ea.POST("/:id/submit", articleHandler.Submit)
				ea.POST("/:id/approve", articleHandler.Approve)
				ea.POST("/:id/reject", articleHandler.Reject)
				ea.POST("/:id/publish-now", articleHandler.PublishNow)
				ea.POST("/:id/schedule", articleHandler.Schedule)
				ea.POST("/:id/widgets/move", articleHandler.MoveWidget)
				ea.GET("/:id/versions", articleHandler.Versions)
				ea.POST("/:id/preview-token", articleHandler.PreviewToken)
			}

			em := editor.Group("/modules")
			{
				em.GET("", moduleHandler.List)
				em.POST("", moduleHandler.Create)
				em.GET("/:id", moduleHandler.Get)
				em.PATCH("/:id", moduleHandler.Update)
				em.DELETE("/:id", moduleHandler.Delete)
				em.POST("/:id/replace-items", moduleHandler.ReplaceItems)
				em.POST("/:id/copy-items", moduleHandler.CopyItems)
				em.POST("/:id/bulk-fill", moduleHandler.BulkFill)
			}

			editor.POST("/taxonomy/:kind", taxonomyHandler.Create)
		}
	}

	return router
}

// healthCheck pings every dependency and reports 503 when one fails
func healthCheck(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		health := "healthy"
		if status != http.StatusOK {
			health = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":    health,
			"checks":    results,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   ServiceName,
		})
	}
}
