package route

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fonsecaaso/tinylink/internal/handler"
	"github.com/fonsecaaso/tinylink/internal/middleware"
	"github.com/fonsecaaso/tinylink/internal/tracing"
)

// SetupRouter wires the dev backend: the link API, /healthz, /metrics and the
// short code redirect
func SetupRouter(linkHandler *handler.LinkHandler, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.MetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", tracing.RequestIDHeader, "traceparent"},
		ExposeHeaders: []string{"Content-Length", tracing.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/healthz", linkHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/links")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	api.GET("", linkHandler.ListLinks)
	api.POST("", linkHandler.CreateLink)
	api.GET("/:code", linkHandler.GetLink)
	api.DELETE("/:code", linkHandler.DeleteLink)

	r.GET("/:code", linkHandler.Redirect)

	return r
}
