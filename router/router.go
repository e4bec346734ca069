package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/opsmesh/watchtower-backend/config"
	"github.com/opsmesh/watchtower-backend/handlers"
	"github.com/opsmesh/watchtower-backend/middleware"
	"github.com/opsmesh/watchtower-backend/services"
)

// Dependencies holds everything needed to wire the HTTP routes.
type Dependencies struct {
	Config        *config.Config
	Tracker       *services.ErrorTracker
	RateLimiter   services.RateLimiterInterface
	ErrorHandler  *handlers.ErrorHandler
	HealthHandler *handlers.HealthHandler
	Logger        *zap.SugaredLogger
}

// SetupRouter configures and returns the main Gin engine with all routes
// defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler(deps.Tracker))
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))

	// Probe and metrics routes
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		errorRoutes := v1.Group("/errors")
		{
			errorRoutes.POST("",
				middleware.IngestRateLimiter(deps.RateLimiter, deps.Config.Tracker.IngestRequestsPerMinute),
				deps.ErrorHandler.ReportErrorHandler,
			)
			errorRoutes.GET("/patterns", deps.ErrorHandler.ErrorPatternsHandler)
			errorRoutes.GET("/recent", deps.ErrorHandler.RecentErrorsHandler)
		}

		v1.GET("/health/report", deps.HealthHandler.SystemHealthReportHandler)
		v1.PUT("/components/:component/health", deps.HealthHandler.UpdateComponentHealthHandler)
	}

	return r
}
