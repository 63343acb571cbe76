package http

import (
	"github.com/gin-gonic/gin"

	"github.com/budwatch/backend/config"
	"github.com/budwatch/backend/internal/pkg/logger"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log *logger.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		products := v1.Group("/products")
		{
			products.POST("/parse", handler.ParseProduct)
		}

		deals := v1.Group("/deals")
		{
			deals.GET("", handler.ListDeals)
			deals.POST("/run", handler.RunDeals)
		}
	}

	return router
}
