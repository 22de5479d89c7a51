package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"ridebid/internal/handler"
	"ridebid/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RequestHandler *handler.RequestHandler
	BidHandler     *handler.BidHandler
	DriverHandler  *handler.DriverHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		requests := v1.Group("/ride-requests")
		{
			requests.POST("", deps.RequestHandler.Create)
			requests.GET("", deps.RequestHandler.List)
			requests.GET("/nearby", deps.RequestHandler.Nearby)
			requests.GET("/user", deps.RequestHandler.ListByUser)
			requests.GET("/:id", deps.RequestHandler.Get)
			requests.POST("/:id/approve", deps.RequestHandler.Approve)
			requests.POST("/:id/status", deps.RequestHandler.UpdateStatus)
			requests.POST("/:id/message", deps.RequestHandler.Message)
			requests.POST("/:id/location", deps.RequestHandler.Location)
			requests.POST("/:id/bids", deps.BidHandler.Submit)
			requests.POST("/:id/bids/status", deps.BidHandler.SetStatus)
		}

		drivers := v1.Group("/drivers")
		{
			drivers.POST("/:id/presence", deps.DriverHandler.UpdatePresence)
		}
	}

	return router
}
