package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prasenjit/go-mockapi/internal/engine"
	"github.com/prasenjit/go-mockapi/internal/proxy"
	"github.com/prasenjit/go-mockapi/internal/stats"
	"github.com/prasenjit/go-mockapi/internal/storage"
	"github.com/prasenjit/go-mockapi/internal/tracing"
)

// Router serves the admin API under /_api and hands everything else to the mock server
type Router struct {
	engine     *gin.Engine
	handler    *Handler
	mockServer *proxy.Server
	wsHandler  *tracing.WebSocketHandler
}

// NewRouter creates a new router
func NewRouter(store storage.Storage, eng *engine.Engine, statsCollector *stats.Collector, tracingService *tracing.Service, mockServer *proxy.Server, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:     gin.New(),
		handler:    NewHandler(store, eng, statsCollector, tracingService, mockServer, logger),
		mockServer: mockServer,
		wsHandler:  tracing.NewWebSocketHandler(tracingService, logger),
	}

	r.engine.Use(gin.Recovery())
	r.engine.Use(corsMiddleware())

	r.setupRoutes()

	return r
}

// setupRoutes configures all routes
func (r *Router) setupRoutes() {
	api := r.engine.Group("/_api", gin.Logger())
	{
		// Collections and endpoints
		api.GET("/collections", r.handler.ListCollections)
		api.POST("/collections", r.handler.CreateCollection)
		api.GET("/collections/:id", r.handler.GetCollection)
		api.GET("/collections/:id/endpoints", r.handler.ListEndpoints)
		api.POST("/collections/:id/endpoints", r.handler.CreateEndpoint)
		api.GET("/endpoints/:id", r.handler.GetEndpoint)

		// Authoring helpers
		api.POST("/evaluate", r.handler.Evaluate)
		api.POST("/import", r.handler.Import)
		api.GET("/tags", r.handler.ListTags)
		api.GET("/scenario-presets", r.handler.ListScenarioPresets)
		api.GET("/samples", r.handler.ListSamples)

		// Statistics
		api.GET("/stats", r.handler.GetGlobalStats)
		api.GET("/stats/collections/:id", r.handler.GetCollectionStats)
		api.GET("/stats/endpoints/:id", r.handler.GetEndpointStats)
		api.POST("/stats/reset", r.handler.ResetStats)

		// Tracing
		api.GET("/traces", r.handler.ListTraces)
		api.GET("/traces/stream", gin.WrapH(r.wsHandler))
		api.GET("/traces/:id", r.handler.GetTrace)
		api.DELETE("/traces", r.handler.ClearTraces)

		// Routes info
		api.GET("/routes", r.handler.GetRoutes)

		// Health
		api.GET("/health", r.handler.HealthCheck)
	}

	// Everything else is a mock request
	r.engine.NoRoute(gin.WrapH(r.mockServer))
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
