package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"top-posts-report/report-backend/internal/reports"
)

// ReportsAPI holds the reports API dependencies
type ReportsAPI struct {
	Handler *reports.Handler
	Runner  *reports.Runner
}

// SetupReportsAPI sets up the reports API around a report service
func SetupReportsAPI(service reports.RunService, logger *zap.Logger) *ReportsAPI {
	runner := reports.NewRunner(service)
	return &ReportsAPI{
		Handler: reports.NewHandler(runner, logger),
		Runner:  runner,
	}
}

// NewRouter builds the worker's router: /health plus the reports routes under
// /api/v1.
func NewRouter(api *ReportsAPI, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"running":   api.Runner.Running(),
			"timestamp": time.Now(),
		})
	})

	RegisterReportsRoutes(router.Group("/api/v1"), api)
	return router
}

// RegisterReportsRoutes registers the reports routes on the router group
func RegisterReportsRoutes(router *gin.RouterGroup, api *ReportsAPI) {
	api.Handler.RegisterRoutes(router)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
