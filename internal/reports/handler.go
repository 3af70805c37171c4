package reports

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for report runs
type Handler struct {
	runner *Runner
	logger *zap.Logger
}

// NewHandler creates a new reports handler
func NewHandler(runner *Runner, logger *zap.Logger) *Handler {
	return &Handler{
		runner: runner,
		logger: logger,
	}
}

// RunRequest is the optional body of POST /reports/run
type RunRequest struct {
	Date        string `json:"date"`
	SkipTrigger bool   `json:"skip_trigger"`
}

// RegisterRoutes registers reporting routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	{
		reports.POST("/run", h.runReport)
		reports.GET("/last", h.getLastRun)
	}
}

// runReport handles POST /api/v1/reports/run
func (h *Handler) runReport(c *gin.Context) {
	var req RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	opts := RunOptions{SkipTrigger: req.SkipTrigger}
	if req.Date != "" {
		date, err := time.ParseInLocation(time.DateOnly, req.Date, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		opts.Date = date
	}

	result, err := h.runner.Run(c.Request.Context(), opts)
	if errors.Is(err, ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("Report run requested over HTTP failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  err.Error(),
			"kind":   ErrorKind(err),
			"result": result,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// getLastRun handles GET /api/v1/reports/last
func (h *Handler) getLastRun(c *gin.Context) {
	last := h.runner.Last()
	if last == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report has run yet"})
		return
	}
	c.JSON(http.StatusOK, last)
}
