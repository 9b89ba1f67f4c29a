package handlers

import (
	"net/http"
	"time"

	"portal-gateway/internal/api/interfaces"
	"portal-gateway/internal/api/models"

	"github.com/gin-gonic/gin"
)

const version = "1.0.0"

var startedAt = time.Now()

// HealthChecker is implemented by service containers that can report on
// their dependencies
type HealthChecker interface {
	HealthChecks() map[string]models.HealthCheck
}

// HealthCheck reports gateway health and, when available, dependency checks
func HealthCheck(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthCheckResponse{
			Status:    "healthy",
			Timestamp: time.Now().Unix(),
			Version:   version,
			Uptime:    int64(time.Since(startedAt).Seconds()),
			Checks:    map[string]models.HealthCheck{},
		}

		if hc, ok := services.(HealthChecker); ok {
			resp.Checks = hc.HealthChecks()
		}

		status := http.StatusOK
		for _, check := range resp.Checks {
			if check.Status != "healthy" {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		c.JSON(status, resp)
	}
}

// NotFound answers requests no route matched
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiErr := models.NewAPIError(models.ErrCodeNotFound, "Not found", http.StatusNotFound).
			WithDetails("no route for " + c.Request.Method + " " + c.Request.URL.Path)
		c.JSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
	}
}
