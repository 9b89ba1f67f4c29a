package handlers

import (
	"net/http"
	"strconv"

	"portal-gateway/internal/api/interfaces"
	"portal-gateway/internal/api/models"

	"github.com/gin-gonic/gin"
)

// ListAuthEvents returns recorded auth events, newest first
func ListAuthEvents(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		store := services.AuthEvents()
		if store == nil {
			apiErr := models.NewAPIError(models.ErrCodeServiceUnavailable, "Auth event store is disabled", http.StatusServiceUnavailable)
			c.JSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
			return
		}

		limit := 50 // default limit
		offset := 0
		event := c.Query("event")

		if limitStr := c.Query("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
				limit = l
			}
		}
		if offsetStr := c.Query("offset"); offsetStr != "" {
			if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
				offset = o
			}
		}

		events, err := store.List(c.Request.Context(), limit, offset, event)
		if err != nil {
			services.GetLogger().Error("Error listing auth events", "error", err.Error())
			apiErr := models.NewAPIError(models.ErrCodeInternalError, "Failed to retrieve auth events", http.StatusInternalServerError)
			c.JSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
			return
		}

		counts, err := store.CountByEvent(c.Request.Context())
		if err != nil {
			services.GetLogger().Error("Error counting auth events", "error", err.Error())
			counts = map[string]int64{}
		}

		c.JSON(http.StatusOK, models.BaseResponse{
			Success: true,
			Message: "Auth events retrieved successfully",
			Data: models.AuthEventsResponse{
				Events: events,
				Counts: counts,
				Limit:  limit,
				Offset: offset,
			},
			RequestID: c.GetString("request_id"),
			Timestamp: services.Clock()().Unix(),
		})
	}
}
