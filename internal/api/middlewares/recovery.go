package middlewares

import (
	"fmt"
	"net/http"

	"portal-gateway/internal/api/models"
	"portal-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Recovery middleware turns panics into a 500 envelope
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("Recovered from panic",
			"request_id", c.GetString("request_id"),
			"path", c.Request.URL.Path,
			"panic", fmt.Sprint(recovered))

		apiErr := models.NewAPIError(models.ErrCodeInternalError, "Internal server error", http.StatusInternalServerError)
		c.AbortWithStatusJSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
	})
}
