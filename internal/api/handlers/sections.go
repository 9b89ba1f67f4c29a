package handlers

import (
	"net/http"

	"portal-gateway/internal/api/interfaces"
	"portal-gateway/internal/api/middlewares"
	"portal-gateway/internal/api/models"
	"portal-gateway/internal/auth"

	"github.com/gin-gonic/gin"
)

// SectionHome is the landing payload of a protected section. Page rendering
// lives outside the gateway; this only proves who got through.
func SectionHome(services interfaces.Services, section auth.Section) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.SectionResponse{Section: string(section)}
		if claim := middlewares.ClaimFromContext(c); claim != nil {
			resp.UserID = claim.Subject
			resp.Role = string(claim.Role)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// LoginEndpoint is where the UI posts credentials
const LoginEndpoint = "/api/auth/login"

// LoginLanding is where the gate sends unauthenticated browsers. The UI
// layer renders the form; this only tells it where to post and return.
func LoginLanding(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"login": LoginEndpoint,
			"next":  c.Query("next"),
		})
	}
}
