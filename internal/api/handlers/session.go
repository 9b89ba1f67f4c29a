package handlers

import (
	"errors"
	"net/http"

	"portal-gateway/internal/api/interfaces"
	"portal-gateway/internal/api/middlewares"
	"portal-gateway/internal/api/models"
	"portal-gateway/internal/auth"
	"portal-gateway/internal/database"
	"portal-gateway/internal/identity"
	"portal-gateway/internal/session"

	"github.com/gin-gonic/gin"
)

// GetSession reports the caller's session as the UI layer sees it. It is a
// pure function of the request cookies.
func GetSession(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.SessionResponse{}

		if claim := middlewares.CurrentClaim(c, services); claim != nil {
			resp.IsLoggedIn = true
			if sess := services.SessionStore().Read(c.Request); sess != nil {
				resp.Token = &sess.Access
				resp.User = sess.Profile
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}

// GetRole reports the decoded role of the caller, or guest with 401 when
// there is no live access credential.
func GetRole(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		claim := middlewares.CurrentClaim(c, services)
		if claim == nil {
			c.JSON(http.StatusUnauthorized, models.RoleResponse{
				Authenticated: false,
				Role:          string(auth.RoleGuest),
			})
			return
		}

		c.JSON(http.StatusOK, models.RoleResponse{
			Authenticated: true,
			Role:          string(claim.Role),
			UserID:        claim.Subject,
		})
	}
}

// Login forwards credentials to the identity service and stores the issued
// session in cookies
func Login(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req identity.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apiErr := models.NewAPIError(models.ErrCodeInvalidRequest, "Invalid login request", http.StatusBadRequest).
				WithDetails(err.Error())
			c.JSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
			return
		}

		result, err := services.IdentityClient().Login(c.Request.Context(), req)
		if err != nil {
			services.GetLogger().SecurityLogger("login_failed", req.Email, err.Error())
			middlewares.RecordAuthEvent(c, services, database.EventLoginFailed, "", "", err.Error())

			apiErr := models.NewAPIError(models.ErrCodeUpstreamError, "Identity service unavailable", http.StatusBadGateway)
			if errors.Is(err, identity.ErrLoginRejected) {
				apiErr = models.NewAPIError(models.ErrCodeInvalidCredentials, "Invalid email or password", http.StatusUnauthorized)
			}
			c.JSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
			return
		}

		store := services.SessionStore()
		sess := session.Session{
			Access:  result.AccessToken,
			Refresh: result.RefreshToken,
			Profile: result.Profile,
		}
		profileCached := result.Profile != nil
		err = store.Write(c.Writer, c.Request, sess, session.WriteOptions{
			AccessExpiresAt: result.AccessExpiresAt,
			RefreshTTL:      result.RefreshTTL,
		})
		if errors.Is(err, session.ErrProfileTooLarge) {
			services.GetLogger().Warning("Profile too large to cache, session stored without it")
			profileCached = false
		} else if err != nil {
			services.GetLogger().Error("Failed to store session", "error", err.Error())
			apiErr := models.NewAPIError(models.ErrCodeInternalError, "Failed to store session", http.StatusInternalServerError)
			c.JSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
			return
		}

		userID, role := "", ""
		if claim, err := services.Decoder().Decode(result.AccessToken); err == nil {
			userID, role = claim.Subject, string(claim.Role)
		}
		services.GetLogger().SessionLogger("login", userID, "session established")
		middlewares.RecordAuthEvent(c, services, database.EventLogin, userID, role, "")

		c.JSON(http.StatusOK, models.LoginResponse{
			IsLoggedIn:    true,
			User:          result.Profile,
			ProfileCached: profileCached,
			ExpiresAt:     result.AccessExpiresAt.Unix(),
		})
	}
}

// Logout clears every session cookie. Logging out twice is harmless.
func Logout(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role := "", ""
		if claim := middlewares.CurrentClaim(c, services); claim != nil {
			userID, role = claim.Subject, string(claim.Role)
		}

		services.SessionStore().Clear(c.Writer, c.Request)
		if userID != "" {
			services.GetLogger().SessionLogger("logout", userID, "session cleared")
			middlewares.RecordAuthEvent(c, services, database.EventLogout, userID, role, "")
		}

		c.JSON(http.StatusOK, models.SessionResponse{IsLoggedIn: false})
	}
}
