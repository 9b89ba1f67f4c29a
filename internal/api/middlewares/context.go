package middlewares

import (
	"context"
	"net/url"
	"time"

	"portal-gateway/internal/api/interfaces"
	"portal-gateway/internal/auth"
	"portal-gateway/internal/database"

	"github.com/gin-gonic/gin"
)

// Context keys set by the request gate
const (
	ContextClaimKey       = "claim"
	ContextUserIDKey      = "user_id"
	ContextRoleKey        = "user_role"
	ContextGateOutcomeKey = "gate_outcome"
)

// ClaimFromContext returns the claim the gate accepted for this request
func ClaimFromContext(c *gin.Context) *auth.Claim {
	v, ok := c.Get(ContextClaimKey)
	if !ok {
		return nil
	}
	claim, _ := v.(*auth.Claim)
	return claim
}

func setClaim(c *gin.Context, claim *auth.Claim) {
	if claim == nil {
		return
	}
	c.Set(ContextClaimKey, claim)
	c.Set(ContextUserIDKey, claim.Subject)
	c.Set(ContextRoleKey, string(claim.Role))
}

// CurrentClaim returns the gate's claim, or decodes the access cookie when the
// gate did not run. Undecodable or expired credentials yield nil.
func CurrentClaim(c *gin.Context, services interfaces.Services) *auth.Claim {
	if claim := ClaimFromContext(c); claim != nil {
		return claim
	}

	sess := services.SessionStore().Read(c.Request)
	if sess == nil || sess.Access == "" {
		return nil
	}
	claim, err := services.Decoder().Decode(sess.Access)
	if err != nil || claim.Expired(services.Clock()()) {
		return nil
	}
	return claim
}

// RecordAuthEvent stores an auth event when the event store is enabled.
// Failures are logged and never surface to the caller.
func RecordAuthEvent(c *gin.Context, services interfaces.Services, event, userID, role, details string) {
	store := services.AuthEvents()
	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
	defer cancel()

	err := store.Record(ctx, &database.AuthEvent{
		Event:     event,
		UserID:    userID,
		Role:      role,
		Path:      c.Request.URL.Path,
		Details:   details,
		IPAddress: c.ClientIP(),
		CreatedAt: services.Clock()().UTC(),
	})
	if err != nil {
		services.GetLogger().WithComponent("auth_events").Error("Failed to record auth event",
			"event", event, "error", err.Error())
	}
}

// LoginRedirectURL builds the login location carrying the original target
func LoginRedirectURL(loginPath, next string) string {
	if next == "" || next == loginPath {
		return loginPath
	}
	return loginPath + "?next=" + url.QueryEscape(next)
}
