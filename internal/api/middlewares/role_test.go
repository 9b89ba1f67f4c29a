package middlewares_test

import (
	"net/http"
	"testing"
	"time"

	"portal-gateway/internal/api/middlewares"
	"portal-gateway/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleGuard_WrongRoleRendersUnauthorized(t *testing.T) {
	h := newHarness(t, nil, nil)
	access := signToken(t, "u-2", "officer", testNow.Add(time.Hour))

	rec := h.do(newRequest("/admin/home", map[string]string{"access_token": access}))

	// The gate passed; the guard denied in place without redirecting
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Access denied")
	assert.Contains(t, rec.Body.String(), "officer")
	assert.Zero(t, h.upstreamCalls())
}

func TestRoleGuard_JSONClients(t *testing.T) {
	h := newHarness(t, nil, nil)
	access := signToken(t, "u-2", "customer", testNow.Add(time.Hour))

	req := newRequest("/staff/home", map[string]string{"access_token": access})
	req.Header.Set("Accept", "application/json")
	rec := h.do(req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	errInfo, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "FORBIDDEN", errInfo["code"])
}

func TestRoleGuard_Allows(t *testing.T) {
	h := newHarness(t, nil, nil)

	tests := []struct {
		path string
		role string
	}{
		{"/admin/home", "admin"},
		{"/staff/home", "officer"},
		{"/staff/home", "admin"},
		{"/customer/home", "customer"},
		{"/account/home", "manager"},
	}

	for _, tt := range tests {
		t.Run(tt.role+tt.path, func(t *testing.T) {
			access := signToken(t, "u-1", tt.role, testNow.Add(time.Hour))
			rec := h.do(newRequest(tt.path, map[string]string{"access_token": access}))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.role, decodeBody(t, rec)["role"])
		})
	}
}

func TestRoleGuard_WithoutClaimRedirects(t *testing.T) {
	h := newHarness(t, nil, nil)

	// The guard redirects on its own, independent of the gate, when it
	// protects a path the gate does not intercept.
	guard := middlewares.RoleGuard(h.services, auth.PolicyFor(auth.SectionAdmin), "/login")
	h.router.GET("/api/admin-only", guard, func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := h.do(newRequest("/api/admin-only", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login?next=%2Fapi%2Fadmin-only", rec.Header().Get("Location"))

	// An expired credential counts as no claim
	expired := signToken(t, "u-1", "admin", testNow.Add(-time.Minute))
	rec = h.do(newRequest("/api/admin-only", map[string]string{"access_token": expired}))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	valid := signToken(t, "u-1", "admin", testNow.Add(time.Minute))
	rec = h.do(newRequest("/api/admin-only", map[string]string{"access_token": valid}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleGuard_WithoutClaimJSONClientGetsUnauthorized(t *testing.T) {
	h := newHarness(t, nil, nil)

	guard := middlewares.RoleGuard(h.services, auth.PolicyFor(auth.SectionAdmin), "/login")
	h.router.GET("/api/admin-report", guard, func(c *gin.Context) { c.Status(http.StatusOK) })

	req := newRequest("/api/admin-report", nil)
	req.Header.Set("Accept", "application/json")
	rec := h.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	body := decodeBody(t, rec)
	errInfo, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "UNAUTHORIZED", errInfo["code"])

	// Browsers are still sent to the login page
	req = newRequest("/api/admin-report", nil)
	req.Header.Set("Accept", "text/html,application/json")
	rec = h.do(req)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
}
