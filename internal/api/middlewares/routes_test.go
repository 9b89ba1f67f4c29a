package middlewares

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteMatcher_Intercepts(t *testing.T) {
	m, err := NewRouteMatcher(
		[]string{"/**"},
		[]string{"/api/**", "/static/**", "/login", "/register", "/health", "/metrics", "/favicon.ico"},
	)
	require.NoError(t, err)

	intercepted := []string{"/", "/admin", "/admin/users/7", "/customer/bookings", "/login/extra", ""}
	for _, path := range intercepted {
		assert.True(t, m.Intercepts(path), path)
	}

	passthrough := []string{"/api/auth/session", "/static/css/site.css", "/login", "/register", "/health", "/favicon.ico"}
	for _, path := range passthrough {
		assert.False(t, m.Intercepts(path), path)
	}
}

func TestRouteMatcher_OnlyProtectedPatterns(t *testing.T) {
	m, err := NewRouteMatcher([]string{"/admin/**", "/officer/**"}, nil)
	require.NoError(t, err)

	assert.True(t, m.Intercepts("/admin/dashboard"))
	assert.True(t, m.Intercepts("/officer/reports"))
	assert.False(t, m.Intercepts("/rooms"))
}

func TestNewRouteMatcher_InvalidPattern(t *testing.T) {
	_, err := NewRouteMatcher([]string{"/admin/[a-"}, nil)
	assert.Error(t, err)
}

func TestLoginRedirectURL(t *testing.T) {
	assert.Equal(t, "/login", LoginRedirectURL("/login", ""))
	assert.Equal(t, "/login", LoginRedirectURL("/login", "/login"))
	assert.Equal(t, "/login?next=%2Fadmin%3Fpage%3D2", LoginRedirectURL("/login", "/admin?page=2"))
}

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per client")

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"), "a new window resets the count")
}

func TestRateLimiter_EvictsIdleVisitorsOncePerInterval(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := start
	rl := NewRateLimiter(5)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")

	now = start.Add(10 * time.Minute)
	rl.Allow("10.0.0.2")
	assert.Len(t, rl.visitors, 2, "idle for exactly the interval is kept")
	assert.Equal(t, now, rl.lastEvict)

	now = start.Add(15 * time.Minute)
	rl.Allow("10.0.0.3")
	assert.Len(t, rl.visitors, 3, "no scan before the interval elapses")
	assert.Equal(t, start.Add(10*time.Minute), rl.lastEvict)

	now = start.Add(20 * time.Minute)
	rl.Allow("10.0.0.3")
	assert.Len(t, rl.visitors, 2)
	assert.NotContains(t, rl.visitors, "10.0.0.1")
	assert.Equal(t, now, rl.lastEvict)
}
