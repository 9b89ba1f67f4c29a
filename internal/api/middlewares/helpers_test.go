package middlewares_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"portal-gateway/internal/api"
	"portal-gateway/internal/api/middlewares"
	"portal-gateway/internal/auth"
	"portal-gateway/internal/metrics"
	"portal-gateway/pkg/config"
	"portal-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	services *api.Services
	metrics  *metrics.Metrics
	router   *gin.Engine
	calls    int32
}

// newHarness wires a gate and role-guarded sections in front of a fake
// identity service answering with upstream.
func newHarness(t *testing.T, upstream http.HandlerFunc, mutate func(*config.Config)) *harness {
	t.Helper()
	h := &harness{metrics: metrics.New()}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&h.calls, 1)
		if upstream == nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Identity.BaseURL = srv.URL
	if mutate != nil {
		mutate(cfg)
	}

	h.services = api.NewServices(cfg, logger.NewDiscardLogger(),
		api.WithClock(func() time.Time { return testNow }),
		api.WithHTTPClient(srv.Client()),
		api.WithMetrics(h.metrics),
	)

	matcher, err := middlewares.NewRouteMatcher(cfg.Routes.Protected, cfg.Routes.Public)
	require.NoError(t, err)

	h.router = gin.New()
	h.router.Use(middlewares.RequestGate(h.services, matcher, middlewares.GateConfigFromGateway(cfg)))

	echo := func(c *gin.Context) {
		resp := gin.H{"gate": c.GetString(middlewares.ContextGateOutcomeKey)}
		if claim := middlewares.ClaimFromContext(c); claim != nil {
			resp["sub"] = claim.Subject
			resp["role"] = string(claim.Role)
			resp["exp"] = claim.ExpiresAt.Unix()
		}
		c.JSON(http.StatusOK, resp)
	}
	h.router.GET("/api/ping", echo)

	for _, section := range []auth.Section{auth.SectionAdmin, auth.SectionCustomer, auth.SectionStaff, auth.SectionAccount} {
		group := h.router.Group("/" + string(section))
		group.Use(middlewares.RoleGuard(h.services, auth.PolicyFor(section), cfg.Routes.LoginPath))
		group.GET("/home", echo)
	}
	h.router.GET("/plain", echo)

	return h
}

func (h *harness) upstreamCalls() int32 {
	return atomic.LoadInt32(&h.calls)
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func newRequest(path string, cookies map[string]string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}

func signToken(t *testing.T, sub, role string, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  exp.Unix(),
	}).SignedString([]byte("upstream-secret"))
	require.NoError(t, err)
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
