package middlewares

import (
	"errors"
	"net/http"
	"time"

	"portal-gateway/internal/api/interfaces"
	"portal-gateway/internal/auth"
	"portal-gateway/internal/database"
	"portal-gateway/internal/identity"
	"portal-gateway/pkg/config"
	"portal-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Gate outcomes, used as metric labels and in the request log
const (
	GateBypass        = "bypass"
	GatePass          = "pass"
	GatePassRefreshed = "pass_refreshed"
	GateNoCredential  = "redirect_no_credential"
	GateRefreshFailed = "redirect_refresh_failed"
)

const defaultLoginRedirect = "/login"

// GateConfig configures the request gate
type GateConfig struct {
	LoginPath             string
	ClearOnRefreshFailure bool
}

// GateConfigFromGateway builds the gate config from the gateway config
func GateConfigFromGateway(cfg *config.Config) GateConfig {
	return GateConfig{
		LoginPath:             cfg.Routes.LoginPath,
		ClearOnRefreshFailure: cfg.Session.ClearOnRefreshFailure,
	}
}

// RequestGate authenticates every request the matcher intercepts before any
// handler runs. A fresh access credential passes straight through. A missing,
// expired or undecodable one gets exactly one refresh attempt; on success the
// rotated cookies are written to the response and the request continues, on
// failure the client is redirected to the login page.
func RequestGate(services interfaces.Services, matcher *RouteMatcher, cfg GateConfig) gin.HandlerFunc {
	if cfg.LoginPath == "" {
		cfg.LoginPath = defaultLoginRedirect
	}

	return func(c *gin.Context) {
		if !matcher.Intercepts(c.Request.URL.Path) {
			c.Set(ContextGateOutcomeKey, GateBypass)
			c.Next()
			return
		}

		log := logger.GetLoggerFromContext(c, services.GetLogger()).WithComponent("gate")
		store := services.SessionStore()
		now := services.Clock()()

		sess := store.Read(c.Request)
		if sess == nil {
			redirectToLogin(c, services, cfg.LoginPath, GateNoCredential)
			return
		}

		if sess.Access != "" {
			claim, err := services.Decoder().Decode(sess.Access)
			switch {
			case err == nil && !claim.Expired(now):
				setClaim(c, claim)
				pass(c, services, GatePass)
				return
			case err != nil:
				log.Debug("Access credential did not decode, attempting refresh", "error", err.Error())
			default:
				log.Debug("Access credential expired, attempting refresh",
					"user_id", claim.Subject, "expired_at", claim.ExpiresAt.Format(time.RFC3339))
			}
		}

		if sess.Refresh == "" {
			redirectToLogin(c, services, cfg.LoginPath, GateNoCredential)
			return
		}

		// An issued credential that does not decode fails the refresh and is
		// never rotated in.
		var claim *auth.Claim
		accept := func(access string) error {
			decoded, err := services.Decoder().Decode(access)
			if err != nil {
				return err
			}
			claim = decoded
			return nil
		}

		start := time.Now()
		_, err := services.IdentityClient().RefreshAndRotate(c.Request.Context(), store, c.Writer, c.Request, sess.Refresh, accept)
		services.Metrics().RefreshObserved(time.Since(start), err == nil)
		if err != nil {
			var refreshErr *identity.RefreshError
			status := 0
			if errors.As(err, &refreshErr) {
				status = refreshErr.StatusCode
			}
			log.Warning("Refresh failed, session is unrecoverable",
				"upstream_status", status, "error", err.Error())
			RecordAuthEvent(c, services, database.EventRefreshFailure, "", "", err.Error())

			if cfg.ClearOnRefreshFailure {
				store.Clear(c.Writer, c.Request)
			}
			redirectToLogin(c, services, cfg.LoginPath, GateRefreshFailed)
			return
		}

		setClaim(c, claim)
		log.SessionLogger("refresh_succeeded", claim.Subject, "access credential rotated")
		RecordAuthEvent(c, services, database.EventRefreshSuccess, claim.Subject, string(claim.Role), "")

		pass(c, services, GatePassRefreshed)
	}
}

func pass(c *gin.Context, services interfaces.Services, outcome string) {
	c.Set(ContextGateOutcomeKey, outcome)
	services.Metrics().GateDecision(outcome)
	c.Next()
}

func redirectToLogin(c *gin.Context, services interfaces.Services, loginPath, outcome string) {
	c.Set(ContextGateOutcomeKey, outcome)
	services.Metrics().GateDecision(outcome)
	c.Redirect(http.StatusTemporaryRedirect, LoginRedirectURL(loginPath, c.Request.URL.RequestURI()))
	c.Abort()
}
