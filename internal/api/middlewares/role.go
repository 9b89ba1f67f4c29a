package middlewares

import (
	"html/template"
	"net/http"
	"strings"

	"portal-gateway/internal/api/interfaces"
	"portal-gateway/internal/api/models"
	"portal-gateway/internal/auth"
	"portal-gateway/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

var accessDeniedPage = template.Must(template.New("access_denied").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Access denied</title></head>
<body>
<main>
<h1>Access denied</h1>
<p>Your account ({{.Role}}) cannot open the {{.Section}} area.</p>
<p><a href="/">Back to the home page</a></p>
</main>
</body>
</html>
`))

type accessDeniedView struct {
	Section string
	Role    string
}

// RoleGuard authorizes a section of the route tree. It runs independently of
// the request gate: without a live claim it redirects to login (JSON clients
// get a 401 instead), with a claim whose role the section does not admit it
// renders access denied in place.
func RoleGuard(services interfaces.Services, policy auth.Policy, loginPath string) gin.HandlerFunc {
	if loginPath == "" {
		loginPath = defaultLoginRedirect
	}
	section := string(policy.Section)

	return func(c *gin.Context) {
		claim := CurrentClaim(c, services)
		decision := auth.Authorize(claim, policy)
		services.Metrics().GuardDecision(section, decision.String())

		switch decision {
		case auth.Allow:
			setClaim(c, claim)
			c.Next()
		case auth.RedirectToLogin:
			if wantsJSON(c.Request) {
				apiErr := models.NewAPIError(models.ErrCodeUnauthorized, "Authentication required", http.StatusUnauthorized).
					WithDetails("section " + section + " requires a signed-in user")
				c.AbortWithStatusJSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
				return
			}
			c.Redirect(http.StatusTemporaryRedirect, LoginRedirectURL(loginPath, c.Request.URL.RequestURI()))
			c.Abort()
		default:
			services.GetLogger().SecurityLogger("access_denied", claim.Subject,
				"role "+string(claim.Role)+" denied section "+section)
			RecordAuthEvent(c, services, database.EventAccessDenied, claim.Subject, string(claim.Role), "section "+section)
			renderUnauthorized(c, section, claim.Role)
		}
	}
}

func renderUnauthorized(c *gin.Context, section string, role auth.Role) {
	if wantsJSON(c.Request) {
		apiErr := models.NewAPIError(models.ErrCodeForbidden, "Access denied", http.StatusForbidden).
			WithDetails("role " + string(role) + " may not access section " + section)
		c.AbortWithStatusJSON(apiErr.StatusCode, models.NewErrorResponse(apiErr, c.GetString("request_id")))
		return
	}

	c.Render(http.StatusForbidden, render.HTML{
		Template: accessDeniedPage,
		Name:     "access_denied",
		Data:     accessDeniedView{Section: section, Role: string(role)},
	})
	c.Abort()
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
