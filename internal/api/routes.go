package api

import (
	"fmt"

	"portal-gateway/internal/api/handlers"
	"portal-gateway/internal/api/interfaces"
	"portal-gateway/internal/api/middlewares"
	"portal-gateway/internal/auth"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all routes behind the request gate
func SetupRoutes(router *gin.Engine, services interfaces.Services) error {
	cfg := services.GetConfig()

	matcher, err := middlewares.NewRouteMatcher(cfg.Routes.Protected, cfg.Routes.Public)
	if err != nil {
		return fmt.Errorf("route patterns: %w", err)
	}

	// Global middleware
	router.Use(middlewares.RequestLogging(services.GetLogger()))
	router.Use(middlewares.Recovery(services.GetLogger()))
	router.Use(middlewares.CORS(cfg.API.CORS))
	router.Use(middlewares.Security())
	router.Use(middlewares.RateLimit(cfg.API.RateLimit))
	router.Use(middlewares.RequestGate(services, matcher, middlewares.GateConfigFromGateway(cfg)))

	// Health check (no auth required)
	router.GET("/health", handlers.HealthCheck(services))

	if m := services.Metrics(); m != nil && cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	router.GET(cfg.Routes.LoginPath, handlers.LoginLanding(services))

	setupAuthRoutes(router.Group("/api/auth"), services)
	setupAdminAPIRoutes(router.Group("/api/admin"), services)
	setupSectionRoutes(router, services)

	router.NoRoute(handlers.NotFound())

	return nil
}

// setupAuthRoutes configures session introspection and the login exchange
func setupAuthRoutes(rg *gin.RouterGroup, services interfaces.Services) {
	rg.GET("/session", handlers.GetSession(services))
	rg.GET("/role", handlers.GetRole(services))
	rg.POST("/login", handlers.Login(services))
	rg.POST("/logout", handlers.Logout(services))
}

// setupSectionRoutes mounts every protected section behind its role guard
func setupSectionRoutes(router *gin.Engine, services interfaces.Services) {
	loginPath := services.GetConfig().Routes.LoginPath

	for _, section := range []auth.Section{
		auth.SectionAdmin,
		auth.SectionOfficer,
		auth.SectionManager,
		auth.SectionCustomer,
		auth.SectionStaff,
		auth.SectionAccount,
	} {
		group := router.Group("/" + string(section))
		group.Use(middlewares.RoleGuard(services, auth.PolicyFor(section), loginPath))
		group.GET("", handlers.SectionHome(services, section))
		group.GET("/*page", handlers.SectionHome(services, section))
	}
}

// setupAdminAPIRoutes exposes the auth event log. API paths are not gated, so
// the role guard decodes the access cookie on its own.
func setupAdminAPIRoutes(rg *gin.RouterGroup, services interfaces.Services) {
	admin := rg.Group("")
	admin.Use(middlewares.RoleGuard(services, auth.PolicyFor(auth.SectionAdmin), services.GetConfig().Routes.LoginPath))
	admin.GET("/auth-events", handlers.ListAuthEvents(services))
}
