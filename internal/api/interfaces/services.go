package interfaces

import (
	"portal-gateway/internal/auth"
	"portal-gateway/internal/metrics"
	"portal-gateway/internal/session"
	"portal-gateway/pkg/config"
	"portal-gateway/pkg/logger"
)

// Services defines the interface for API services
type Services interface {
	GetLogger() *logger.Logger
	GetConfig() *config.Config
	Clock() auth.Clock
	Decoder() *auth.Decoder
	SessionStore() *session.Store
	IdentityClient() IdentityClient
	// AuthEvents returns nil when the event store is disabled.
	AuthEvents() AuthEventStore
	Metrics() *metrics.Metrics
}
