package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"portal-gateway/internal/api/interfaces"
	"portal-gateway/internal/api/models"
	"portal-gateway/internal/auth"
	"portal-gateway/internal/database/repositories"
	"portal-gateway/internal/identity"
	"portal-gateway/internal/metrics"
	"portal-gateway/internal/session"
	"portal-gateway/pkg/config"
	"portal-gateway/pkg/logger"
)

// Services contains all the dependencies for API handlers
type Services struct {
	// Core dependencies
	DB     *sql.DB
	Logger *logger.Logger
	Config *config.Config

	driver     string
	clock      auth.Clock
	httpClient *http.Client

	decoder        *auth.Decoder
	sessionStore   *session.Store
	identityClient interfaces.IdentityClient
	metrics        *metrics.Metrics

	// Repositories
	authEventRepository *repositories.AuthEventRepository
}

// Option customises a Services container
type Option func(*Services)

// WithDatabase enables the auth event store on db
func WithDatabase(db *sql.DB, driver string) Option {
	return func(s *Services) {
		s.DB = db
		s.driver = driver
	}
}

// WithClock replaces the wall clock, mostly for tests
func WithClock(clock auth.Clock) Option {
	return func(s *Services) { s.clock = clock }
}

// WithHTTPClient sets the client used to reach the identity service
func WithHTTPClient(c *http.Client) Option {
	return func(s *Services) { s.httpClient = c }
}

// WithIdentityClient replaces the identity service client
func WithIdentityClient(c interfaces.IdentityClient) Option {
	return func(s *Services) { s.identityClient = c }
}

// WithMetrics attaches prometheus collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Services) { s.metrics = m }
}

// NewServices creates a new services container
func NewServices(cfg *config.Config, log *logger.Logger, opts ...Option) *Services {
	services := &Services{
		Logger: log,
		Config: cfg,
		clock:  auth.SystemClock,
	}
	for _, opt := range opts {
		opt(services)
	}

	secret := ""
	if cfg.Security.VerifySignature {
		secret = cfg.Security.JWTSecret
	}
	services.decoder = auth.NewDecoder(secret)
	services.sessionStore = session.NewStore(session.OptionsFromConfig(cfg), services.decoder, services.clock, log)

	if services.identityClient == nil {
		services.identityClient = identity.NewClient(identity.ConfigFromGateway(cfg),
			services.httpClient, services.decoder, services.clock, log)
	}

	if services.DB != nil {
		services.authEventRepository = repositories.NewAuthEventRepository(services.DB, services.driver)
	}

	return services
}

// Interface implementations
func (s *Services) GetLogger() *logger.Logger {
	return s.Logger
}

func (s *Services) GetConfig() *config.Config {
	return s.Config
}

func (s *Services) Clock() auth.Clock {
	return s.clock
}

func (s *Services) Decoder() *auth.Decoder {
	return s.decoder
}

func (s *Services) SessionStore() *session.Store {
	return s.sessionStore
}

func (s *Services) IdentityClient() interfaces.IdentityClient {
	return s.identityClient
}

// AuthEvents returns a nil interface, not a typed nil, when disabled
func (s *Services) AuthEvents() interfaces.AuthEventStore {
	if s.authEventRepository == nil {
		return nil
	}
	return s.authEventRepository
}

func (s *Services) Metrics() *metrics.Metrics {
	return s.metrics
}

// HealthChecks reports the state of optional dependencies
func (s *Services) HealthChecks() map[string]models.HealthCheck {
	checks := map[string]models.HealthCheck{}
	if s.DB == nil {
		return checks
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		checks["database"] = models.HealthCheck{Status: "unhealthy", Message: err.Error()}
	} else {
		checks["database"] = models.HealthCheck{Status: "healthy"}
	}
	return checks
}

// Close releases held resources
func (s *Services) Close() error {
	s.Logger.Info("Closing API services...")
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

var _ interfaces.Services = (*Services)(nil)
