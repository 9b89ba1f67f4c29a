package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete gateway configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Session  SessionConfig  `mapstructure:"session"`
	Identity IdentityConfig `mapstructure:"identity"`
	Routes   RoutesConfig   `mapstructure:"routes"`
	Security SecurityConfig `mapstructure:"security"`
	Database DatabaseConfig `mapstructure:"database"`
	API      APIConfig      `mapstructure:"api"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLS          TLSConfig     `mapstructure:"tls"`
}

// TLSConfig holds TLS/SSL configuration
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

// SessionConfig controls the cookie-backed session store
type SessionConfig struct {
	AccessCookie          string        `mapstructure:"access_cookie"`
	RefreshCookie         string        `mapstructure:"refresh_cookie"`
	ProfileCookie         string        `mapstructure:"profile_cookie"`
	AccessDefaultTTL      time.Duration `mapstructure:"access_default_ttl"`
	RefreshDefaultTTL     time.Duration `mapstructure:"refresh_default_ttl"`
	ProfileMaxBytes       int           `mapstructure:"profile_max_bytes"`
	SecureCookies         bool          `mapstructure:"secure_cookies"`
	CookieDomain          string        `mapstructure:"cookie_domain"`
	ClearOnRefreshFailure bool          `mapstructure:"clear_on_refresh_failure"`
}

// IdentityConfig points at the upstream identity service
type IdentityConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	RefreshPath string        `mapstructure:"refresh_path"`
	LoginPath   string        `mapstructure:"login_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RoutesConfig holds the route patterns intercepted by the request gate
type RoutesConfig struct {
	Protected []string `mapstructure:"protected"`
	Public    []string `mapstructure:"public"`
	LoginPath string   `mapstructure:"login_path"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	VerifySignature bool   `mapstructure:"verify_signature"`
	JWTSecret       string `mapstructure:"jwt_secret"`
}

// DatabaseConfig holds the auth event store connection configuration
type DatabaseConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Type         string        `mapstructure:"type"` // postgres, sqlite
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	Path         string        `mapstructure:"path"`    // For SQLite
	SSLMode      string        `mapstructure:"sslmode"` // For PostgreSQL
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// APIConfig holds API-related configuration
type APIConfig struct {
	RateLimit int        `mapstructure:"rate_limit"` // requests per minute
	CORS      CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAge         int      `mapstructure:"max_age"`
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Allow environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("GATEWAY")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				fmt.Printf("Warning: Config file not found at %s, using defaults\n", configPath)
			} else {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Session defaults
	v.SetDefault("session.access_cookie", "access_token")
	v.SetDefault("session.refresh_cookie", "refresh_token")
	v.SetDefault("session.profile_cookie", "user_data")
	v.SetDefault("session.access_default_ttl", "3h")
	v.SetDefault("session.refresh_default_ttl", "168h")
	v.SetDefault("session.profile_max_bytes", 3800)
	v.SetDefault("session.secure_cookies", false)
	v.SetDefault("session.clear_on_refresh_failure", true)

	// Identity defaults
	v.SetDefault("identity.base_url", "http://localhost:5000")
	v.SetDefault("identity.refresh_path", "/api/auth/refresh")
	v.SetDefault("identity.login_path", "/api/auth/login")
	v.SetDefault("identity.timeout", "10s")

	// Route defaults
	v.SetDefault("routes.protected", []string{"/**"})
	v.SetDefault("routes.public", []string{
		"/api/**", "/static/**", "/login", "/register",
		"/health", "/metrics", "/favicon.ico",
	})
	v.SetDefault("routes.login_path", "/login")

	// Security defaults
	v.SetDefault("security.verify_signature", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "./gateway.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")

	// API defaults
	v.SetDefault("api.rate_limit", 300)
	v.SetDefault("api.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.cors.max_age", 86400)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// overrideWithEnvVars overrides config with specific environment variables
func overrideWithEnvVars(v *viper.Viper) {
	// Critical environment variables that should always override config
	envMappings := map[string]string{
		"IDENTITY_URL": "identity.base_url",
		"JWT_SECRET":   "security.jwt_secret",
		"DB_PASSWORD":  "database.password",
		"DB_USER":      "database.user",
		"GIN_MODE":     "server.mode",
		"LOG_LEVEL":    "logging.level",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if _, err := url.ParseRequestURI(config.Identity.BaseURL); err != nil {
		return fmt.Errorf("identity base url is invalid: %w", err)
	}

	if config.Identity.Timeout <= 0 {
		return fmt.Errorf("identity timeout must be positive")
	}

	if config.Session.AccessCookie == "" || config.Session.RefreshCookie == "" || config.Session.ProfileCookie == "" {
		return fmt.Errorf("session cookie names are required")
	}

	if config.Session.ProfileMaxBytes <= 0 || config.Session.ProfileMaxBytes > 4096 {
		return fmt.Errorf("session profile_max_bytes must be between 1 and 4096")
	}

	if !strings.HasPrefix(config.Routes.LoginPath, "/") {
		return fmt.Errorf("routes login_path must be an absolute path")
	}

	if config.Security.VerifySignature && config.Security.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required when signature verification is enabled")
	}

	// Validate database configuration
	if config.Database.Enabled {
		switch config.Database.Type {
		case "postgres":
			if config.Database.Host == "" || config.Database.User == "" {
				return fmt.Errorf("postgres requires host and user")
			}
		case "sqlite":
			if config.Database.Path == "" {
				return fmt.Errorf("sqlite requires path")
			}
		default:
			return fmt.Errorf("unsupported database type: %s", config.Database.Type)
		}
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "debug" || c.Server.Mode == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "release" || c.Server.Mode == "production"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// SecureCookies reports whether session cookies carry the Secure flag.
// Production mode always forces it on.
func (c *Config) SecureCookies() bool {
	return c.Session.SecureCookies || c.IsProduction()
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	switch c.Database.Type {
	case "postgres":
		sslMode := c.Database.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Host, c.Database.Port, c.Database.User,
			c.Database.Password, c.Database.DBName, sslMode)
	case "sqlite":
		return c.Database.Path
	default:
		return ""
	}
}

// SanitizeForLogging returns a copy of the config with sensitive data redacted
func (c *Config) SanitizeForLogging() *Config {
	sanitized := *c

	if sanitized.Database.Password != "" {
		sanitized.Database.Password = "[REDACTED]"
	}

	if sanitized.Security.JWTSecret != "" {
		sanitized.Security.JWTSecret = "[REDACTED]"
	}

	return &sanitized
}
