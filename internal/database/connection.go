package database

import (
	"database/sql"
	"fmt"

	"portal-gateway/pkg/config"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names registered by the imported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// NewConnection opens the auth event store described by cfg and returns the
// handle together with the driver name used.
func NewConnection(cfg *config.Config) (*sql.DB, string, error) {
	var driverName string

	switch cfg.Database.Type {
	case "postgres":
		driverName = DriverPostgres
	case "sqlite":
		driverName = DriverSQLite
	default:
		return nil, "", fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	db, err := sql.Open(driverName, cfg.GetDatabaseDSN())
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	return db, driverName, nil
}
