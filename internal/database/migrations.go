package database

import (
	"database/sql"
	"fmt"
)

// RunMigrations creates the auth event schema for the given driver
func RunMigrations(db *sql.DB, driver string) error {
	var migrations []string
	switch driver {
	case DriverPostgres:
		migrations = []string{createAuthEventsTablePostgres}
	case DriverSQLite:
		migrations = []string{createAuthEventsTableSQLite}
	default:
		return fmt.Errorf("no migrations for driver %q", driver)
	}
	migrations = append(migrations, createAuthEventIndices...)

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const createAuthEventsTableSQLite = `
CREATE TABLE IF NOT EXISTS auth_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    event VARCHAR(64) NOT NULL,
    user_id VARCHAR(255) NOT NULL DEFAULT '',
    role VARCHAR(32) NOT NULL DEFAULT '',
    path VARCHAR(2048) NOT NULL DEFAULT '',
    details TEXT NOT NULL DEFAULT '',
    ip_address VARCHAR(45) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const createAuthEventsTablePostgres = `
CREATE TABLE IF NOT EXISTS auth_events (
    id BIGSERIAL PRIMARY KEY,
    event VARCHAR(64) NOT NULL,
    user_id VARCHAR(255) NOT NULL DEFAULT '',
    role VARCHAR(32) NOT NULL DEFAULT '',
    path VARCHAR(2048) NOT NULL DEFAULT '',
    details TEXT NOT NULL DEFAULT '',
    ip_address VARCHAR(45) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

var createAuthEventIndices = []string{
	`CREATE INDEX IF NOT EXISTS idx_auth_events_event ON auth_events (event);`,
	`CREATE INDEX IF NOT EXISTS idx_auth_events_user_id ON auth_events (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_auth_events_created_at ON auth_events (created_at);`,
}
