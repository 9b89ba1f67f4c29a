package repositories

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"portal-gateway/internal/database"
)

type AuthEventRepository struct {
	db     *sql.DB
	driver string
}

func NewAuthEventRepository(db *sql.DB, driver string) *AuthEventRepository {
	return &AuthEventRepository{db: db, driver: driver}
}

// Record inserts a new auth event
func (r *AuthEventRepository) Record(ctx context.Context, event *database.AuthEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO auth_events (event, user_id, role, path, details, ip_address, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	args := []interface{}{event.Event, event.UserID, event.Role, event.Path,
		event.Details, event.IPAddress, event.CreatedAt}

	if r.driver == database.DriverPostgres {
		return r.db.QueryRowContext(ctx, r.rebind(query)+" RETURNING id", args...).Scan(&event.ID)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	event.ID = id
	return nil
}

// List retrieves auth events, newest first, optionally filtered by event name
func (r *AuthEventRepository) List(ctx context.Context, limit, offset int, event string) ([]database.AuthEvent, error) {
	query := `
        SELECT id, event, user_id, role, path, details, ip_address, created_at
        FROM auth_events
        WHERE 1=1
    `
	args := []interface{}{}

	if event != "" {
		query += " AND event = ?"
		args = append(args, event)
	}

	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []database.AuthEvent{}
	for rows.Next() {
		var e database.AuthEvent
		err := rows.Scan(&e.ID, &e.Event, &e.UserID, &e.Role, &e.Path,
			&e.Details, &e.IPAddress, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// CountByEvent returns how many events of each kind are stored
func (r *AuthEventRepository) CountByEvent(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT event, COUNT(*) FROM auth_events GROUP BY event`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var event string
		var count int64
		if err := rows.Scan(&event, &count); err != nil {
			return nil, err
		}
		counts[event] = count
	}

	return counts, rows.Err()
}

// rebind rewrites ? placeholders to $n for postgres
func (r *AuthEventRepository) rebind(query string) string {
	if r.driver != database.DriverPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
