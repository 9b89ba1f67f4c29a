package database

import "time"

// Auth event names
const (
	EventLogin          = "login"
	EventLoginFailed    = "login_failed"
	EventLogout         = "logout"
	EventRefreshSuccess = "refresh_succeeded"
	EventRefreshFailure = "refresh_failed"
	EventAccessDenied   = "access_denied"
)

// AuthEvent represents one recorded session or authorisation event
type AuthEvent struct {
	ID        int64     `db:"id" json:"id"`
	Event     string    `db:"event" json:"event"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	Path      string    `db:"path" json:"path"`
	Details   string    `db:"details" json:"details"`
	IPAddress string    `db:"ip_address" json:"ip_address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
