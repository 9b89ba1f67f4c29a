package interfaces

import (
	"context"
	"net/http"

	"portal-gateway/internal/database"
	"portal-gateway/internal/identity"
)

// IdentityClient is the upstream identity service as seen by the API layer
type IdentityClient interface {
	RefreshAndRotate(ctx context.Context, store identity.SessionRotator, w http.ResponseWriter, r *http.Request, refreshToken string, accept identity.AcceptFunc) (*identity.RefreshResult, error)
	Login(ctx context.Context, req identity.LoginRequest) (*identity.LoginResult, error)
}

// AuthEventStore persists session and authorisation events
type AuthEventStore interface {
	Record(ctx context.Context, event *database.AuthEvent) error
	List(ctx context.Context, limit, offset int, event string) ([]database.AuthEvent, error)
	CountByEvent(ctx context.Context) (map[string]int64, error)
}
