package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// SessionRotator is the part of the session store the refresh flow writes to
type SessionRotator interface {
	Rotate(w http.ResponseWriter, r *http.Request, access string, accessExpiresAt time.Time, refresh string, refreshTTL time.Duration)
}

// AcceptFunc vets a freshly issued access credential before it is stored
type AcceptFunc func(access string) error

// RefreshAndRotate refreshes and, only on success, rotates the access
// credential in store. A non-nil accept that rejects the issued credential
// turns the exchange into a failure. On failure nothing is written.
func (c *Client) RefreshAndRotate(ctx context.Context, store SessionRotator, w http.ResponseWriter, r *http.Request, refreshToken string, accept AcceptFunc) (*RefreshResult, error) {
	result, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if accept != nil {
		if err := accept(result.AccessToken); err != nil {
			return nil, &RefreshError{Err: fmt.Errorf("%w: %v", ErrUnusableCredential, err)}
		}
	}
	store.Rotate(w, r, result.AccessToken, result.AccessExpiresAt, result.RefreshToken, result.RefreshTTL)
	return result, nil
}
