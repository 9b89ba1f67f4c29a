package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portal-gateway/internal/session"
)

// ErrLoginRejected is returned when the identity service refuses the credentials.
var ErrLoginRejected = errors.New("login rejected")

// LoginRequest is forwarded verbatim to the identity service
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult holds what the identity service issued for a login
type LoginResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	RefreshTTL      time.Duration
	Profile         *session.UserProfile
}

type loginUser struct {
	ID        flexID `json:"id"`
	MongoID   flexID `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Avatar    string `json:"avatar"`
}

// flexID accepts a JSON string or number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type loginResponse struct {
	tokenResponse
	User *loginUser `json:"user"`
}

// Login forwards a credential exchange to the identity service. Issuance
// happens upstream; the gateway only stores what comes back.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "identity.login")
	defer span.End()

	calledAt := c.clock()
	status, body, err := c.post(ctx, c.cfg.LoginPath, req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrLoginRejected, status, upstreamMessage(body))
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	access := resp.access()
	if access == "" || resp.RefreshToken == "" {
		return nil, fmt.Errorf("%w: response carried no credentials", ErrLoginRejected)
	}

	result := &LoginResult{
		AccessToken:     access,
		AccessExpiresAt: c.accessExpiry(access, resp.ExpiresIn, calledAt),
		RefreshToken:    resp.RefreshToken,
	}
	if resp.RefreshExpiresIn > 0 {
		result.RefreshTTL = time.Duration(resp.RefreshExpiresIn) * time.Second
	}
	if u := resp.User; u != nil {
		id := string(u.ID)
		if id == "" {
			id = string(u.MongoID)
		}
		result.Profile = &session.UserProfile{
			ID:        id,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			Phone:     u.Phone,
			Role:      u.Role,
			Avatar:    u.Avatar,
		}
	}
	return result, nil
}
