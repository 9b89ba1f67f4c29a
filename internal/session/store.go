package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"portal-gateway/internal/auth"
	"portal-gateway/pkg/config"
	"portal-gateway/pkg/logger"
)

var (
	// ErrProfileTooLarge means the profile was not persisted; the credentials were.
	ErrProfileTooLarge = errors.New("user profile too large for cookie storage")

	// ErrProfileDecode means a stored profile could not be read back.
	ErrProfileDecode = errors.New("user profile cookie could not be decoded")
)

// UserProfile is the cached display identity written at login
type UserProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// Session is the credential pair plus the cached profile carried by a browser
type Session struct {
	Access  string
	Refresh string
	Profile *UserProfile
}

// WriteOptions carries the lifetimes communicated by the identity service.
// Zero values fall back to the access claim expiry and the store defaults.
type WriteOptions struct {
	AccessExpiresAt time.Time
	RefreshTTL      time.Duration
}

// Options configures cookie names, lifetimes and flags
type Options struct {
	AccessCookie      string
	RefreshCookie     string
	ProfileCookie     string
	AccessDefaultTTL  time.Duration
	RefreshDefaultTTL time.Duration

	// ProfileMaxBytes bounds the encoded cookie value, not the profile JSON.
	// Base64url grows the JSON by a third, so the largest storable JSON is
	// about three quarters of this limit (2850 bytes for the 3800 default).
	ProfileMaxBytes int

	Secure bool
	Domain string
}

// OptionsFromConfig builds store options from the gateway config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AccessCookie:      cfg.Session.AccessCookie,
		RefreshCookie:     cfg.Session.RefreshCookie,
		ProfileCookie:     cfg.Session.ProfileCookie,
		AccessDefaultTTL:  cfg.Session.AccessDefaultTTL,
		RefreshDefaultTTL: cfg.Session.RefreshDefaultTTL,
		ProfileMaxBytes:   cfg.Session.ProfileMaxBytes,
		Secure:            cfg.SecureCookies(),
		Domain:            cfg.Session.CookieDomain,
	}
}

// DefaultOptions mirrors the configuration defaults
func DefaultOptions() Options {
	return Options{
		AccessCookie:      "access_token",
		RefreshCookie:     "refresh_token",
		ProfileCookie:     "user_data",
		AccessDefaultTTL:  3 * time.Hour,
		RefreshDefaultTTL: 7 * 24 * time.Hour,
		ProfileMaxBytes:   3800,
	}
}

// Store reads and writes the session cookies of a single request/response
// pair. It holds no per-user state.
type Store struct {
	opts    Options
	decoder *auth.Decoder
	clock   auth.Clock
	log     *logger.Logger
}

// NewStore creates a cookie-backed session store
func NewStore(opts Options, decoder *auth.Decoder, clock auth.Clock, log *logger.Logger) *Store {
	if clock == nil {
		clock = auth.SystemClock
	}
	return &Store{
		opts:    opts,
		decoder: decoder,
		clock:   clock,
		log:     log.WithComponent("session"),
	}
}

// Options returns the store configuration
func (s *Store) Options() Options {
	return s.opts
}

// Write sets all three session cookies. ErrProfileTooLarge is returned after
// the credentials have been written; callers treat it as a warning.
func (s *Store) Write(w http.ResponseWriter, r *http.Request, sess Session, wo WriteOptions) error {
	now := s.clock()

	refreshTTL := wo.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = s.opts.RefreshDefaultTTL
	}
	refreshExpiry := now.Add(refreshTTL)

	cookies := []*http.Cookie{
		s.cookie(s.opts.AccessCookie, sess.Access, s.AccessExpiry(sess.Access, wo.AccessExpiresAt), now),
		s.cookie(s.opts.RefreshCookie, sess.Refresh, refreshExpiry, now),
	}

	var profileErr error
	if sess.Profile == nil {
		cookies = append(cookies, s.expired(s.opts.ProfileCookie))
	} else {
		value, err := s.encodeProfile(sess.Profile)
		if err != nil {
			profileErr = err
			cookies = append(cookies, s.expired(s.opts.ProfileCookie))
		} else {
			cookies = append(cookies, s.cookie(s.opts.ProfileCookie, value, refreshExpiry, now))
		}
	}

	s.apply(w, r, cookies)
	return profileErr
}

// Rotate replaces the access credential and, when the identity service issued
// one, the refresh credential. The cached profile keeps its value; when the
// refresh credential rotates it is re-emitted so both expire together.
func (s *Store) Rotate(w http.ResponseWriter, r *http.Request, access string, accessExpiresAt time.Time, refresh string, refreshTTL time.Duration) {
	now := s.clock()
	cookies := []*http.Cookie{
		s.cookie(s.opts.AccessCookie, access, s.AccessExpiry(access, accessExpiresAt), now),
	}
	if refresh != "" {
		if refreshTTL <= 0 {
			refreshTTL = s.opts.RefreshDefaultTTL
		}
		refreshExpiry := now.Add(refreshTTL)
		cookies = append(cookies, s.cookie(s.opts.RefreshCookie, refresh, refreshExpiry, now))

		if r != nil {
			if profile := cookieValue(r, s.opts.ProfileCookie); profile != "" {
				cookies = append(cookies, s.cookie(s.opts.ProfileCookie, profile, refreshExpiry, now))
			}
		}
	}
	s.apply(w, r, cookies)
}

// Read returns the session carried by the request, or nil when neither
// credential cookie is present. An unreadable profile is dropped.
func (s *Store) Read(r *http.Request) *Session {
	access := cookieValue(r, s.opts.AccessCookie)
	refresh := cookieValue(r, s.opts.RefreshCookie)
	if access == "" && refresh == "" {
		return nil
	}

	sess := &Session{Access: access, Refresh: refresh}
	if raw := cookieValue(r, s.opts.ProfileCookie); raw != "" {
		profile, err := decodeProfile(raw)
		if err != nil {
			s.log.Warning("Ignoring unreadable profile cookie", "error", err.Error())
		} else {
			sess.Profile = profile
		}
	}
	return sess
}

// Clear expires all three cookies. Clearing an empty session is not an error.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) {
	s.apply(w, r, []*http.Cookie{
		s.expired(s.opts.AccessCookie),
		s.expired(s.opts.RefreshCookie),
		s.expired(s.opts.ProfileCookie),
	})
}

// AccessExpiry resolves the access cookie lifetime: the explicit value, else
// the token's own exp, else the default TTL.
func (s *Store) AccessExpiry(access string, explicit time.Time) time.Time {
	if !explicit.IsZero() {
		return explicit
	}
	if s.decoder != nil {
		if claim, err := s.decoder.Decode(access); err == nil {
			return claim.ExpiresAt
		}
	}
	return s.clock().Add(s.opts.AccessDefaultTTL)
}

func (s *Store) encodeProfile(p *UserProfile) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal profile: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(raw)
	if s.opts.ProfileMaxBytes > 0 && len(value) > s.opts.ProfileMaxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrProfileTooLarge, len(value), s.opts.ProfileMaxBytes)
	}
	return value, nil
}

func decodeProfile(value string) (*UserProfile, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileDecode, err)
	}
	var p UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileDecode, err)
	}
	return &p, nil
}

func (s *Store) cookie(name, value string, expires, now time.Time) *http.Cookie {
	maxAge := int(expires.Sub(now).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.opts.Domain,
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Store) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   s.opts.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// apply emits the cookies on the response and mirrors them onto the
// in-flight request so later handlers see the new values.
func (s *Store) apply(w http.ResponseWriter, r *http.Request, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
	if r != nil {
		rewriteRequestCookies(r, cookies)
	}
}

func rewriteRequestCookies(r *http.Request, updates []*http.Cookie) {
	replaced := make(map[string]*http.Cookie, len(updates))
	for _, c := range updates {
		replaced[c.Name] = c
	}

	parts := make([]string, 0, len(r.Cookies())+len(updates))
	for _, c := range r.Cookies() {
		if _, ok := replaced[c.Name]; ok {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	for _, c := range updates {
		if c.MaxAge < 0 || c.Value == "" {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}

	r.Header.Del("Cookie")
	if len(parts) > 0 {
		r.Header.Set("Cookie", strings.Join(parts, "; "))
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
