// Package identity talks to the upstream identity service that issues and
// refreshes the gateway's credentials.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"portal-gateway/internal/auth"
	"portal-gateway/pkg/config"
	"portal-gateway/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// ErrRefreshFailed is wrapped by every RefreshError.
var ErrRefreshFailed = errors.New("refresh failed")

// ErrUnusableCredential means the upstream answered but the issued access
// credential was rejected by the caller.
var ErrUnusableCredential = errors.New("issued access credential is unusable")

// RefreshError reports why a refresh exchange did not produce a credential.
// StatusCode is zero for transport failures and rejected credentials.
type RefreshError struct {
	StatusCode int
	Err        error
}

func (e *RefreshError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("refresh failed: upstream status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() []error {
	return []error{ErrRefreshFailed, e.Err}
}

// RefreshResult is a successful refresh exchange. RefreshToken is empty
// unless the upstream rotated it.
type RefreshResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	RefreshTTL      time.Duration
}

// Config configures the upstream client
type Config struct {
	BaseURL          string
	RefreshPath      string
	LoginPath        string
	Timeout          time.Duration
	AccessDefaultTTL time.Duration
}

// ConfigFromGateway builds client config from the gateway config
func ConfigFromGateway(cfg *config.Config) Config {
	return Config{
		BaseURL:          cfg.Identity.BaseURL,
		RefreshPath:      cfg.Identity.RefreshPath,
		LoginPath:        cfg.Identity.LoginPath,
		Timeout:          cfg.Identity.Timeout,
		AccessDefaultTTL: cfg.Session.AccessDefaultTTL,
	}
}

// Client exchanges credentials with the identity service
type Client struct {
	cfg     Config
	http    *http.Client
	decoder *auth.Decoder
	clock   auth.Clock
	log     *logger.Logger
	tracer  trace.Tracer
	group   singleflight.Group
}

// NewClient creates an identity client. A nil httpClient uses a client with
// the configured timeout.
func NewClient(cfg Config, httpClient *http.Client, decoder *auth.Decoder, clock auth.Clock, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.AccessDefaultTTL <= 0 {
		cfg.AccessDefaultTTL = 3 * time.Hour
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if clock == nil {
		clock = auth.SystemClock
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		decoder: decoder,
		clock:   clock,
		log:     log.WithComponent("identity"),
		tracer:  otel.Tracer("portal-gateway/identity"),
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken      string `json:"accessToken"`
	Access           string `json:"access"`
	AccessTokenSnake string `json:"access_token"`
	ExpiresIn        int64  `json:"expiresIn"`
	RefreshToken     string `json:"refreshToken"`
	RefreshExpiresIn int64  `json:"refreshExpiresIn"`
}

func (t *tokenResponse) access() string {
	switch {
	case t.AccessToken != "":
		return t.AccessToken
	case t.Access != "":
		return t.Access
	default:
		return t.AccessTokenSnake
	}
}

// Refresh exchanges refreshToken for a new access credential. It is never
// retried; concurrent calls for the same refresh token share one exchange.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, &RefreshError{Err: errors.New("no refresh credential")}
	}

	ch := c.group.DoChan(refreshToken, func() (interface{}, error) {
		// Detached from any single caller so one cancelled request does not
		// fail the others waiting on the same exchange.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()
		return c.refresh(callCtx, refreshToken)
	})

	select {
	case <-ctx.Done():
		return nil, &RefreshError{Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RefreshResult), nil
	}
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	ctx, span := c.tracer.Start(ctx, "identity.refresh")
	defer span.End()

	start := time.Now()
	result, err := c.doRefresh(ctx, refreshToken)
	c.log.PerformanceLogger("identity.refresh", time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("identity.refresh_rotated", result.RefreshToken != ""))
	return result, nil
}

func (c *Client) doRefresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	calledAt := c.clock()

	status, body, err := c.post(ctx, c.cfg.RefreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, &RefreshError{Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &RefreshError{StatusCode: status, Err: errors.New(upstreamMessage(body))}
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &RefreshError{StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	access := resp.access()
	if access == "" {
		return nil, &RefreshError{StatusCode: status, Err: errors.New("response carried no access credential")}
	}

	result := &RefreshResult{
		AccessToken:     access,
		AccessExpiresAt: c.accessExpiry(access, resp.ExpiresIn, calledAt),
		RefreshToken:    resp.RefreshToken,
	}
	if resp.RefreshExpiresIn > 0 {
		result.RefreshTTL = time.Duration(resp.RefreshExpiresIn) * time.Second
	}
	return result, nil
}

// accessExpiry prefers the server-supplied lifetime, then the token's own
// exp, then the default TTL.
func (c *Client) accessExpiry(access string, expiresIn int64, calledAt time.Time) time.Time {
	if expiresIn > 0 {
		return calledAt.Add(time.Duration(expiresIn) * time.Second)
	}
	if c.decoder != nil {
		if claim, err := c.decoder.Decode(access); err == nil {
			return claim.ExpiresAt
		}
	}
	return calledAt.Add(c.cfg.AccessDefaultTTL)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("call identity service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// upstreamMessage extracts a message field from an error body, if any.
func upstreamMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return "rejected by identity service"
}
