package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"portal-gateway/internal/auth"
	"portal-gateway/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:     srv.URL,
		RefreshPath: "/api/auth/refresh",
		LoginPath:   "/api/auth/login",
		Timeout:     2 * time.Second,
	}, srv.Client(), auth.NewDecoder(""), func() time.Time { return testNow }, logger.NewDiscardLogger())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func tokenWithExp(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1", "role": "customer", "exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestClient_Refresh(t *testing.T) {
	t.Run("ServerSuppliedLifetime", func(t *testing.T) {
		var got refreshRequest
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/auth/refresh", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			writeJSON(w, http.StatusOK, map[string]interface{}{"access": "tok2", "expiresIn": 900})
		})

		result, err := client.Refresh(context.Background(), "refresh-1")
		require.NoError(t, err)
		assert.Equal(t, "refresh-1", got.RefreshToken)
		assert.Equal(t, "tok2", result.AccessToken)
		assert.Equal(t, testNow.Add(900*time.Second), result.AccessExpiresAt)
		assert.Empty(t, result.RefreshToken)
	})

	t.Run("TokenExpiryFallback", func(t *testing.T) {
		exp := testNow.Add(30 * time.Minute)
		token := tokenWithExp(t, exp)
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"accessToken": token})
		})

		result, err := client.Refresh(context.Background(), "refresh-1")
		require.NoError(t, err)
		assert.True(t, result.AccessExpiresAt.Equal(exp))
	})

	t.Run("DefaultLifetime", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": "opaque"})
		})

		result, err := client.Refresh(context.Background(), "refresh-1")
		require.NoError(t, err)
		assert.Equal(t, testNow.Add(3*time.Hour), result.AccessExpiresAt)
	})

	t.Run("RotatedRefreshCredential", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"accessToken": "tok2", "refreshToken": "refresh-2", "refreshExpiresIn": 3600,
			})
		})

		result, err := client.Refresh(context.Background(), "refresh-1")
		require.NoError(t, err)
		assert.Equal(t, "refresh-2", result.RefreshToken)
		assert.Equal(t, time.Hour, result.RefreshTTL)
	})

	t.Run("Rejected", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh token revoked"})
		})

		_, err := client.Refresh(context.Background(), "refresh-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRefreshFailed)

		var refreshErr *RefreshError
		require.True(t, errors.As(err, &refreshErr))
		assert.Equal(t, http.StatusUnauthorized, refreshErr.StatusCode)
		assert.Contains(t, err.Error(), "refresh token revoked")
	})

	t.Run("MissingAccessCredential", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"expiresIn": 900})
		})

		_, err := client.Refresh(context.Background(), "refresh-1")
		assert.ErrorIs(t, err, ErrRefreshFailed)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>"))
		})

		_, err := client.Refresh(context.Background(), "refresh-1")
		assert.ErrorIs(t, err, ErrRefreshFailed)
	})

	t.Run("Unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		client := NewClient(Config{BaseURL: srv.URL, RefreshPath: "/refresh", Timeout: time.Second},
			nil, nil, nil, logger.NewDiscardLogger())

		_, err := client.Refresh(context.Background(), "refresh-1")
		var refreshErr *RefreshError
		require.True(t, errors.As(err, &refreshErr))
		assert.Zero(t, refreshErr.StatusCode)
	})

	t.Run("NoRefreshCredential", func(t *testing.T) {
		var calls int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		})

		_, err := client.Refresh(context.Background(), "")
		assert.ErrorIs(t, err, ErrRefreshFailed)
		assert.Zero(t, atomic.LoadInt32(&calls))
	})

	t.Run("NotRetried", func(t *testing.T) {
		var calls int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.Refresh(context.Background(), "refresh-1")
		assert.Error(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestClient_RefreshCollapsesConcurrentCalls(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"access": "tok2", "expiresIn": 900})
	})

	const callers = 5
	var started, done sync.WaitGroup
	results := make([]*RefreshResult, callers)
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			res, err := client.Refresh(context.Background(), "refresh-1")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	started.Wait()
	// Give every caller time to join the in-flight exchange
	time.Sleep(100 * time.Millisecond)
	close(release)
	done.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, "tok2", res.AccessToken)
	}
}

func TestClient_RefreshCancelled(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]interface{}{"access": "tok2"})
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Refresh(ctx, "refresh-1")
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type recordingRotator struct {
	calls  int
	access string
	expiry time.Time
}

func (r *recordingRotator) Rotate(w http.ResponseWriter, req *http.Request, access string, accessExpiresAt time.Time, refresh string, refreshTTL time.Duration) {
	r.calls++
	r.access = access
	r.expiry = accessExpiresAt
}

func TestClient_RefreshAndRotate(t *testing.T) {
	t.Run("RotatesOnSuccess", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"access": "tok2", "expiresIn": 900})
		})
		rotator := &recordingRotator{}

		_, err := client.RefreshAndRotate(context.Background(), rotator, httptest.NewRecorder(),
			httptest.NewRequest(http.MethodGet, "/", nil), "refresh-1", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, rotator.calls)
		assert.Equal(t, "tok2", rotator.access)
		assert.Equal(t, testNow.Add(900*time.Second), rotator.expiry)
	})

	t.Run("WritesNothingOnFailure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		rotator := &recordingRotator{}

		_, err := client.RefreshAndRotate(context.Background(), rotator, httptest.NewRecorder(),
			httptest.NewRequest(http.MethodGet, "/", nil), "refresh-1", nil)
		assert.ErrorIs(t, err, ErrRefreshFailed)
		assert.Zero(t, rotator.calls)
	})

	t.Run("RejectedCredentialWritesNothing", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"accessToken": "opaque-tok2", "expiresIn": 900})
		})
		rotator := &recordingRotator{}
		var seen string

		result, err := client.RefreshAndRotate(context.Background(), rotator, httptest.NewRecorder(),
			httptest.NewRequest(http.MethodGet, "/", nil), "refresh-1", func(access string) error {
				seen = access
				return errors.New("not a jwt")
			})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrRefreshFailed)
		assert.ErrorIs(t, err, ErrUnusableCredential)
		assert.Equal(t, "opaque-tok2", seen)
		assert.Zero(t, rotator.calls)
	})
}
