package client

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

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskify/taskify-api/internal/api"
)

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": success,
		"message": message,
		"data":    data,
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) {
		return h[len(prefix):]
	}
	return ""
}

// authTestServer is a minimal stand-in for the API that tracks which access
// token is currently valid and how many refresh exchanges happened.
type authTestServer struct {
	mu           sync.Mutex
	validAccess  string
	validRefresh string
	refreshCalls atomic.Int32
	refreshDelay time.Duration
	refreshFails bool
	userID       uuid.UUID
}

func (s *authTestServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "password123" {
			writeEnvelope(w, http.StatusUnauthorized, false, "Invalid email or password", nil)
			return
		}
		s.mu.Lock()
		s.validAccess = "access-1"
		s.validRefresh = "refresh-1"
		s.mu.Unlock()
		writeEnvelope(w, http.StatusOK, true, "Login successful", map[string]interface{}{
			"accessToken":  "access-1",
			"refreshToken": "refresh-1",
			"user":         map[string]interface{}{"id": s.userID, "email": req.Email},
		})
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		if s.refreshDelay > 0 {
			time.Sleep(s.refreshDelay)
		}

		var req api.RefreshTokenRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.refreshFails || req.RefreshToken != s.validRefresh {
			writeEnvelope(w, http.StatusUnauthorized, false, "Invalid refresh token", nil)
			return
		}
		s.validAccess = "access-" + uuid.NewString()
		s.validRefresh = "refresh-" + uuid.NewString()
		writeEnvelope(w, http.StatusOK, true, "Token refreshed successfully", map[string]interface{}{
			"accessToken":  s.validAccess,
			"refreshToken": s.validRefresh,
		})
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "Logout successful", nil)
	})

	mux.HandleFunc("GET /users/profile", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		valid := bearerToken(r) == s.validAccess
		s.mu.Unlock()
		if !valid {
			writeEnvelope(w, http.StatusUnauthorized, false, "Invalid token", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "Profile retrieved successfully",
			map[string]interface{}{"id": s.userID, "email": "user@example.com"})
	})

	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		valid := bearerToken(r) == s.validAccess
		s.mu.Unlock()
		if !valid {
			writeEnvelope(w, http.StatusUnauthorized, false, "Invalid token", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "Tasks retrieved successfully", map[string]interface{}{
			"tasks":        []interface{}{},
			"pagination":   map[string]interface{}{"page": 1, "limit": 100, "total": 0, "totalPages": 0},
			"stats":        map[string]interface{}{},
			"overdueCount": 0,
		})
	})

	return mux
}

func newSessionFixture(t *testing.T) (*Session, *authTestServer) {
	t.Helper()
	backend := &authTestServer{userID: uuid.New()}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	return NewSession(srv.URL), backend
}

func TestSessionLogin(t *testing.T) {
	t.Parallel()

	t.Run("success stores tokens and user", func(t *testing.T) {
		t.Parallel()
		session, backend := newSessionFixture(t)

		user, err := session.Login(context.Background(), "user@example.com", "password123")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, backend.userID, user.ID)
		assert.Equal(t, StateAuthenticated, session.State())

		access, refresh := session.tokens.Tokens()
		assert.Equal(t, "access-1", access)
		assert.Equal(t, "refresh-1", refresh)
	})

	t.Run("failure clears state and surfaces the error", func(t *testing.T) {
		t.Parallel()
		session, _ := newSessionFixture(t)

		_, err := session.Login(context.Background(), "user@example.com", "wrong")
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "Invalid email or password", apiErr.Message)
		assert.Equal(t, StateUnauthenticated, session.State())

		access, refresh := session.tokens.Tokens()
		assert.Empty(t, access)
		assert.Empty(t, refresh)
	})
}

func TestSessionDoRefreshesOnce(t *testing.T) {
	t.Parallel()
	session, backend := newSessionFixture(t)

	_, err := session.Login(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)

	// Invalidate the access token server-side; the refresh token stays good.
	backend.mu.Lock()
	backend.validAccess = "rotated-away"
	backend.mu.Unlock()

	var resp api.TaskListResponse
	err = session.Do(context.Background(), http.MethodGet, "/tasks", nil, &resp)
	require.NoError(t, err)

	assert.Equal(t, int32(1), backend.refreshCalls.Load())

	// The new pair must be persisted for subsequent calls.
	access, _ := session.tokens.Tokens()
	backend.mu.Lock()
	assert.Equal(t, backend.validAccess, access)
	backend.mu.Unlock()
}

func TestSessionConcurrentRefreshCoalesced(t *testing.T) {
	t.Parallel()
	session, backend := newSessionFixture(t)
	backend.refreshDelay = 100 * time.Millisecond

	_, err := session.Login(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)

	backend.mu.Lock()
	backend.validAccess = "rotated-away"
	backend.mu.Unlock()

	const workers = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			var resp api.TaskListResponse
			errs[i] = session.Do(context.Background(), http.MethodGet, "/tasks", nil, &resp)
		}(i)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "worker %d", i)
	}
	assert.Equal(t, int32(1), backend.refreshCalls.Load(),
		"concurrent 401s must share a single refresh exchange")
}

func TestSessionRefreshFailureExpires(t *testing.T) {
	t.Parallel()
	session, backend := newSessionFixture(t)

	_, err := session.Login(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)

	backend.mu.Lock()
	backend.validAccess = "rotated-away"
	backend.refreshFails = true
	backend.mu.Unlock()

	var resp api.TaskListResponse
	err = session.Do(context.Background(), http.MethodGet, "/tasks", nil, &resp)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, StateUnauthenticated, session.State())

	access, refresh := session.tokens.Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestSessionBootstrap(t *testing.T) {
	t.Parallel()

	t.Run("valid stored token restores the session", func(t *testing.T) {
		t.Parallel()
		session, backend := newSessionFixture(t)
		backend.mu.Lock()
		backend.validAccess = "stored-access"
		backend.validRefresh = "stored-refresh"
		backend.mu.Unlock()
		session.tokens.SetTokens("stored-access", "stored-refresh")

		require.NoError(t, session.Bootstrap(context.Background()))
		assert.Equal(t, StateAuthenticated, session.State())
		require.NotNil(t, session.User())
		assert.Equal(t, "user@example.com", session.User().Email)
	})

	t.Run("no stored token", func(t *testing.T) {
		t.Parallel()
		session, _ := newSessionFixture(t)

		err := session.Bootstrap(context.Background())
		require.ErrorIs(t, err, ErrUnauthenticated)
		assert.Equal(t, StateUnauthenticated, session.State())
	})

	t.Run("rejected token discards the pair", func(t *testing.T) {
		t.Parallel()
		session, backend := newSessionFixture(t)
		backend.refreshFails = true
		session.tokens.SetTokens("stale-access", "stale-refresh")

		err := session.Bootstrap(context.Background())
		require.Error(t, err)
		assert.Equal(t, StateUnauthenticated, session.State())

		access, refresh := session.tokens.Tokens()
		assert.Empty(t, access)
		assert.Empty(t, refresh)
	})
}

func TestSessionLogout(t *testing.T) {
	t.Parallel()
	session, _ := newSessionFixture(t)

	_, err := session.Login(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)

	session.Logout(context.Background())
	assert.Equal(t, StateUnauthenticated, session.State())
	assert.Nil(t, session.User())

	access, refresh := session.tokens.Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)

	// Authenticated calls now fail locally.
	err = session.Do(context.Background(), http.MethodGet, "/tasks", nil, nil)
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}
