// Package client is a Go client for the task API. It owns the session
// lifecycle (token pair storage, transparent refresh) and the optimistic
// task-list reconciliation protocol used by interactive frontends.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taskify/taskify-api/internal/api"
	"github.com/taskify/taskify-api/internal/api/shared"
)

// Session errors.
var (
	// ErrSessionExpired is returned when the access token was rejected and
	// the refresh exchange failed: the caller must authenticate again.
	ErrSessionExpired = errors.New("session expired")

	// ErrUnauthenticated is returned by authenticated calls when no session
	// has been established.
	ErrUnauthenticated = errors.New("not authenticated")
)

// APIError carries a structured error response from the server.
type APIError struct {
	Status  int
	Message string
	Fields  []shared.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// State is the session lifecycle state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

// TokenStore holds the session's token pair. Implementations must be safe
// for concurrent use; the session mutates the pair on login, refresh and
// logout while requests read it.
type TokenStore interface {
	Tokens() (access, refresh string)
	SetTokens(access, refresh string)
	Clear()
}

// MemoryTokenStore is the default in-process TokenStore.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// Tokens implements TokenStore.
func (s *MemoryTokenStore) Tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

// SetTokens implements TokenStore.
func (s *MemoryTokenStore) SetTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
}

// Clear implements TokenStore.
func (s *MemoryTokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
}

// Session is an authenticated API session. A zero Session is not usable;
// construct one with NewSession.
//
// Concurrent requests that hit an expired access token share a single
// in-flight refresh exchange instead of each racing their own.
type Session struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	logger     *slog.Logger

	refreshGroup singleflight.Group

	mu    sync.RWMutex
	state State
	user  *api.UserResponse
}

// SessionOption customizes a Session at construction time.
type SessionOption func(*Session)

// WithHTTPClient overrides the transport used for API calls.
func WithHTTPClient(c *http.Client) SessionOption {
	return func(s *Session) { s.httpClient = c }
}

// WithTokenStore overrides the default in-memory token store.
func WithTokenStore(ts TokenStore) SessionOption {
	return func(s *Session) { s.tokens = ts }
}

// WithLogger sets the logger used for background noise (failed logout
// notifications, refresh outcomes).
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// NewSession creates an unauthenticated session against the given base URL
// (e.g. "http://localhost:8080/api").
func NewSession(baseURL string, opts ...SessionOption) *Session {
	s := &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     &MemoryTokenStore{},
		logger:     slog.Default(),
		state:      StateUnauthenticated,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the authenticated user snapshot, or nil.
func (s *Session) User() *api.UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) setState(state State, user *api.UserResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.user = user
}

// Signup registers a new account and establishes the session.
func (s *Session) Signup(ctx context.Context, name, email, password string) (*api.UserResponse, error) {
	return s.authenticate(ctx, "/auth/signup", api.SignupRequest{
		Name:     name,
		Email:    email,
		Password: password,
	})
}

// Login authenticates with credentials and establishes the session.
func (s *Session) Login(ctx context.Context, email, password string) (*api.UserResponse, error) {
	return s.authenticate(ctx, "/auth/login", api.LoginRequest{
		Email:    email,
		Password: password,
	})
}

func (s *Session) authenticate(ctx context.Context, path string, payload interface{}) (*api.UserResponse, error) {
	s.setState(StateAuthenticating, nil)

	var resp api.AuthResponse
	if err := s.do(ctx, http.MethodPost, path, payload, "", &resp); err != nil {
		s.tokens.Clear()
		s.setState(StateUnauthenticated, nil)
		return nil, err
	}

	s.tokens.SetTokens(resp.AccessToken, resp.RefreshToken)
	s.setState(StateAuthenticated, resp.User)
	return resp.User, nil
}

// Bootstrap restores a session from previously stored tokens by fetching the
// profile. Any failure discards both tokens and leaves the session
// unauthenticated.
func (s *Session) Bootstrap(ctx context.Context) error {
	access, _ := s.tokens.Tokens()
	if access == "" {
		s.setState(StateUnauthenticated, nil)
		return ErrUnauthenticated
	}

	var user api.UserResponse
	if err := s.Do(ctx, http.MethodGet, "/users/profile", nil, &user); err != nil {
		s.tokens.Clear()
		s.setState(StateUnauthenticated, nil)
		return err
	}

	s.setState(StateAuthenticated, &user)
	return nil
}

// Logout notifies the server on a best-effort basis and unconditionally
// clears local session state.
func (s *Session) Logout(ctx context.Context) {
	access, _ := s.tokens.Tokens()
	if access != "" {
		if err := s.do(ctx, http.MethodPost, "/auth/logout", nil, access, nil); err != nil {
			s.logger.Debug("logout notification failed", "error", err)
		}
	}

	s.tokens.Clear()
	s.setState(StateUnauthenticated, nil)
}

// Do performs an authenticated API call, decoding the envelope's data into
// out when out is non-nil. On a 401 it joins the single in-flight refresh
// exchange and retries the original request exactly once with the new access
// token; if the refresh fails the session is cleared and ErrSessionExpired
// returned.
func (s *Session) Do(ctx context.Context, method, path string, body, out interface{}) error {
	access, refresh := s.tokens.Tokens()
	if access == "" {
		return ErrUnauthenticated
	}

	err := s.do(ctx, method, path, body, access, out)
	if !isUnauthorized(err) {
		return err
	}
	if refresh == "" {
		s.expire()
		return ErrSessionExpired
	}

	newAccess, refreshErr := s.refresh(ctx)
	if refreshErr != nil {
		s.logger.Debug("token refresh failed", "error", refreshErr)
		s.expire()
		return ErrSessionExpired
	}

	err = s.do(ctx, method, path, body, newAccess, out)
	if isUnauthorized(err) {
		s.expire()
		return ErrSessionExpired
	}
	return err
}

// refresh exchanges the refresh token for a new pair. Concurrent callers
// share one exchange through the singleflight group.
func (s *Session) refresh(ctx context.Context) (string, error) {
	access, err, _ := s.refreshGroup.Do("refresh", func() (interface{}, error) {
		_, refreshToken := s.tokens.Tokens()
		if refreshToken == "" {
			return "", ErrSessionExpired
		}

		var resp api.AuthResponse
		reqBody := api.RefreshTokenRequest{RefreshToken: refreshToken}
		if err := s.do(ctx, http.MethodPost, "/auth/refresh", reqBody, "", &resp); err != nil {
			return "", err
		}

		s.tokens.SetTokens(resp.AccessToken, resp.RefreshToken)
		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return access.(string), nil
}

func (s *Session) expire() {
	s.tokens.Clear()
	s.setState(StateUnauthenticated, nil)
}

func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// envelope mirrors the server's response wrapper with the payload kept raw
// so it can be decoded into the caller's schema.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  []shared.FieldError `json:"errors"`
}

// do performs one HTTP round trip. token, when non-empty, is attached as a
// bearer credential.
func (s *Session) do(ctx context.Context, method, path string, body interface{}, token string, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Fields: env.Errors}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}
