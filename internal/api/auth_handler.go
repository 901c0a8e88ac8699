package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/taskify/taskify-api/internal/api/shared"
	"github.com/taskify/taskify-api/internal/domain"
	"github.com/taskify/taskify-api/internal/platform/logger"
	"github.com/taskify/taskify-api/internal/service/auth"
	"github.com/taskify/taskify-api/internal/store"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	userStore        store.UserStore
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	timeFunc         func() time.Time
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(
	userStore store.UserStore,
	jwtService auth.JWTService,
	passwordVerifier auth.PasswordVerifier,
) *AuthHandler {
	return &AuthHandler{
		userStore:        userStore,
		jwtService:       jwtService,
		passwordVerifier: passwordVerifier,
		timeFunc:         time.Now,
	}
}

// Signup handles POST /api/auth/signup.
// It creates the user, then returns a token pair plus the user snapshot.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	var req SignupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed",
			shared.WithFieldErrors(shared.FieldErrorsFrom(err)))
		return
	}

	user, err := domain.NewUser(req.Name, req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.userStore.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			shared.RespondWithError(w, r, http.StatusConflict, "Email already in use")
			return
		}
		log.Error("failed to create user", "error", err)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to create user", err)
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(r.Context(), user.ID)
	if err != nil {
		log.Error("failed to generate token pair", "error", err, "user_id", user.ID)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	userResp := NewUserResponse(user)
	shared.RespondWithData(w, r, http.StatusCreated, "User registered successfully", AuthResponse{
		User:         &userResp,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Login handles POST /api/auth/login.
// Unknown email and wrong password are indistinguishable to the caller.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	var req LoginRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed",
			shared.WithFieldErrors(shared.FieldErrorsFrom(err)))
		return
	}

	user, err := h.userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		log.Error("failed to get user by email", "error", err)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to authenticate user", err)
		return
	}

	if err := h.passwordVerifier.Compare(user.HashedPassword, req.Password); err != nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(r.Context(), user.ID)
	if err != nil {
		log.Error("failed to generate token pair", "error", err, "user_id", user.ID)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to generate authentication token", err)
		return
	}

	// Best effort: a failed lastLogin write never blocks the login.
	now := h.timeFunc().UTC()
	if err := h.userStore.TouchLastLogin(r.Context(), user.ID, now); err != nil {
		log.Warn("failed to record last login", "error", err, "user_id", user.ID)
	} else {
		user.LastLoginAt = &now
	}

	userResp := NewUserResponse(user)
	shared.RespondWithData(w, r, http.StatusOK, "Login successful", AuthResponse{
		User:         &userResp,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Refresh handles POST /api/auth/refresh.
// A valid refresh token for a still-existing user yields a brand new pair;
// the old refresh token is not tracked (stateless rotation).
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	var req RefreshTokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed",
			shared.WithFieldErrors(shared.FieldErrorsFrom(err)))
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// The user may have been removed since the token was issued.
	user, err := h.userStore.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		log.Error("failed to load user for refresh", "error", err, "user_id", claims.UserID)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to refresh token", err)
		return
	}

	pair, err := h.jwtService.GenerateTokenPair(r.Context(), user.ID)
	if err != nil {
		log.Error("failed to generate token pair", "error", err, "user_id", user.ID)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to refresh token", err)
		return
	}

	shared.RespondWithData(w, r, http.StatusOK, "Token refreshed successfully", AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout handles POST /api/auth/logout.
// Tokens are stateless, so there is nothing to revoke server-side; the
// endpoint exists so clients have a uniform logout call.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithData(w, r, http.StatusOK, "Logout successful", nil)
}
