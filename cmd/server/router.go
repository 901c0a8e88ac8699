package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/taskify/taskify-api/internal/api"
	apiMiddleware "github.com/taskify/taskify-api/internal/api/middleware"
)

// Rate limit applied to the public auth endpoints, where credential stuffing
// is the concern.
const (
	authRateLimitPerSecond = 5
	authRateLimitBurst     = 10
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	api.SetDevelopmentMode(app.config.Server.IsDevelopment())

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(app.userStore, app.jwtService, app.passwordVerifier)
	userHandler := api.NewUserHandler(app.userStore)
	taskHandler := api.NewTaskHandler(app.taskStore, app.db)
	healthHandler := api.NewHealthHandler(app.db, app.startedAt)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public, rate limited)
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.RateLimit(authRateLimitPerSecond, authRateLimitBurst))
			r.Post("/auth/signup", authHandler.Signup)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/refresh", authHandler.Refresh)
			r.Post("/auth/logout", authHandler.Logout)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/users/profile", userHandler.GetProfile)
			r.Patch("/users/profile", userHandler.UpdateProfile)

			r.Post("/tasks", taskHandler.Create)
			r.Get("/tasks", taskHandler.List)
			r.Get("/tasks/stats/overview", taskHandler.StatsOverview)
			r.Get("/tasks/{id}", taskHandler.Get)
			r.Patch("/tasks/{id}", taskHandler.Update)
			r.Delete("/tasks/{id}", taskHandler.Delete)
		})

		r.Get("/health", healthHandler.Check)
	})

	// Root banner
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Taskify API",
			"data": map[string]string{
				"health": "/api/health",
			},
		})
	})

	// Unknown routes get a structured 404 echoing the requested path.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "API endpoint not found",
			"path":    r.URL.Path,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
