package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/taskify/taskify-api/internal/api/shared"
	"github.com/taskify/taskify-api/internal/platform/logger"
)

// HealthHandler reports service liveness and database connectivity.
type HealthHandler struct {
	db        *sql.DB
	startedAt time.Time
	timeFunc  func() time.Time
}

// NewHealthHandler creates a new HealthHandler. startedAt anchors the uptime
// report; pass the process start time.
func NewHealthHandler(db *sql.DB, startedAt time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		startedAt: startedAt,
		timeFunc:  time.Now,
	}
}

// Check handles GET /api/health.
// A failed database ping degrades the response to 500; everything else is
// informational.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	now := h.timeFunc()

	dbState := "connected"
	status := http.StatusOK
	if err := h.db.PingContext(r.Context()); err != nil {
		log.Error("database ping failed", slog.String("error", err.Error()))
		dbState = "disconnected"
		status = http.StatusInternalServerError
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	body := HealthResponse{
		Status:   "ok",
		Database: dbState,
		Uptime:   now.Sub(h.startedAt).Round(time.Second).String(),
		Memory: MemoryStats{
			AllocMB:      mem.Alloc / 1024 / 1024,
			TotalAllocMB: mem.TotalAlloc / 1024 / 1024,
			SysMB:        mem.Sys / 1024 / 1024,
			NumGC:        mem.NumGC,
		},
		GoVersion: runtime.Version(),
		Timestamp: now.UTC(),
	}
	if status != http.StatusOK {
		body.Status = "degraded"
	}

	// The envelope mirrors the status: a degraded check is an error
	// response that still carries the diagnostic payload.
	shared.RespondWithJSON(w, r, status, shared.Envelope{
		Success: status == http.StatusOK,
		Message: "Health check",
		Data:    body,
		TraceID: shared.GetTraceID(r.Context()),
	})
}
