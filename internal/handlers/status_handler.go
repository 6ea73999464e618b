package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
)

// StatusHandler serves health, version, and index status endpoints.
type StatusHandler struct {
	storage   interfaces.VectorStorage
	config    *common.Config
	startedAt time.Time
	logger    arbor.ILogger
}

func NewStatusHandler(storage interfaces.VectorStorage, config *common.Config) *StatusHandler {
	return &StatusHandler{
		storage:   storage,
		config:    config,
		startedAt: time.Now(),
		logger:    common.GetLogger(),
	}
}

// HealthHandler handles GET /api/health.
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler handles GET /api/version.
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
	})
}

// StatusHandler handles GET /api/status, reporting uptime and index stats.
// Index unavailability is reported in the payload, not as an HTTP failure.
func (h *StatusHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := map[string]interface{}{
		"status":      "ok",
		"version":     common.GetVersion(),
		"environment": h.config.Environment,
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
	}

	count, dimension, err := h.storage.Stats(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Index stats unavailable")
		status["index"] = map[string]interface{}{"available": false, "error": err.Error()}
	} else {
		status["index"] = map[string]interface{}{
			"available":    true,
			"vector_count": count,
			"dimension":    dimension,
		}
	}

	WriteJSON(w, http.StatusOK, status)
}

// NotFoundHandler handles unmatched /api/ paths with a JSON 404.
func (h *StatusHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
