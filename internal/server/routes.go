package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/vestigo/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Retrieval endpoints; unavailable without a configured LLM provider
	mux.HandleFunc("/api/query", s.requireLLM(s.app.QueryHandler != nil, func(w http.ResponseWriter, r *http.Request) {
		s.app.QueryHandler.QueryHandler(w, r)
	}))
	mux.HandleFunc("/api/chat", s.requireLLM(s.app.ChatHandler != nil, func(w http.ResponseWriter, r *http.Request) {
		s.app.ChatHandler.ChatHandler(w, r)
	}))
	mux.HandleFunc("/api/chat/", s.requireLLM(s.app.ChatHandler != nil, func(w http.ResponseWriter, r *http.Request) {
		s.app.ChatHandler.ConversationHandler(w, r)
	}))
	mux.HandleFunc("/ws/chat", s.requireLLM(s.app.WSHandler != nil, func(w http.ResponseWriter, r *http.Request) {
		s.app.WSHandler.HandleChat(w, r)
	}))

	// Landmark reference data
	mux.HandleFunc("/api/landmarks", s.app.LandmarkHandler.ListHandler)
	mux.HandleFunc("/api/landmarks/", s.app.LandmarkHandler.GetHandler)

	// Vector validation and maintenance
	mux.HandleFunc("/api/vectors/validate/", s.app.VectorHandler.ValidateHandler)
	mux.HandleFunc("/api/vectors/scan", s.app.VectorHandler.ScanHandler)
	mux.HandleFunc("/api/vectors/repair", s.app.VectorHandler.RepairHandler)
	mux.HandleFunc("/api/vectors", s.app.VectorHandler.DeleteHandler)

	// Audit history
	mux.HandleFunc("/api/audit/history", s.app.AuditHandler.HistoryHandler)
	mux.HandleFunc("/api/audit/run", s.app.AuditHandler.TriggerHandler)
	mux.HandleFunc("/api/audit/report.pdf", s.app.AuditHandler.ReportHandler)

	// System
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.StatusHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler)

	// 404 for unmatched API routes
	mux.HandleFunc("/api/", s.app.StatusHandler.NotFoundHandler)

	return mux
}

// requireLLM returns the handler when available, or a 503 when the LLM stack
// is not configured.
func (s *Server) requireLLM(available bool, handler http.HandlerFunc) http.HandlerFunc {
	if available {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusServiceUnavailable, "LLM provider not configured")
	}
}

// ShutdownHandler handles POST /api/shutdown for graceful stops in
// development. Only loopback callers are accepted.
func (s *Server) ShutdownHandler(w http.ResponseWriter, r *http.Request) {
	if !handlers.RequireMethod(w, r, "POST") {
		return
	}
	if !isLoopback(r.RemoteAddr) {
		handlers.WriteError(w, http.StatusForbidden, "Shutdown is only accepted from localhost")
		return
	}

	handlers.WriteSuccess(w, "Shutting down")
	s.app.Logger.Info().Str("remote", r.RemoteAddr).Msg("Shutdown requested via API")

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.shutdownOnce.Do(func() { close(s.shutdownChan) })
	}()
}

func isLoopback(remoteAddr string) bool {
	host := remoteAddr
	if i := strings.LastIndex(remoteAddr, ":"); i >= 0 {
		host = remoteAddr[:i]
	}
	host = strings.Trim(host, "[]")
	return host == "127.0.0.1" || host == "::1" || host == "localhost"
}
