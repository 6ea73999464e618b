package handlers

import (
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/pdf"
)

// AuditTrigger starts an audit outside the schedule.
type AuditTrigger interface {
	RunNow() *models.AuditRun
}

// AuditHandler serves scan history and the PDF report.
type AuditHandler struct {
	history interfaces.AuditStorage
	trigger AuditTrigger
	report  *pdf.ReportWriter
	logger  arbor.ILogger
}

func NewAuditHandler(history interfaces.AuditStorage, trigger AuditTrigger, report *pdf.ReportWriter) *AuditHandler {
	return &AuditHandler{
		history: history,
		trigger: trigger,
		report:  report,
		logger:  common.GetLogger(),
	}
}

// HistoryHandler handles GET /api/audit/history.
func (h *AuditHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			WriteError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	runs, err := h.history.ListRuns(limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Audit history listing failed")
		WriteError(w, http.StatusInternalServerError, "Failed to list audit runs: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// TriggerHandler handles POST /api/audit/run.
func (h *AuditHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}
	if h.trigger == nil {
		WriteError(w, http.StatusServiceUnavailable, "Audit scheduling is disabled")
		return
	}

	run := h.trigger.RunNow()
	if run == nil {
		WriteError(w, http.StatusBadGateway, "Audit run failed")
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// ReportHandler handles GET /api/audit/report.pdf.
func (h *AuditHandler) ReportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	runs, err := h.history.ListRuns(20)
	if err != nil {
		h.logger.Error().Err(err).Msg("Audit history listing failed")
		WriteError(w, http.StatusInternalServerError, "Failed to list audit runs: "+err.Error())
		return
	}

	data, err := h.report.WriteAuditReport(runs)
	if err != nil {
		h.logger.Error().Err(err).Msg("Audit report generation failed")
		WriteError(w, http.StatusInternalServerError, "Failed to generate report: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="vestigo-audit-report.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
