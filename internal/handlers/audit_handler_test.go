package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/pdf"
)

type fakeAuditHistory struct {
	runs []*models.AuditRun
	err  error
}

func (f *fakeAuditHistory) SaveRun(run *models.AuditRun) error { return nil }
func (f *fakeAuditHistory) GetRun(id string) (*models.AuditRun, error) {
	return nil, fmt.Errorf("run '%s' not found", id)
}
func (f *fakeAuditHistory) ListRuns(limit int) ([]*models.AuditRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

type fakeTrigger struct{ run *models.AuditRun }

func (f *fakeTrigger) RunNow() *models.AuditRun { return f.run }

func auditRun(id string) *models.AuditRun {
	return &models.AuditRun{
		ID:        id,
		StartedAt: time.Now(),
		Summary:   models.BatchSummary{Total: 5, Passed: 5},
		PassRate:  1.0,
	}
}

func TestHistoryHandler(t *testing.T) {
	history := &fakeAuditHistory{runs: []*models.AuditRun{auditRun("r1"), auditRun("r2")}}
	h := NewAuditHandler(history, nil, pdf.NewReportWriter(nil))

	req := httptest.NewRequest("GET", "/api/audit/history", nil)
	rec := httptest.NewRecorder()
	h.HistoryHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestHistoryHandlerLimit(t *testing.T) {
	history := &fakeAuditHistory{runs: []*models.AuditRun{auditRun("r1"), auditRun("r2")}}
	h := NewAuditHandler(history, nil, pdf.NewReportWriter(nil))

	req := httptest.NewRequest("GET", "/api/audit/history?limit=1", nil)
	rec := httptest.NewRecorder()
	h.HistoryHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestHistoryHandlerBadLimit(t *testing.T) {
	h := NewAuditHandler(&fakeAuditHistory{}, nil, pdf.NewReportWriter(nil))

	req := httptest.NewRequest("GET", "/api/audit/history?limit=abc", nil)
	rec := httptest.NewRecorder()
	h.HistoryHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerHandler(t *testing.T) {
	h := NewAuditHandler(&fakeAuditHistory{}, &fakeTrigger{run: auditRun("r-manual")}, pdf.NewReportWriter(nil))

	req := httptest.NewRequest("POST", "/api/audit/run", nil)
	rec := httptest.NewRecorder()
	h.TriggerHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"r-manual"`)
}

func TestTriggerHandlerFailedRun(t *testing.T) {
	h := NewAuditHandler(&fakeAuditHistory{}, &fakeTrigger{run: nil}, pdf.NewReportWriter(nil))

	req := httptest.NewRequest("POST", "/api/audit/run", nil)
	rec := httptest.NewRecorder()
	h.TriggerHandler(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestReportHandlerServesPDF(t *testing.T) {
	history := &fakeAuditHistory{runs: []*models.AuditRun{auditRun("r1")}}
	h := NewAuditHandler(history, nil, pdf.NewReportWriter(nil))

	req := httptest.NewRequest("GET", "/api/audit/report.pdf", nil)
	rec := httptest.NewRecorder()
	h.ReportHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", rec.Body.String()[:4])
}

func TestReportHandlerHistoryFailure(t *testing.T) {
	history := &fakeAuditHistory{err: fmt.Errorf("store unavailable")}
	h := NewAuditHandler(history, nil, pdf.NewReportWriter(nil))

	req := httptest.NewRequest("GET", "/api/audit/report.pdf", nil)
	rec := httptest.NewRecorder()
	h.ReportHandler(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
