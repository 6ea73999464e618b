// Package pdf renders audit scan history into downloadable PDF reports.
package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/models"
)

// ReportWriter produces the audit report PDF.
type ReportWriter struct {
	logger arbor.ILogger
}

func NewReportWriter(logger arbor.ILogger) *ReportWriter {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &ReportWriter{logger: logger}
}

// WriteAuditReport renders the given runs, newest first, into a PDF.
func (w *ReportWriter) WriteAuditReport(runs []*models.AuditRun) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Vestigo Index Audit Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", time.Now().UTC().Format("2006-01-02 15:04 UTC")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if len(runs) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 8, "No audit runs recorded.", "", 1, "L", false, 0, "")
	} else {
		w.writeSummaryTable(pdf, runs)
		w.writeLatestRunDetail(pdf, runs[0])
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	w.logger.Debug().
		Int("runs", len(runs)).
		Int("pdf_size", buf.Len()).
		Msg("Audit report generated")
	return buf.Bytes(), nil
}

func (w *ReportWriter) writeSummaryTable(pdf *fpdf.Fpdf, runs []*models.AuditRun) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "Scan History", "", 1, "L", false, 0, "")

	headers := []string{"Started", "Trigger", "Total", "Passed", "Failed", "Not Found", "Pass Rate"}
	widths := []float64{38, 25, 20, 20, 20, 22, 25}

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, run := range runs {
		cells := []string{
			run.StartedAt.UTC().Format("2006-01-02 15:04"),
			run.TriggeredBy,
			fmt.Sprintf("%d", run.Summary.Total),
			fmt.Sprintf("%d", run.Summary.Passed),
			fmt.Sprintf("%d", run.Summary.Failed),
			fmt.Sprintf("%d", run.Summary.NotFound),
			fmt.Sprintf("%.1f%%", run.PassRate*100),
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)
}

// writeLatestRunDetail lists the violations from the most recent run, capped
// so oversized scans do not produce unbounded reports.
func (w *ReportWriter) writeLatestRunDetail(pdf *fpdf.Fpdf, run *models.AuditRun) {
	const maxListed = 50

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 8, "Latest Run Violations", "", 1, "L", false, 0, "")

	if len(run.Summary.PerRecordViolations) == 0 {
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(0, 6, "All scanned records passed validation.", "", 1, "L", false, 0, "")
		return
	}

	ids := make([]string, 0, len(run.Summary.PerRecordViolations))
	for id := range run.Summary.PerRecordViolations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	listed := 0
	for _, id := range ids {
		if listed >= maxListed {
			pdf.SetFont("Arial", "I", 8)
			pdf.CellFormat(0, 5, fmt.Sprintf("... and %d more records", len(ids)-maxListed), "", 1, "L", false, 0, "")
			break
		}
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(0, 5, id, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		for _, violation := range run.Summary.PerRecordViolations[id] {
			pdf.CellFormat(0, 4.5, "  - "+violation, "", 1, "L", false, 0, "")
		}
		listed++
	}
}
