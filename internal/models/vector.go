package models

// Source types for stored vector chunks. A chunk originates from either a
// designation report PDF, a Wikipedia article, or synthetic test data.
const (
	SourceTypePDF       = "pdf"
	SourceTypeWikipedia = "wikipedia"
	SourceTypeTest      = "test"
	SourceTypeUnknown   = "unknown"
)

// Metadata field names required on every stored vector.
const (
	FieldLandmarkID   = "landmark_id"
	FieldSourceType   = "source_type"
	FieldChunkIndex   = "chunk_index"
	FieldText         = "text"
	FieldArticleTitle = "article_title"
	FieldArticleURL   = "article_url"
)

// VectorRecord is the normalized shape of one stored vector as returned by the
// storage adapter. All response-shape ambiguity from the hosted index API is
// resolved at the adapter boundary; everything above it works on this struct.
type VectorRecord struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values,omitempty"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float32                `json:"score,omitempty"`
}

// LandmarkID returns the landmark_id metadata value, or "" when absent.
func (r *VectorRecord) LandmarkID() string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata[FieldLandmarkID].(string); ok {
		return v
	}
	return ""
}

// SourceType returns the source_type metadata value, or "" when absent.
func (r *VectorRecord) SourceType() string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata[FieldSourceType].(string); ok {
		return v
	}
	return ""
}

// ValidationReport holds the outcome of validating a single vector record.
// Violations are accumulated, never short-circuited: a report lists every
// detected problem.
type ValidationReport struct {
	ID         string   `json:"id"`
	IsValid    bool     `json:"is_valid"`
	Violations []string `json:"violations"`
}

// BatchSummary aggregates validation results across a scan.
type BatchSummary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	NotFound int `json:"not_found,omitempty"`

	// PerRecordViolations maps failed record IDs to their violation lists.
	// Passing records are not listed.
	PerRecordViolations map[string][]string `json:"per_record_violations,omitempty"`
}

// PassRate returns the fraction of found records that passed, in [0,1].
// A scan that found nothing passes vacuously.
func (s *BatchSummary) PassRate() float64 {
	checked := s.Passed + s.Failed
	if checked == 0 {
		return 1.0
	}
	return float64(s.Passed) / float64(checked)
}

// Merge folds another summary into this one. Counts are commutative so
// summaries from concurrently validated pages can be merged in any order.
func (s *BatchSummary) Merge(other *BatchSummary) {
	if other == nil {
		return
	}
	s.Total += other.Total
	s.Passed += other.Passed
	s.Failed += other.Failed
	s.NotFound += other.NotFound
	if len(other.PerRecordViolations) > 0 {
		if s.PerRecordViolations == nil {
			s.PerRecordViolations = make(map[string][]string, len(other.PerRecordViolations))
		}
		for id, v := range other.PerRecordViolations {
			s.PerRecordViolations[id] = v
		}
	}
}

// RepairAction describes one metadata patch the repair pass produced.
type RepairAction struct {
	ID           string `json:"id"`
	ArticleTitle string `json:"article_title,omitempty"`
	ArticleURL   string `json:"article_url,omitempty"`
	Applied      bool   `json:"applied"`
}

// RepairSummary aggregates the outcome of a metadata repair pass.
type RepairSummary struct {
	Scanned  int            `json:"scanned"`
	Repaired int            `json:"repaired"`
	Skipped  int            `json:"skipped"`
	DryRun   bool           `json:"dry_run"`
	Actions  []RepairAction `json:"actions,omitempty"`
}

// Landmark coverage classification for a scan grouped by landmark_id.
const (
	CoverageFull    = "full"
	CoveragePartial = "partial"
	CoverageNone    = "none"
)

// LandmarkCoverage summarizes validation results for one landmark's vectors.
type LandmarkCoverage struct {
	LandmarkID string `json:"landmark_id"`
	Total      int    `json:"total"`
	Valid      int    `json:"valid"`
	Coverage   string `json:"coverage"`
}

// CoverageReport aggregates per-landmark coverage over a scan.
type CoverageReport struct {
	Landmarks       []LandmarkCoverage `json:"landmarks"`
	FullCoverage    int                `json:"full_coverage"`
	PartialCoverage int                `json:"partial_coverage"`
	NoCoverage      int                `json:"no_coverage"`
	CoveragePercent float64            `json:"coverage_percent"`
}
