package models

import "time"

// AuditRun records one completed index scan for the audit history.
type AuditRun struct {
	ID          string        `json:"id" badgerhold:"key"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	TriggeredBy string        `json:"triggered_by"`
	SourceType  string        `json:"source_type,omitempty"`
	Summary     BatchSummary  `json:"summary"`
	PassRate    float64       `json:"pass_rate"`
	Duration    time.Duration `json:"duration"`
}
