// Package scheduler runs periodic index audits and records their outcomes.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/reconciler"
)

// AuditScheduler runs index scans on a cron schedule and persists each run
// to the audit history.
type AuditScheduler struct {
	reconciler *reconciler.Service
	history    interfaces.AuditStorage
	config     common.AuditConfig
	cron       *cron.Cron
	logger     arbor.ILogger
}

func NewAuditScheduler(
	reconcilerSvc *reconciler.Service,
	history interfaces.AuditStorage,
	config common.AuditConfig,
	logger arbor.ILogger,
) *AuditScheduler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &AuditScheduler{
		reconciler: reconcilerSvc,
		history:    history,
		config:     config,
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger,
	}
}

// Start registers the audit job and begins the schedule.
func (s *AuditScheduler) Start() error {
	schedule := s.config.Schedule
	if schedule == "" {
		// hourly
		schedule = "0 0 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runAudit("schedule")
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Float64("pass_threshold", s.config.PassThreshold).
		Msg("Audit scheduler started")
	return nil
}

// Stop halts the schedule. Running audits finish.
func (s *AuditScheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Audit scheduler stopped")
}

// RunNow triggers an immediate audit outside the schedule.
func (s *AuditScheduler) RunNow() *models.AuditRun {
	return s.runAudit("manual")
}

func (s *AuditScheduler) runAudit(trigger string) *models.AuditRun {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	started := time.Now()
	s.logger.Info().Str("trigger", trigger).Msg("Starting index audit")

	summary, err := s.reconciler.Scan(ctx, reconciler.ScanOptions{
		Limit:           s.config.ScanLimit,
		CheckEmbeddings: s.config.CheckEmbeddings,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Index audit failed")
		return nil
	}

	run := &models.AuditRun{
		ID:          uuid.New().String(),
		StartedAt:   started,
		CompletedAt: time.Now(),
		TriggeredBy: trigger,
		Summary:     *summary,
		PassRate:    summary.PassRate(),
		Duration:    time.Since(started),
	}

	if err := s.history.SaveRun(run); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist audit run")
	}

	event := s.logger.Info()
	if run.PassRate < s.config.PassThreshold {
		event = s.logger.Warn()
	}
	event.
		Str("trigger", trigger).
		Int("total", summary.Total).
		Int("failed", summary.Failed).
		Int("not_found", summary.NotFound).
		Float64("pass_rate", run.PassRate).
		Dur("duration", run.Duration).
		Msg("Index audit completed")

	return run
}
