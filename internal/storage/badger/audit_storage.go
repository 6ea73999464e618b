package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
)

// AuditStorage persists completed scan runs for the audit history endpoint.
type AuditStorage struct {
	db           *BadgerDB
	historyLimit int
	logger       arbor.ILogger
}

// NewAuditStorage creates an AuditStorage keeping at most historyLimit runs.
func NewAuditStorage(db *BadgerDB, historyLimit int, logger arbor.ILogger) interfaces.AuditStorage {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &AuditStorage{
		db:           db,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// SaveRun stores a completed run and prunes history beyond the limit.
func (s *AuditStorage) SaveRun(run *models.AuditRun) error {
	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save audit run: %w", err)
	}
	s.prune()
	return nil
}

// GetRun returns one run by ID.
func (s *AuditStorage) GetRun(id string) (*models.AuditRun, error) {
	var run models.AuditRun
	err := s.db.Store().Get(id, &run)
	if err == badgerhold.ErrNotFound {
		return nil, fmt.Errorf("audit run %s: %w", id, ErrKeyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit run: %w", err)
	}
	return &run, nil
}

// ListRuns returns up to limit runs, most recent first.
func (s *AuditStorage) ListRuns(limit int) ([]*models.AuditRun, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	var runs []models.AuditRun
	query := &badgerhold.Query{}
	if err := s.db.Store().Find(&runs, query.SortBy("StartedAt").Reverse().Limit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list audit runs: %w", err)
	}

	result := make([]*models.AuditRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

// prune removes the oldest runs past the history limit.
func (s *AuditStorage) prune() {
	var runs []models.AuditRun
	query := &badgerhold.Query{}
	if err := s.db.Store().Find(&runs, query.SortBy("StartedAt").Reverse()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to enumerate audit runs for pruning")
		return
	}
	for i := s.historyLimit; i < len(runs); i++ {
		if err := s.db.Store().Delete(runs[i].ID, &models.AuditRun{}); err != nil {
			s.logger.Warn().Str("id", runs[i].ID).Err(err).Msg("Failed to prune audit run")
		}
	}
}
