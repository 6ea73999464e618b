package interfaces

import (
	"context"

	"github.com/ternarybob/vestigo/internal/models"
)

// LandmarkService serves NYC landmark reference data, backed by the city
// open data API with a local cache.
type LandmarkService interface {
	// GetLandmark returns one landmark by its LP number.
	GetLandmark(ctx context.Context, lpNumber string) (*models.Landmark, error)

	// ListLandmarks returns landmarks matching the filter.
	ListLandmarks(ctx context.Context, filter models.LandmarkFilter) ([]*models.Landmark, error)

	// KnownLandmarkIDs returns the set of designated LP numbers, used by
	// reconciliation to cross-check landmark_id metadata.
	KnownLandmarkIDs(ctx context.Context) (map[string]bool, error)
}

// AuditStorage persists scan history.
type AuditStorage interface {
	SaveRun(run *models.AuditRun) error
	GetRun(id string) (*models.AuditRun, error)
	ListRuns(limit int) ([]*models.AuditRun, error)
}
