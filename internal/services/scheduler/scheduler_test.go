package scheduler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/reconciler"
	"github.com/ternarybob/vestigo/internal/services/validation"
)

type fakeStorage struct {
	interfaces.VectorStorage
	records map[string]*models.VectorRecord
}

func (f *fakeStorage) ListBySourceType(ctx context.Context, sourceType string, limit int, paginationToken string) ([]string, string, error) {
	if paginationToken != "" {
		return nil, "", nil
	}
	ids := make([]string, 0, len(f.records))
	for id := range f.records {
		ids = append(ids, id)
	}
	return ids, "", nil
}

func (f *fakeStorage) FetchByIDs(ctx context.Context, ids []string) (map[string]*models.VectorRecord, error) {
	out := make(map[string]*models.VectorRecord)
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

type fakeHistory struct {
	saved []*models.AuditRun
}

func (f *fakeHistory) SaveRun(run *models.AuditRun) error          { f.saved = append(f.saved, run); return nil }
func (f *fakeHistory) GetRun(id string) (*models.AuditRun, error)  { return nil, nil }
func (f *fakeHistory) ListRuns(limit int) ([]*models.AuditRun, error) { return f.saved, nil }

func pdfRecord(landmarkID string, chunk int) *models.VectorRecord {
	return &models.VectorRecord{
		ID: fmt.Sprintf("%s-chunk-%d", landmarkID, chunk),
		Metadata: map[string]interface{}{
			models.FieldLandmarkID: landmarkID,
			models.FieldSourceType: models.SourceTypePDF,
			models.FieldChunkIndex: chunk,
			models.FieldText:       "designation text",
		},
	}
}

func TestRunNowPersistsAuditRun(t *testing.T) {
	record := pdfRecord("LP-00099", 0)
	storage := &fakeStorage{records: map[string]*models.VectorRecord{record.ID: record}}

	history := &fakeHistory{}
	recon := reconciler.NewService(storage, validation.NewValidator(nil), common.GetLogger())
	cfg := common.AuditConfig{PassThreshold: 0.95, ScanLimit: 100}

	s := NewAuditScheduler(recon, history, cfg, common.GetLogger())
	run := s.RunNow()

	require.NotNil(t, run)
	assert.Equal(t, "manual", run.TriggeredBy)
	assert.Equal(t, 1, run.Summary.Total)
	assert.Equal(t, 1, run.Summary.Passed)
	assert.Equal(t, 1.0, run.PassRate)
	assert.NotEmpty(t, run.ID)

	require.Len(t, history.saved, 1)
	assert.Equal(t, run.ID, history.saved[0].ID)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	recon := reconciler.NewService(&fakeStorage{}, validation.NewValidator(nil), common.GetLogger())
	cfg := common.AuditConfig{Schedule: "not a schedule"}

	s := NewAuditScheduler(recon, &fakeHistory{}, cfg, common.GetLogger())
	err := s.Start()
	assert.Error(t, err)
}

func TestStartAndStopWithValidSchedule(t *testing.T) {
	recon := reconciler.NewService(&fakeStorage{}, validation.NewValidator(nil), common.GetLogger())
	cfg := common.AuditConfig{Schedule: "0 0 * * * *"}

	s := NewAuditScheduler(recon, &fakeHistory{}, cfg, common.GetLogger())
	require.NoError(t, s.Start())
	s.Stop()
}
