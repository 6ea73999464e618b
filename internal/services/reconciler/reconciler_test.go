package reconciler

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/identifiers"
)

// fakeStorage is an in-memory stand-in for the index adapter.
type fakeStorage struct {
	mu      sync.Mutex
	records  map[string]*models.VectorRecord
	updates  map[string]map[string]interface{}
	listErr  error
	fetchErr error
	pageLen  int
}

func newFakeStorage(records ...*models.VectorRecord) *fakeStorage {
	s := &fakeStorage{
		records: map[string]*models.VectorRecord{},
		updates: map[string]map[string]interface{}{},
		pageLen: 2,
	}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *fakeStorage) FetchByID(ctx context.Context, id string) (*models.VectorRecord, error) {
	if r, ok := s.records[id]; ok {
		return r, nil
	}
	return nil, errors.New("not found")
}

func (s *fakeStorage) FetchByIDs(ctx context.Context, ids []string) (map[string]*models.VectorRecord, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	out := map[string]*models.VectorRecord{}
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (s *fakeStorage) Query(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]*models.VectorRecord, error) {
	return nil, nil
}

func (s *fakeStorage) QueryByFilter(ctx context.Context, filter map[string]interface{}, pageSize int, includeEmbedding bool) ([]*models.VectorRecord, error) {
	return nil, nil
}

func (s *fakeStorage) ListBySourceType(ctx context.Context, sourceType string, limit int, token string) ([]string, string, error) {
	if s.listErr != nil {
		return nil, "", s.listErr
	}

	var ids []string
	for id, r := range s.records {
		if sourceType == "" || r.SourceType() == sourceType {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	start := 0
	if token != "" {
		for i, id := range ids {
			if id == token {
				start = i
				break
			}
		}
	}
	end := start + s.pageLen
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	next := ""
	if end < len(ids) {
		next = ids[end]
	} else {
		end = len(ids)
	}
	return ids[start:end], next, nil
}

func (s *fakeStorage) UpsertBatch(ctx context.Context, records []*models.VectorRecord) (int, error) {
	for _, r := range records {
		s.records[r.ID] = r
	}
	return len(records), nil
}

func (s *fakeStorage) UpdateMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return errors.New("not found")
	}
	for k, v := range metadata {
		record.Metadata[k] = v
	}
	s.updates[id] = metadata
	return nil
}

func (s *fakeStorage) DeleteByIDs(ctx context.Context, ids []string) error { return nil }

func (s *fakeStorage) DeleteByFilter(ctx context.Context, filter map[string]interface{}) error {
	return nil
}

func (s *fakeStorage) Stats(ctx context.Context) (int, int, error) {
	return len(s.records), 1536, nil
}

func validPdfRecord(landmark string, chunk int) *models.VectorRecord {
	id := landmark + "-chunk-" + string(rune('0'+chunk))
	return &models.VectorRecord{
		ID:     id,
		Values: []float32{0.1, 0.2},
		Metadata: map[string]interface{}{
			"landmark_id": landmark,
			"source_type": "pdf",
			"chunk_index": chunk,
			"text":        "...",
		},
	}
}

// validWikiRecord takes the spaced article title; the ID carries the
// underscored slug, the metadata the spaced form.
func validWikiRecord(title, landmark string, chunk int) *models.VectorRecord {
	return &models.VectorRecord{
		ID:     identifiers.BuildWikiID(title, landmark, chunk),
		Values: []float32{0.1, 0.2},
		Metadata: map[string]interface{}{
			"landmark_id":   landmark,
			"source_type":   "wikipedia",
			"chunk_index":   chunk,
			"text":          "...",
			"article_title": title,
			"article_url":   "https://en.wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_"),
		},
	}
}

func TestScanAggregatesAcrossPages(t *testing.T) {
	broken := validPdfRecord("LP-00003", 0)
	broken.Metadata["landmark_id"] = "LP-00099"

	storage := newFakeStorage(
		validPdfRecord("LP-00001", 0),
		validPdfRecord("LP-00001", 1),
		validPdfRecord("LP-00002", 0),
		broken,
	)

	svc := NewService(storage, nil, nil)
	summary, err := svc.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 3, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.PerRecordViolations["LP-00003-chunk-0"],
		"Landmark ID mismatch: ID has 'LP-00003' but metadata has 'LP-00099'")
}

func TestScanHonorsLimit(t *testing.T) {
	storage := newFakeStorage(
		validPdfRecord("LP-00001", 0),
		validPdfRecord("LP-00001", 1),
		validPdfRecord("LP-00002", 0),
		validPdfRecord("LP-00002", 1),
	)
	storage.pageLen = 10

	svc := NewService(storage, nil, nil)
	summary, err := svc.Scan(context.Background(), ScanOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
}

func TestScanFiltersByLandmark(t *testing.T) {
	storage := newFakeStorage(
		validPdfRecord("LP-00001", 0),
		validPdfRecord("LP-00002", 0),
		validWikiRecord("Old Stone House", "LP-00001", 1),
	)

	svc := NewService(storage, nil, nil)
	summary, err := svc.Scan(context.Background(), ScanOptions{LandmarkID: "LP-00001"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Passed)
}

func TestScanAbortsOnStorageFailure(t *testing.T) {
	storage := newFakeStorage(validPdfRecord("LP-00001", 0))
	storage.listErr = errors.New("connection refused")

	svc := NewService(storage, nil, nil)
	_, err := svc.Scan(context.Background(), ScanOptions{})
	assert.Error(t, err)
}

func TestScanAbortsOnFetchFailure(t *testing.T) {
	storage := newFakeStorage(
		validPdfRecord("LP-00001", 0),
		validPdfRecord("LP-00002", 0),
	)
	storage.fetchErr = errors.New("dial tcp: connection refused")

	svc := NewService(storage, nil, nil)
	summary, err := svc.Scan(context.Background(), ScanOptions{})
	require.Error(t, err)

	// Healthy records must not surface as not-found failures when the fetch
	// itself failed
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.PerRecordViolations)

	_, err = NewService(storage, nil, nil).Scan(context.Background(), ScanOptions{Concurrency: 4})
	assert.Error(t, err)
}

func TestScanIDsAbortsOnFetchFailure(t *testing.T) {
	storage := newFakeStorage(validPdfRecord("LP-00001", 0))
	storage.fetchErr = errors.New("dial tcp: connection refused")

	svc := NewService(storage, nil, nil)
	summary, err := svc.ScanIDs(context.Background(), []string{"LP-00001-chunk-0"}, true)
	require.Error(t, err)
	assert.Equal(t, 0, summary.NotFound)
}

func TestScanCancellation(t *testing.T) {
	storage := newFakeStorage(validPdfRecord("LP-00001", 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(storage, nil, nil)
	_, err := svc.Scan(ctx, ScanOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanConcurrentMergeMatchesSequential(t *testing.T) {
	var records []*models.VectorRecord
	for i := 0; i < 8; i++ {
		records = append(records, validPdfRecord("LP-0000"+string(rune('1'+i)), 0))
	}
	broken := validPdfRecord("LP-00009", 0)
	delete(broken.Metadata, "text")
	records = append(records, broken)

	sequential := NewService(newFakeStorage(records...), nil, nil)
	seqSummary, err := sequential.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)

	concurrent := NewService(newFakeStorage(records...), nil, nil)
	conSummary, err := concurrent.Scan(context.Background(), ScanOptions{Concurrency: 4})
	require.NoError(t, err)

	assert.Equal(t, seqSummary.Total, conSummary.Total)
	assert.Equal(t, seqSummary.Passed, conSummary.Passed)
	assert.Equal(t, seqSummary.Failed, conSummary.Failed)
	assert.Equal(t, seqSummary.PerRecordViolations, conSummary.PerRecordViolations)
}

func TestScanIDsTracksNotFound(t *testing.T) {
	storage := newFakeStorage(validPdfRecord("LP-00001", 0))

	svc := NewService(storage, nil, nil)
	summary, err := svc.ScanIDs(context.Background(),
		[]string{"LP-00001-chunk-0", "LP-77777-chunk-0"}, true)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.NotFound)
}

func TestScanWithCoverage(t *testing.T) {
	broken := validPdfRecord("LP-00002", 0)
	delete(broken.Metadata, "text")
	allBroken := validPdfRecord("LP-00003", 0)
	delete(allBroken.Metadata, "source_type")

	storage := newFakeStorage(
		validPdfRecord("LP-00001", 0),
		validPdfRecord("LP-00001", 1),
		validPdfRecord("LP-00002", 1),
		broken,
		allBroken,
	)

	svc := NewService(storage, nil, nil)
	_, coverage, err := svc.ScanWithCoverage(context.Background(), ScanOptions{})
	require.NoError(t, err)

	require.Len(t, coverage.Landmarks, 3)
	assert.Equal(t, 1, coverage.FullCoverage)
	assert.Equal(t, 1, coverage.PartialCoverage)
	assert.Equal(t, 1, coverage.NoCoverage)

	byLandmark := map[string]models.LandmarkCoverage{}
	for _, l := range coverage.Landmarks {
		byLandmark[l.LandmarkID] = l
	}
	assert.Equal(t, models.CoverageFull, byLandmark["LP-00001"].Coverage)
	assert.Equal(t, models.CoveragePartial, byLandmark["LP-00002"].Coverage)
	assert.Equal(t, models.CoverageNone, byLandmark["LP-00003"].Coverage)
}

func TestRepairWikipediaTitles(t *testing.T) {
	missingBoth := validWikiRecord("Old Stone House", "LP-00010", 0)
	delete(missingBoth.Metadata, "article_title")
	delete(missingBoth.Metadata, "article_url")

	missingURL := validWikiRecord("Morris Jumel Mansion", "LP-00011", 0)
	delete(missingURL.Metadata, "article_url")

	intact := validWikiRecord("Litchfield Villa", "LP-00012", 0)

	storage := newFakeStorage(missingBoth, missingURL, intact)

	svc := NewService(storage, nil, nil)
	summary, err := svc.RepairWikipediaTitles(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 2, summary.Repaired)
	assert.Equal(t, 1, summary.Skipped)
	assert.False(t, summary.DryRun)

	patched := storage.records[missingBoth.ID].Metadata
	assert.Equal(t, "Old Stone House", patched["article_title"])
	assert.Equal(t, "https://en.wikipedia.org/wiki/Old_Stone_House", patched["article_url"])

	// Title present, URL derived from the same loose extraction
	urlPatch := storage.updates[missingURL.ID]
	assert.NotContains(t, urlPatch, "article_title")
	assert.Equal(t, "https://en.wikipedia.org/wiki/Morris_Jumel_Mansion", urlPatch["article_url"])

	// Intact record untouched
	assert.NotContains(t, storage.updates, intact.ID)
}

func TestRepairIsIdempotent(t *testing.T) {
	record := validWikiRecord("Old Stone House", "LP-00010", 0)
	delete(record.Metadata, "article_title")
	delete(record.Metadata, "article_url")
	storage := newFakeStorage(record)

	svc := NewService(storage, nil, nil)

	first, err := svc.RepairWikipediaTitles(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Repaired)

	second, err := svc.RepairWikipediaTitles(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Repaired)
	assert.Equal(t, 1, second.Skipped)
}

func TestRepairDryRunWritesNothing(t *testing.T) {
	record := validWikiRecord("Old Stone House", "LP-00010", 0)
	delete(record.Metadata, "article_title")
	storage := newFakeStorage(record)

	svc := NewService(storage, nil, nil)
	summary, err := svc.RepairWikipediaTitles(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Repaired)
	assert.True(t, summary.DryRun)
	assert.Empty(t, storage.updates)
	require.Len(t, summary.Actions, 1)
	assert.False(t, summary.Actions[0].Applied)
}
