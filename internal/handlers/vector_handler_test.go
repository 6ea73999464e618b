package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/reconciler"
	"github.com/ternarybob/vestigo/internal/services/validation"
	"github.com/ternarybob/vestigo/internal/storage/pinecone"
)

type fakeVectorStorage struct {
	interfaces.VectorStorage
	records       map[string]*models.VectorRecord
	deletedIDs    []string
	deletedFilter map[string]interface{}
}

func (f *fakeVectorStorage) FetchByID(ctx context.Context, id string) (*models.VectorRecord, error) {
	if r, ok := f.records[id]; ok {
		return r, nil
	}
	return nil, pinecone.ErrNotFound
}

func (f *fakeVectorStorage) FetchByIDs(ctx context.Context, ids []string) (map[string]*models.VectorRecord, error) {
	out := make(map[string]*models.VectorRecord)
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (f *fakeVectorStorage) ListBySourceType(ctx context.Context, sourceType string, limit int, paginationToken string) ([]string, string, error) {
	if paginationToken != "" {
		return nil, "", nil
	}
	ids := make([]string, 0, len(f.records))
	for id := range f.records {
		ids = append(ids, id)
	}
	return ids, "", nil
}

func (f *fakeVectorStorage) DeleteByIDs(ctx context.Context, ids []string) error {
	f.deletedIDs = append(f.deletedIDs, ids...)
	return nil
}

func (f *fakeVectorStorage) DeleteByFilter(ctx context.Context, filter map[string]interface{}) error {
	f.deletedFilter = filter
	return nil
}

func validRecord(id, landmarkID string, chunk int) *models.VectorRecord {
	return &models.VectorRecord{
		ID:     id,
		Values: []float32{0.1, 0.2, 0.3},
		Metadata: map[string]interface{}{
			models.FieldLandmarkID: landmarkID,
			models.FieldSourceType: models.SourceTypePDF,
			models.FieldChunkIndex: chunk,
			models.FieldText:       "designation report text",
		},
	}
}

func newVectorHandler(storage *fakeVectorStorage) *VectorHandler {
	validator := validation.NewValidator(nil)
	return NewVectorHandler(storage, validator, reconciler.NewService(storage, validator, nil))
}

func TestValidateHandlerValidRecord(t *testing.T) {
	storage := &fakeVectorStorage{records: map[string]*models.VectorRecord{
		"LP-00099-chunk-0": validRecord("LP-00099-chunk-0", "LP-00099", 0),
	}}
	h := newVectorHandler(storage)

	req := httptest.NewRequest("GET", "/api/vectors/validate/LP-00099-chunk-0", nil)
	rec := httptest.NewRecorder()
	h.ValidateHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"is_valid":true`)
}

func TestValidateHandlerReportsMissingEmbeddings(t *testing.T) {
	record := validRecord("LP-00042-chunk-0", "LP-00042", 0)
	record.Values = nil
	storage := &fakeVectorStorage{records: map[string]*models.VectorRecord{record.ID: record}}
	h := newVectorHandler(storage)

	req := httptest.NewRequest("GET", "/api/vectors/validate/LP-00042-chunk-0", nil)
	rec := httptest.NewRecorder()
	h.ValidateHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing or empty embeddings")
}

func TestValidateHandlerMissingRecord(t *testing.T) {
	h := newVectorHandler(&fakeVectorStorage{records: map[string]*models.VectorRecord{}})

	req := httptest.NewRequest("GET", "/api/vectors/validate/LP-11111-chunk-9", nil)
	rec := httptest.NewRecorder()
	h.ValidateHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Vector with ID 'LP-11111-chunk-9' not found")
}

func TestValidateHandlerMissingID(t *testing.T) {
	h := newVectorHandler(&fakeVectorStorage{})

	req := httptest.NewRequest("GET", "/api/vectors/validate/", nil)
	rec := httptest.NewRecorder()
	h.ValidateHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateHandlerRejectsPost(t *testing.T) {
	h := newVectorHandler(&fakeVectorStorage{})

	req := httptest.NewRequest("POST", "/api/vectors/validate/LP-00099-chunk-0", nil)
	rec := httptest.NewRecorder()
	h.ValidateHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestScanHandlerFullScan(t *testing.T) {
	storage := &fakeVectorStorage{records: map[string]*models.VectorRecord{
		"LP-00099-chunk-0": validRecord("LP-00099-chunk-0", "LP-00099", 0),
		"LP-00099-chunk-1": validRecord("LP-00099-chunk-1", "LP-00100", 1),
	}}
	h := newVectorHandler(storage)

	req := httptest.NewRequest("POST", "/api/vectors/scan", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ScanHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"total":2`)
	// second record's metadata landmark disagrees with its ID
	assert.Contains(t, body, "Landmark ID mismatch")
}

func TestScanHandlerExplicitIDs(t *testing.T) {
	storage := &fakeVectorStorage{records: map[string]*models.VectorRecord{
		"LP-00099-chunk-0": validRecord("LP-00099-chunk-0", "LP-00099", 0),
	}}
	h := newVectorHandler(storage)

	req := httptest.NewRequest("POST", "/api/vectors/scan",
		strings.NewReader(`{"ids":["LP-00099-chunk-0","LP-99999-chunk-0"]}`))
	rec := httptest.NewRecorder()
	h.ScanHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"not_found":1`)
	assert.Contains(t, body, `"passed":1`)
}

func TestScanHandlerBadJSON(t *testing.T) {
	h := newVectorHandler(&fakeVectorStorage{})

	req := httptest.NewRequest("POST", "/api/vectors/scan", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	h.ScanHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteHandlerByIDs(t *testing.T) {
	storage := &fakeVectorStorage{}
	h := newVectorHandler(storage)

	req := httptest.NewRequest("DELETE", "/api/vectors", strings.NewReader(`{"ids":["a","b"]}`))
	rec := httptest.NewRecorder()
	h.DeleteHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a", "b"}, storage.deletedIDs)
}

func TestDeleteHandlerByFilter(t *testing.T) {
	storage := &fakeVectorStorage{}
	h := newVectorHandler(storage)

	req := httptest.NewRequest("DELETE", "/api/vectors", strings.NewReader(`{"filter":{"source_type":"test"}}`))
	rec := httptest.NewRecorder()
	h.DeleteHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"source_type": "test"}, storage.deletedFilter)
}

func TestDeleteHandlerRequiresSelector(t *testing.T) {
	h := newVectorHandler(&fakeVectorStorage{})

	req := httptest.NewRequest("DELETE", "/api/vectors", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.DeleteHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteHandlerRejectsBothSelectors(t *testing.T) {
	h := newVectorHandler(&fakeVectorStorage{})

	req := httptest.NewRequest("DELETE", "/api/vectors",
		strings.NewReader(`{"ids":["a"],"filter":{"source_type":"test"}}`))
	rec := httptest.NewRecorder()
	h.DeleteHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
