package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
)

type statsStorage struct {
	interfaces.VectorStorage
	count     int
	dimension int
	err       error
}

func (s *statsStorage) Stats(ctx context.Context) (int, int, error) {
	return s.count, s.dimension, s.err
}

type stubQueryService struct {
	response *models.QueryResponse
	err      error
}

func (s *stubQueryService) Query(ctx context.Context, question string, topK int, filter map[string]interface{}) (*models.QueryResponse, error) {
	return s.response, s.err
}

func TestHealthHandler(t *testing.T) {
	h := NewStatusHandler(&statsStorage{}, common.NewDefaultConfig())

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	h.HealthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestStatusHandlerWithIndexStats(t *testing.T) {
	h := NewStatusHandler(&statsStorage{count: 1234, dimension: 1536}, common.NewDefaultConfig())

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"vector_count":1234`)
	assert.Contains(t, body, `"dimension":1536`)
}

func TestStatusHandlerIndexUnavailable(t *testing.T) {
	h := NewStatusHandler(&statsStorage{err: fmt.Errorf("connection refused")}, common.NewDefaultConfig())

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	h.StatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":false`)
}

func TestNotFoundHandler(t *testing.T) {
	h := NewStatusHandler(&statsStorage{}, common.NewDefaultConfig())

	req := httptest.NewRequest("GET", "/api/nope", nil)
	rec := httptest.NewRecorder()
	h.NotFoundHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryHandlerSuccess(t *testing.T) {
	svc := &stubQueryService{response: &models.QueryResponse{Answer: "1902"}}
	h := NewQueryHandler(svc)

	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"question":"when?","top_k":3}`))
	rec := httptest.NewRecorder()
	h.QueryHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"answer":"1902"`)
}

func TestQueryHandlerRequiresQuestion(t *testing.T) {
	h := NewQueryHandler(&stubQueryService{})

	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"question":""}`))
	rec := httptest.NewRecorder()
	h.QueryHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHandlerUpstreamFailure(t *testing.T) {
	h := NewQueryHandler(&stubQueryService{err: fmt.Errorf("embedding quota exhausted")})

	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"question":"when?"}`))
	rec := httptest.NewRecorder()
	h.QueryHandler(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
