package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
)

// QueryHandler exposes the one-shot question endpoint.
type QueryHandler struct {
	query  interfaces.QueryService
	logger arbor.ILogger
}

func NewQueryHandler(query interfaces.QueryService) *QueryHandler {
	return &QueryHandler{
		query:  query,
		logger: common.GetLogger(),
	}
}

type queryRequest struct {
	Question   string `json:"question"`
	TopK       int    `json:"top_k,omitempty"`
	SourceType string `json:"source_type,omitempty"`
}

// QueryHandler handles POST /api/query.
func (h *QueryHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req queryRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "Question is required")
		return
	}

	var filter map[string]interface{}
	if req.SourceType != "" {
		filter = map[string]interface{}{models.FieldSourceType: req.SourceType}
	}

	response, err := h.query.Query(r.Context(), req.Question, req.TopK, filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Query failed")
		WriteError(w, http.StatusBadGateway, "Query failed: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, response)
}
