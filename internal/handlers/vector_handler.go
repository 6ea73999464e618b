package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/services/reconciler"
	"github.com/ternarybob/vestigo/internal/services/validation"
	"github.com/ternarybob/vestigo/internal/storage/pinecone"
)

// VectorHandler exposes validation, scanning, repair, and deletion of index
// records.
type VectorHandler struct {
	storage    interfaces.VectorStorage
	validator  *validation.Validator
	reconciler *reconciler.Service
	logger     arbor.ILogger
}

func NewVectorHandler(storage interfaces.VectorStorage, validator *validation.Validator, reconcilerSvc *reconciler.Service) *VectorHandler {
	return &VectorHandler{
		storage:    storage,
		validator:  validator,
		reconciler: reconcilerSvc,
		logger:     common.GetLogger(),
	}
}

// ValidateHandler handles GET /api/vectors/validate/{id}. A missing record
// still produces a report, with the not-found violation.
func (h *VectorHandler) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/vectors/validate/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "Vector ID is required")
		return
	}

	record, err := h.storage.FetchByID(r.Context(), id)
	if err != nil && !errors.Is(err, pinecone.ErrNotFound) {
		h.logger.Error().Str("id", id).Err(err).Msg("Vector fetch failed")
		WriteError(w, http.StatusBadGateway, "Failed to fetch vector: "+err.Error())
		return
	}

	report := h.validator.Validate(id, record)
	WriteJSON(w, http.StatusOK, report)
}

type scanRequest struct {
	SourceType      string   `json:"source_type,omitempty"`
	LandmarkID      string   `json:"landmark_id,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	CheckEmbeddings bool     `json:"check_embeddings,omitempty"`
	IDs             []string `json:"ids,omitempty"`
	WithCoverage    bool     `json:"with_coverage,omitempty"`
}

// ScanHandler handles POST /api/vectors/scan. With explicit IDs it validates
// exactly those; otherwise it pages through the index.
func (h *VectorHandler) ScanHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req scanRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if len(req.IDs) > 0 {
		summary, err := h.reconciler.ScanIDs(r.Context(), req.IDs, req.CheckEmbeddings)
		if err != nil {
			WriteError(w, http.StatusBadGateway, "Scan failed: "+err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, summary)
		return
	}

	opts := reconciler.ScanOptions{
		SourceType:      req.SourceType,
		LandmarkID:      req.LandmarkID,
		Limit:           req.Limit,
		CheckEmbeddings: req.CheckEmbeddings,
	}

	if req.WithCoverage {
		summary, coverage, err := h.reconciler.ScanWithCoverage(r.Context(), opts)
		if err != nil {
			WriteError(w, http.StatusBadGateway, "Scan failed: "+err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"summary":  summary,
			"coverage": coverage,
		})
		return
	}

	summary, err := h.reconciler.Scan(r.Context(), opts)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "Scan failed: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// RepairHandler handles POST /api/vectors/repair. Dry run is the default;
// pass apply=true to write patches.
func (h *VectorHandler) RepairHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	apply := false
	if v := r.URL.Query().Get("apply"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid apply parameter")
			return
		}
		apply = parsed
	}

	summary, err := h.reconciler.RepairWikipediaTitles(r.Context(), !apply)
	if err != nil {
		WriteError(w, http.StatusBadGateway, "Repair failed: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

type deleteRequest struct {
	IDs    []string               `json:"ids,omitempty"`
	Filter map[string]interface{} `json:"filter,omitempty"`
}

// DeleteHandler handles DELETE /api/vectors, by explicit IDs or by metadata
// filter. Exactly one must be provided.
func (h *VectorHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	var req deleteRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	switch {
	case len(req.IDs) > 0 && len(req.Filter) > 0:
		WriteError(w, http.StatusBadRequest, "Provide ids or filter, not both")
	case len(req.IDs) > 0:
		if err := h.storage.DeleteByIDs(r.Context(), req.IDs); err != nil {
			WriteError(w, http.StatusBadGateway, "Delete failed: "+err.Error())
			return
		}
		h.logger.Info().Int("count", len(req.IDs)).Msg("Vectors deleted by ID")
		WriteSuccess(w, "Vectors deleted")
	case len(req.Filter) > 0:
		if err := h.storage.DeleteByFilter(r.Context(), req.Filter); err != nil {
			WriteError(w, http.StatusBadGateway, "Delete failed: "+err.Error())
			return
		}
		h.logger.Info().Msg("Vectors deleted by filter")
		WriteSuccess(w, "Vectors deleted")
	default:
		WriteError(w, http.StatusBadRequest, "Provide ids or filter")
	}
}
