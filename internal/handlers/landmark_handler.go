package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/common"
	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
)

// LandmarkHandler serves landmark reference data.
type LandmarkHandler struct {
	landmarks interfaces.LandmarkService
	logger    arbor.ILogger
}

func NewLandmarkHandler(landmarks interfaces.LandmarkService) *LandmarkHandler {
	return &LandmarkHandler{
		landmarks: landmarks,
		logger:    common.GetLogger(),
	}
}

// ListHandler handles GET /api/landmarks with borough, object_type, limit,
// and offset query parameters.
func (h *LandmarkHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	filter := models.LandmarkFilter{
		Borough:    r.URL.Query().Get("borough"),
		ObjectType: r.URL.Query().Get("object_type"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			WriteError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		filter.Limit = limit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			WriteError(w, http.StatusBadRequest, "Invalid offset parameter")
			return
		}
		filter.Offset = offset
	}

	landmarks, err := h.landmarks.ListLandmarks(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("Landmark listing failed")
		WriteError(w, http.StatusBadGateway, "Failed to list landmarks: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(landmarks),
		"landmarks": landmarks,
	})
}

// GetHandler handles GET /api/landmarks/{lp}.
func (h *LandmarkHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	lpNumber := strings.TrimPrefix(r.URL.Path, "/api/landmarks/")
	if lpNumber == "" || strings.Contains(lpNumber, "/") {
		WriteError(w, http.StatusBadRequest, "LP number is required")
		return
	}

	landmark, err := h.landmarks.GetLandmark(r.Context(), lpNumber)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Str("lp_number", lpNumber).Err(err).Msg("Landmark lookup failed")
		WriteError(w, http.StatusBadGateway, "Failed to fetch landmark: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, landmark)
}
