package rest

import (
	"net/http"
	"strconv"

	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
)

const defaultGeohashPrecision = 5

type HeatmapHandler struct {
	heatmaps usecases_port.HeatmapUseCase
}

func NewHeatmapHandler(heatmaps usecases_port.HeatmapUseCase) *HeatmapHandler {
	return &HeatmapHandler{heatmaps: heatmaps}
}

// GetHeatmap handles GET /api/heatmaps/{level}; the geohash level takes ?precision=.
func (h *HeatmapHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "GetHeatmap")

	level, err := domain.ParseGeoLevel(chi.URLParam(r, "level"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var hm *domain.Heatmap
	if level == domain.LevelGeohash {
		precision := uint(defaultGeohashPrecision)
		if raw := r.URL.Query().Get("precision"); raw != "" {
			p, err := strconv.ParseUint(raw, 10, 8)
			if err != nil {
				WriteJSONError(w, http.StatusBadRequest, "invalid precision value")
				return
			}
			precision = uint(p)
		}
		hm, err = h.heatmaps.GetGeohashHeatmap(r.Context(), precision)
	} else {
		hm, err = h.heatmaps.GetHeatmap(r.Context(), level)
	}
	if err != nil {
		respondWithError(w, logger, err, "Failed to build heatmap")
		return
	}
	RespondWithJSON(w, http.StatusOK, hm)
}

// ClearCache handles DELETE /api/heatmaps/cache
func (h *HeatmapHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	n := h.heatmaps.ClearCaches(r.Context())
	RespondWithJSON(w, http.StatusOK, ClearCacheResponse{Cleared: n})
}
