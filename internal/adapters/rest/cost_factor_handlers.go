package rest

import (
	"io"
	"net/http"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
	"cost-engine-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
)

type CostFactorHandler struct {
	getFactorsUC   usecases_port.GetCostFactorsUseCase
	sourcesUC      usecases_port.CostFactorSourcesUseCase
	selectSourceUC usecases_port.SelectCostFactorSourceUseCase
	importUC       usecases_port.ImportCostFactorsUseCase
	clearCacheUC   usecases_port.ClearFactorCacheUseCase
}

func NewCostFactorHandler(
	getFactorsUC usecases_port.GetCostFactorsUseCase,
	sourcesUC usecases_port.CostFactorSourcesUseCase,
	selectSourceUC usecases_port.SelectCostFactorSourceUseCase,
	importUC usecases_port.ImportCostFactorsUseCase,
	clearCacheUC usecases_port.ClearFactorCacheUseCase,
) *CostFactorHandler {
	return &CostFactorHandler{
		getFactorsUC:   getFactorsUC,
		sourcesUC:      sourcesUC,
		selectSourceUC: selectSourceUC,
		importUC:       importUC,
		clearCacheUC:   clearCacheUC,
	}
}

// GetCostFactors handles GET /api/cost-factors
func (h *CostFactorHandler) GetCostFactors(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())
	query := r.URL.Query()
	q := domain.CostFactorQuery{
		Source:       query.Get("source"),
		PropertyType: query.Get("propertyType"),
		Region:       query.Get("region"),
	}

	handlerLogger := logger.WithFields(port.Fields{
		"handler":       "GetCostFactors",
		"source":        q.Source,
		"property_type": q.PropertyType,
		"region":        q.Region,
	})

	view, err := h.getFactorsUC.GetCostFactors(r.Context(), q)
	if err != nil {
		respondWithError(w, handlerLogger, err, "Failed to load cost factors")
		return
	}
	RespondWithJSON(w, http.StatusOK, view)
}

// GetActiveSource handles GET /api/cost-factors/source
func (h *CostFactorHandler) GetActiveSource(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "GetActiveSource"})

	source, interval, err := h.sourcesUC.ActiveSource(r.Context())
	if err != nil {
		respondWithError(w, logger, err, "Failed to read the active source")
		return
	}
	RespondWithJSON(w, http.StatusOK, ActiveSourceResponse{Source: source, RefreshIntervalMinutes: interval})
}

// SetActiveSource handles PUT /api/cost-factors/source
func (h *CostFactorHandler) SetActiveSource(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "SetActiveSource"})

	var req SelectSourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.selectSourceUC.Execute(r.Context(), req.Source); err != nil {
		respondWithError(w, logger, err, "Failed to switch the active source")
		return
	}
	RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "active source set to " + req.Source})
}

// ListSources handles GET /api/cost-factors/sources
func (h *CostFactorHandler) ListSources(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ListSources"})

	sources, err := h.sourcesUC.ListSources(r.Context())
	if err != nil {
		respondWithError(w, logger, err, "Failed to list sources")
		return
	}
	RespondWithJSON(w, http.StatusOK, sources)
}

// ImportDataset handles PUT /api/cost-factors/sources/{source}/dataset
func (h *CostFactorHandler) ImportDataset(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{
		"handler": "ImportDataset",
		"source":  source,
	})

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	set, err := h.importUC.Execute(r.Context(), source, raw)
	if err != nil {
		respondWithError(w, logger, err, "Failed to import factor set")
		return
	}
	RespondWithJSON(w, http.StatusOK, set)
}

// ClearCache handles DELETE /api/cost-factors/cache
func (h *CostFactorHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.clearCacheUC.ClearCache()
	contextkeys.LoggerFromContext(r.Context()).Info("Factor set cache cleared", nil)
	w.WriteHeader(http.StatusNoContent)
}
