package rest

import (
	"net/http"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/port"
	"cost-engine-service/internal/core/port/usecases_port"
)

type EstimateHandler struct {
	estimateUC usecases_port.EstimateCostUseCase
	matrixUC   usecases_port.EstimateMatrixUseCase
	batchUC    usecases_port.EstimateBatchUseCase
}

func NewEstimateHandler(
	estimateUC usecases_port.EstimateCostUseCase,
	matrixUC usecases_port.EstimateMatrixUseCase,
	batchUC usecases_port.EstimateBatchUseCase,
) *EstimateHandler {
	return &EstimateHandler{estimateUC: estimateUC, matrixUC: matrixUC, batchUC: batchUC}
}

// Estimate handles POST /api/cost-estimates. A failed estimate is returned
// with status 422 and the same body shape.
func (h *EstimateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result := h.estimateUC.Execute(r.Context(), req.toDomain())
	if !result.Success {
		RespondWithJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// Matrix handles POST /api/cost-estimates/matrix
func (h *EstimateHandler) Matrix(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "Matrix"})

	var req MatrixRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.matrixUC.Execute(r.Context(), req.toDomain())
	if err != nil {
		respondWithError(w, logger, err, "Failed to build valuation matrix")
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// Batch handles POST /api/cost-estimates/batch. Failed items are reported in
// the body; the status is 200 whenever the batch itself was accepted.
func (h *EstimateHandler) Batch(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "Batch"})

	var req BatchEstimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.batchUC.Execute(r.Context(), req.toDomain())
	if err != nil {
		respondWithError(w, logger, err, "Failed to run batch estimate")
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}
