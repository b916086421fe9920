package rest

import (
	"net/http"
	"strconv"

	"cost-engine-service/internal/contextkeys"
	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"
	"cost-engine-service/internal/core/port/usecases_port"

	"github.com/google/uuid"
)

// ScenarioUseCases groups the what-if scenario use cases the handler serves.
type ScenarioUseCases struct {
	Create          usecases_port.CreateScenarioUseCase
	Get             usecases_port.GetScenarioUseCase
	List            usecases_port.ListScenariosUseCase
	Update          usecases_port.UpdateScenarioUseCase
	Save            usecases_port.SaveScenarioUseCase
	Delete          usecases_port.DeleteScenarioUseCase
	AddVariation    usecases_port.AddVariationUseCase
	RemoveVariation usecases_port.RemoveVariationUseCase
	ListVariations  usecases_port.ListVariationsUseCase
	PreviewImpact   usecases_port.PreviewImpactUseCase
	Compare         usecases_port.CompareScenariosUseCase
}

type ScenarioHandler struct {
	uc ScenarioUseCases
}

func NewScenarioHandler(uc ScenarioUseCases) *ScenarioHandler {
	return &ScenarioHandler{uc: uc}
}

func handlerLogger(r *http.Request, name string) port.LoggerPort {
	return contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": name})
}

// List handles GET /api/what-if-scenarios[?saved=true&limit&offset]
func (h *ScenarioHandler) List(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "ListScenarios")

	limit, err := GetLimitOrDefault(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := GetOffsetOrDefault(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	savedOnly := false
	if raw := r.URL.Query().Get("saved"); raw != "" {
		if savedOnly, err = strconv.ParseBool(raw); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid saved value")
			return
		}
	}

	items, total, err := h.uc.List.Execute(r.Context(), domain.ScenarioFilter{SavedOnly: savedOnly, Limit: limit, Offset: offset})
	if err != nil {
		respondWithError(w, logger, err, "Failed to list scenarios")
		return
	}
	RespondWithJSON(w, http.StatusOK, ScenarioListResponse{Total: total, Limit: limit, Offset: offset, Data: items})
}

// Create handles POST /api/what-if-scenarios
func (h *ScenarioHandler) Create(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "CreateScenario")

	var req ScenarioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s, err := h.uc.Create.Execute(r.Context(), req.toDomain())
	if err != nil {
		respondWithError(w, logger, err, "Failed to create scenario")
		return
	}
	RespondWithJSON(w, http.StatusCreated, s)
}

// Get handles GET /api/what-if-scenarios/{id}
func (h *ScenarioHandler) Get(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "GetScenario")

	id, err := uuidParam(r, "id")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.uc.Get.Execute(r.Context(), id)
	if err != nil {
		respondWithError(w, logger, err, "Failed to get scenario")
		return
	}
	RespondWithJSON(w, http.StatusOK, s)
}

// Update handles PUT /api/what-if-scenarios/{id}
func (h *ScenarioHandler) Update(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "UpdateScenario")

	id, err := uuidParam(r, "id")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req ScenarioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s, err := h.uc.Update.Execute(r.Context(), id, req.toDomain())
	if err != nil {
		respondWithError(w, logger, err, "Failed to update scenario")
		return
	}
	RespondWithJSON(w, http.StatusOK, s)
}

// Delete handles DELETE /api/what-if-scenarios/{id}
func (h *ScenarioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "DeleteScenario")

	id, err := uuidParam(r, "id")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.uc.Delete.Execute(r.Context(), id); err != nil {
		respondWithError(w, logger, err, "Failed to delete scenario")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Save handles POST /api/what-if-scenarios/{id}/save
func (h *ScenarioHandler) Save(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "SaveScenario")

	id, err := uuidParam(r, "id")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.uc.Save.Execute(r.Context(), id)
	if err != nil {
		respondWithError(w, logger, err, "Failed to save scenario")
		return
	}
	RespondWithJSON(w, http.StatusOK, s)
}

// ListVariations handles GET /api/what-if-scenarios/{id}/variations
func (h *ScenarioHandler) ListVariations(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "ListVariations")

	id, err := uuidParam(r, "id")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := h.uc.ListVariations.Execute(r.Context(), id)
	if err != nil {
		respondWithError(w, logger, err, "Failed to list variations")
		return
	}
	RespondWithJSON(w, http.StatusOK, items)
}

// AddVariation handles POST /api/what-if-scenarios/{id}/variations
func (h *ScenarioHandler) AddVariation(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "AddVariation")

	id, err := uuidParam(r, "id")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req VariationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	v, s, err := h.uc.AddVariation.Execute(r.Context(), id, domain.VariationInput{
		Name:         req.Name,
		ParameterKey: req.ParameterKey,
		NewValue:     req.NewValue,
	})
	if err != nil {
		respondWithError(w, logger, err, "Failed to add variation")
		return
	}
	RespondWithJSON(w, http.StatusCreated, VariationResponse{Variation: v, Scenario: s})
}

// RemoveVariation handles DELETE /api/what-if-scenarios/{id}/variations/{variationID}
func (h *ScenarioHandler) RemoveVariation(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "RemoveVariation")

	id, err := uuidParam(r, "id")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	variationID, err := uuidParam(r, "variationID")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.uc.RemoveVariation.Execute(r.Context(), id, variationID)
	if err != nil {
		respondWithError(w, logger, err, "Failed to remove variation")
		return
	}
	RespondWithJSON(w, http.StatusOK, s)
}

// PreviewImpact handles POST /api/what-if-scenarios/impact
func (h *ScenarioHandler) PreviewImpact(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "PreviewImpact")

	var req ImpactPreviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	impact, err := h.uc.PreviewImpact.Execute(r.Context(), req.Parameters.toDomain(), req.ParameterKey, req.NewValue)
	if err != nil {
		respondWithError(w, logger, err, "Failed to compute impact")
		return
	}
	RespondWithJSON(w, http.StatusOK, impact)
}

// Compare handles POST /api/what-if-scenarios/compare
func (h *ScenarioHandler) Compare(w http.ResponseWriter, r *http.Request) {
	logger := handlerLogger(r, "CompareScenarios")

	var req CompareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	ids := make([]uuid.UUID, 0, len(req.ScenarioIDs))
	for _, raw := range req.ScenarioIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid scenario id "+strconv.Quote(raw))
			return
		}
		ids = append(ids, id)
	}

	cmp, err := h.uc.Compare.Execute(r.Context(), ids)
	if err != nil {
		respondWithError(w, logger, err, "Failed to compare scenarios")
		return
	}
	RespondWithJSON(w, http.StatusOK, cmp)
}
