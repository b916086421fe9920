package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cost-engine-service/internal/core/domain"
	"cost-engine-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	// maxBodyBytes bounds request bodies, factor-set imports included.
	maxBodyBytes = 1 << 20
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSONError sends {"error": message} with the given status.
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithJSON(w, statusCode, errorResponse{Error: message})
}

func writeCodedError(w http.ResponseWriter, statusCode int, code, message string) {
	RespondWithJSON(w, statusCode, errorResponse{Error: message, Code: code})
}

// RespondWithJSON marshals payload and writes it with the given status.
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError maps a use-case error to a status code and logs server-side failures.
func respondWithError(w http.ResponseWriter, logger port.LoggerPort, err error, fallback string) {
	var serviceErr *domain.ServiceError
	var configErr *domain.ConfigurationError

	switch {
	case errors.As(err, &serviceErr):
		logger.Error(serviceErr.Message, err, nil)
		writeCodedError(w, serviceErr.Status, serviceErr.Code, serviceErr.Message)
	case errors.Is(err, domain.ErrValidation):
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrScenarioNotFound), errors.Is(err, domain.ErrVariationNotFound):
		WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &configErr):
		logger.Error("Cost factor configuration is unusable", err, nil)
		writeCodedError(w, http.StatusServiceUnavailable, "CONFIGURATION_ERROR", err.Error())
	default:
		logger.Error(fallback, err, nil)
		WriteJSONError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func GetLimitOrDefault(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		return 0, domain.ValidationError("invalid limit value %q", limitStr)
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

func GetOffsetOrDefault(r *http.Request) (int, error) {
	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0, domain.ValidationError("invalid offset value %q", offsetStr)
	}
	return offset, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ValidationError("invalid %s %q", name, raw)
	}
	return id, nil
}
