package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/models/dtos/responses"
	"infinite-experiment/keydrop/internal/models/entities"
	"infinite-experiment/keydrop/internal/services"
)

func respondWithSuccess[T any](w http.ResponseWriter, statusCode int, data *T) {
	resp := responses.APIResponse[T]{
		Status:    "success",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	writeJSON(w, statusCode, resp)
}

func respondWithPage[T any](w http.ResponseWriter, page entities.Page, data *T) {
	resp := responses.APIResponse[T]{
		Status:    "success",
		Timestamp: time.Now().UTC(),
		Page:      &page,
		Data:      data,
	}
	writeJSON(w, http.StatusOK, resp)
}

func respondWithError(w http.ResponseWriter, statusCode int, code, message string) {
	resp := responses.APIResponse[any]{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     message,
		Code:      code,
	}
	writeJSON(w, statusCode, resp)
}

// respondWithServiceError maps service errors onto HTTP statuses. Store
// failures are logged and hidden behind a generic message.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *services.ValidationError
		notFound   *services.NotFoundError
		conflict   *services.ConflictError
		store      *services.StoreError
	)

	switch {
	case errors.As(err, &validation):
		respondWithError(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.As(err, &notFound):
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.As(err, &conflict):
		respondWithError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.As(err, &store):
		logging.Error("Store failure", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "storage is temporarily unavailable")
	default:
		logging.Error("Unhandled error", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "VALIDATION", "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
