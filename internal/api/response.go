// internal/api/response.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	custom_errors "repo-atlas/internal/errors"
	"repo-atlas/internal/github"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

// respondWithServiceError maps service errors onto HTTP statuses.
func (h *Handler) respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		formatErr   *custom_errors.ErrInvalidRepoFormat
		upstreamErr *custom_errors.UpstreamError
	)

	switch {
	case errors.Is(err, custom_errors.ErrUnauthenticated):
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, custom_errors.ErrNotConnected):
		respondWithError(w, http.StatusBadRequest, "GitHub not connected")
	case errors.As(err, &formatErr):
		respondWithError(w, http.StatusBadRequest, formatErr.Error())
	case errors.As(err, &upstreamErr) && github.IsNotFound(err):
		respondWithError(w, http.StatusNotFound, "Not found on GitHub")
	case errors.As(err, &upstreamErr):
		h.logger.Error("GitHub request failed", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusBadGateway, upstreamErr.Error())
	default:
		h.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
