package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"gridlease-backend/internal/domain"
	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/security"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain sentinels onto HTTP status codes. Anything
// unmapped is a 500 with a generic body so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrIntentNotFound),
		errors.Is(err, domain.ErrAssetNotFound),
		errors.Is(err, domain.ErrLeaseNotFound),
		errors.Is(err, domain.ErrMerchantNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrParseFailure),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrStaleAuthorization):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrReplayedAuthorization),
		errors.Is(err, domain.ErrAssetUnavailable),
		errors.Is(err, domain.ErrNoCandidateSelected):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrLeaseExpired):
		writeJSON(w, http.StatusGone, errorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrInvalidAPIKey),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})

	default:
		logger.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}
