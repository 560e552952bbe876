package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"gridlease-backend/internal/logger"
	"gridlease-backend/internal/security"
	"gridlease-backend/internal/service"
)

type contextKey string

const merchantIDKey contextKey = "merchant_id"

// merchantID pulls the authenticated merchant out of the request context.
func merchantID(r *http.Request) string {
	id, _ := r.Context().Value(merchantIDKey).(string)
	return id
}

// MerchantAuth authenticates merchant endpoints. A Bearer token is a
// dashboard JWT; an X-API-Key header is a long-lived machine key. Either
// resolves to a merchant ID on the request context.
func MerchantAuth(merchants service.MerchantService, tokens security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				claims, err := tokens.ValidateToken(strings.TrimPrefix(header, "Bearer "))
				if err != nil {
					writeError(w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(
					context.WithValue(r.Context(), merchantIDKey, claims.MerchantID)))
				return
			}

			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
				merchant, err := merchants.Authenticate(r.Context(), apiKey)
				if err != nil {
					writeError(w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(
					context.WithValue(r.Context(), merchantIDKey, merchant.ID)))
				return
			}

			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogging logs every request with its status and latency.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
