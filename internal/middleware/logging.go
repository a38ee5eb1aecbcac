package middleware

import (
	"net/http"
	"time"

	"infinite-experiment/keydrop/internal/auth"
	"infinite-experiment/keydrop/internal/logging"

	"github.com/go-chi/chi/v5"
)

// Logging writes one structured line per completed request
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}

		fields := []interface{}{
			"request_id", auth.GetRequestID(r.Context()),
			"method", r.Method,
			"endpoint", endpoint,
			"status_code", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if wrapped.statusCode >= http.StatusInternalServerError {
			logging.Warn("HTTP request failed", fields...)
			return
		}
		logging.Info("HTTP request completed", fields...)
	})
}
