package middleware

import (
	"crypto/subtle"
	"net/http"

	"infinite-experiment/keydrop/internal/auth"
	"infinite-experiment/keydrop/internal/logging"
)

// AdminAuthMiddleware admits requests carrying the configured X-API-Key and
// attributes them to the configured admin. An empty key disables the API.
func AdminAuthMiddleware(apiKey string, adminID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				http.Error(w, "Admin API disabled. Set ADMIN_API_KEY", http.StatusServiceUnavailable)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				http.Error(w, "Unauthorized. Missing API Key", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				logging.Warn("Rejected admin API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				http.Error(w, "Unauthorized. Invalid API Key", http.StatusUnauthorized)
				return
			}

			ctx := auth.SetAdminClaims(r.Context(), &auth.AdminClaims{AdminID: adminID, Source: auth.SourceAPIKey})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
