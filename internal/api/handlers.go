package api

import (
	"net/http"
	"strconv"

	"infinite-experiment/keydrop/internal/auth"
	"infinite-experiment/keydrop/internal/models/entities"
	"infinite-experiment/keydrop/internal/services"

	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	deps *Dependencies
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		deps: deps,
	}
}

func (h *Handlers) admin() *services.AdminService {
	return h.deps.Services.Admin
}

// adminID returns the authenticated admin, writing 401 when absent
func adminID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims := auth.GetAdminClaims(r.Context())
	if claims == nil {
		respondWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing admin claims")
		return 0, false
	}
	return claims.AdminID, true
}

// userIDParam reads the {userID} path segment
func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := services.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return 0, false
	}
	return id, true
}

// pageParams reads ?limit=&offset=, clamped to the allowed window
func pageParams(r *http.Request) entities.Page {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return services.ClampPage(entities.Page{Limit: limit, Offset: offset})
}
