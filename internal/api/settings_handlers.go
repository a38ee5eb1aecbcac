package api

import (
	"net/http"

	"infinite-experiment/keydrop/internal/models/dtos"
)

// GetSettingsHandler handles GET /api/v1/admin/settings
func (h *Handlers) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.admin().Settings(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, &dtos.SettingsResp{
		CooldownHours: settings.CooldownHours,
		KeyMessage:    settings.KeyMessage,
	})
}

// UpdateSettingsHandler handles PATCH /api/v1/admin/settings
//
// Fields are validated and applied in order; a rejected field leaves the
// ones after it untouched.
func (h *Handlers) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.UpdateSettingsReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CooldownHours == nil && req.KeyMessage == nil {
		respondWithError(w, http.StatusBadRequest, "VALIDATION", "nothing to update")
		return
	}

	if req.CooldownHours != nil {
		if err := h.admin().SetCooldownHours(r.Context(), *req.CooldownHours); err != nil {
			respondWithServiceError(w, r, err)
			return
		}
	}
	if req.KeyMessage != nil {
		if err := h.admin().SetKeyMessageTemplate(r.Context(), *req.KeyMessage); err != nil {
			respondWithServiceError(w, r, err)
			return
		}
	}

	h.GetSettingsHandler(w, r)
}
