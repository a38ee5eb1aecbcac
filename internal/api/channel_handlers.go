package api

import (
	"net/http"

	"infinite-experiment/keydrop/internal/models/dtos"

	"github.com/go-chi/chi/v5"
)

// ListChannelsHandler handles GET /api/v1/admin/channels
func (h *Handlers) ListChannelsHandler(w http.ResponseWriter, r *http.Request) {
	channels, err := h.admin().ListChannels(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	resp := make([]dtos.ChannelResp, 0, len(channels))
	for _, ch := range channels {
		resp = append(resp, dtos.ChannelResp{Handle: ch.Handle, JoinLink: ch.JoinLink})
	}
	respondWithSuccess(w, http.StatusOK, &resp)
}

// AddChannelHandler handles POST /api/v1/admin/channels
func (h *Handlers) AddChannelHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.AddChannelReq
	if !decodeJSON(w, r, &req) {
		return
	}

	channel, err := h.admin().AddChannel(r.Context(), req.Handle, req.JoinLink)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusCreated, &dtos.ChannelResp{Handle: channel.Handle, JoinLink: channel.JoinLink})
}

// RemoveChannelHandler handles DELETE /api/v1/admin/channels/{handle}
func (h *Handlers) RemoveChannelHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.admin().RemoveChannel(r.Context(), chi.URLParam(r, "handle")); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
