package api

import (
	"net/http"
	"strings"

	"infinite-experiment/keydrop/internal/logging"
	"infinite-experiment/keydrop/internal/models/dtos"
	"infinite-experiment/keydrop/internal/services"
)

// StatsHandler handles GET /api/v1/admin/stats
//
// @Summary      Distribution statistics
// @Description  Counts of users, keys, sales and waitlist plus the most recent claims
// @Tags         Admin
// @Produce      json
// @Param        X-API-Key  header  string  true  "API KEY"
// @Success      200  {object}  entities.DistributionStats
// @Router       /api/v1/admin/stats [get]
func (h *Handlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin().Stats(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, stats)
}

// AddKeysHandler handles POST /api/v1/admin/keys
//
// Keys go through the restock path, so waitlisted users are served first
// and notified before the response is written.
func (h *Handlers) AddKeysHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.AddKeysReq
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.admin().AddKeys(r.Context(), req.Keys)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	resp := dtos.AddKeysResp{
		Added:      nonNil(result.Added),
		Duplicates: nonNil(result.Duplicates),
		Invalid:    []string{},
		Assigned:   len(result.Assignments),
	}
	for _, inv := range result.Invalid {
		resp.Invalid = append(resp.Invalid, inv.Error())
	}
	if len(result.Assignments) > 0 {
		sent, failed := h.deps.Services.Notifications.DeliverAssignments(r.Context(), result.Assignments)
		resp.Notified = sent
		if failed > 0 {
			logging.Warn("Some waitlist notifications failed", "failed", failed)
		}
	}

	status := http.StatusCreated
	if len(resp.Added) == 0 {
		status = http.StatusOK
	}
	respondWithSuccess(w, status, &resp)
}

// ListUsersHandler handles GET /api/v1/admin/users
func (h *Handlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	page := pageParams(r)
	rows, err := h.admin().ListUsers(r.Context(), page)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithPage(w, page, &rows)
}

// UserHistoryHandler handles GET /api/v1/admin/users/{userID}/history
func (h *Handlers) UserHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	history, err := h.admin().UserHistory(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, history)
}

// BlockUserHandler handles POST /api/v1/admin/users/{userID}/block
func (h *Handlers) BlockUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	var req dtos.BlockUserReq
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	if err := h.admin().BlockUser(r.Context(), userID, req.Reason); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnblockUserHandler handles POST /api/v1/admin/users/{userID}/unblock
func (h *Handlers) UnblockUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.admin().UnblockUser(r.Context(), userID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetCooldownHandler handles POST /api/v1/admin/users/{userID}/reset-cooldown
func (h *Handlers) ResetCooldownHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.admin().ResetCooldown(r.Context(), userID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListWaitlistHandler handles GET /api/v1/admin/waitlist
func (h *Handlers) ListWaitlistHandler(w http.ResponseWriter, r *http.Request) {
	page := pageParams(r)
	rows, err := h.admin().ListWaitlist(r.Context(), page)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithPage(w, page, &rows)
}

// ListLeftUsersHandler handles GET /api/v1/admin/left-users
func (h *Handlers) ListLeftUsersHandler(w http.ResponseWriter, r *http.Request) {
	page := pageParams(r)
	rows, err := h.admin().ListLeftUsers(r.Context(), page)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithPage(w, page, &rows)
}

// ProposeActionHandler handles POST /api/v1/admin/actions
//
// Returns a short-lived token; nothing changes until it is confirmed.
func (h *Handlers) ProposeActionHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminID(w, r)
	if !ok {
		return
	}

	var req dtos.ProposeReq
	if !decodeJSON(w, r, &req) {
		return
	}

	proposal, err := h.admin().Propose(admin, services.ConfirmAction(strings.TrimSpace(req.Action)))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusAccepted, &dtos.ProposeResp{
		Token:     proposal.Token,
		Action:    string(proposal.Action),
		ExpiresAt: proposal.ExpiresAt,
	})
}

// ConfirmActionHandler handles POST /api/v1/admin/actions/confirm
func (h *Handlers) ConfirmActionHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminID(w, r)
	if !ok {
		return
	}

	var req dtos.ConfirmReq
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.admin().Confirm(r.Context(), admin, req.Token)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithSuccess(w, http.StatusOK, result)
}

// CancelActionHandler handles POST /api/v1/admin/actions/cancel
func (h *Handlers) CancelActionHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.ConfirmReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.admin().Cancel(req.Token); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BroadcastHandler handles POST /api/v1/admin/broadcast
func (h *Handlers) BroadcastHandler(w http.ResponseWriter, r *http.Request) {
	var req dtos.BroadcastReq
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.admin().Broadcast(r.Context(), req.Text, strings.TrimSpace(req.ImageURL))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if report.Queued {
		status = http.StatusAccepted
	}
	respondWithSuccess(w, status, report)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
