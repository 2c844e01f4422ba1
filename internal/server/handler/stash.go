package handler

import (
	"encoding/json"
	"net/http"
)

// OpenStash builds the stash card view and restores the last selection.
func (h *ReviewHandler) OpenStash(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.OpenStash())
}

// GetStash returns the current stash view without touching the selection.
func (h *ReviewHandler) GetStash(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.StashState())
}

// ToggleStashItem flips the selection of a single word in the stash.
func (h *ReviewHandler) ToggleStashItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WordID string `json:"wordId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.WordID == "" {
		respondError(w, http.StatusBadRequest, "wordId is required")
		return
	}
	h.controller.ToggleStashItem(body.WordID)
	respondJSON(w, http.StatusOK, h.controller.StashState())
}

// RemoveSelected drops the selected items from the stash.
func (h *ReviewHandler) RemoveSelected(w http.ResponseWriter, _ *http.Request) {
	h.controller.RemoveSelected()
	respondJSON(w, http.StatusOK, h.controller.StashState())
}

// ClearStash empties the stash entirely.
func (h *ReviewHandler) ClearStash(w http.ResponseWriter, _ *http.Request) {
	h.controller.ClearStash()
	w.WriteHeader(http.StatusNoContent)
}

// ConfirmStash converts the stashed timing changes into a report fragment and
// merges it into the session draft.
func (h *ReviewHandler) ConfirmStash(w http.ResponseWriter, r *http.Request) {
	draft, err := h.controller.ConfirmStash(r.Context())
	if err != nil {
		h.logger.Error("failed to confirm stash", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to confirm stash")
		return
	}
	if draft == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, draft)
}
