// Package handler provides HTTP handlers exposing the review engine to the
// editor frontend.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/sevigo/lyric-warden/internal/config"
	"github.com/sevigo/lyric-warden/internal/core"
	"github.com/sevigo/lyric-warden/internal/github"
	"github.com/sevigo/lyric-warden/internal/lyric"
	"github.com/sevigo/lyric-warden/internal/push"
	"github.com/sevigo/lyric-warden/internal/review"
	"github.com/sevigo/lyric-warden/internal/storage"
)

// ReviewHandler serves the review-session API: session lifecycle, live
// document observation, stash operations, and draft access.
type ReviewHandler struct {
	cfg        *config.Config
	repoCfg    *core.RepoConfig
	controller *review.Controller
	gh         github.Client
	store      storage.Store
	logger     *slog.Logger
}

// NewReviewHandler creates a review API handler. The repository-side review
// config (.lyric-warden.yml) is loaded from the working directory; a missing
// file falls back to the defaults.
func NewReviewHandler(cfg *config.Config, controller *review.Controller, gh github.Client, store storage.Store, logger *slog.Logger) *ReviewHandler {
	repoCfg, err := config.LoadRepoConfig(".")
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			logger.Warn("failed to load repo config, using defaults", "error", err)
		}
		repoCfg = core.DefaultRepoConfig()
	}
	return &ReviewHandler{
		cfg:        cfg,
		repoCfg:    repoCfg,
		controller: controller,
		gh:         gh,
		store:      store,
		logger:     logger,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// StartSession activates a review or update session.
func (h *ReviewHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var session core.ReviewSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		respondError(w, http.StatusBadRequest, "invalid session payload")
		return
	}
	if session.FileName == "" {
		respondError(w, http.StatusBadRequest, "fileName is required")
		return
	}
	if session.Source == "" {
		session.Source = core.SourceReview
	}
	h.controller.Start(r.Context(), session)
	respondJSON(w, http.StatusCreated, session)
}

// StartRemoteSession validates a remote .ttml file URL and opens a
// number-less review session for it.
func (h *ReviewHandler) StartRemoteSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	parsed, err := review.SafeRemoteURL(body.URL, true)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	fileName := path.Base(parsed.Path)
	session := core.ReviewSession{
		PRNumber: 0,
		PRTitle:  fileName,
		FileName: fileName,
		Source:   core.SourceReview,
	}
	h.controller.Start(r.Context(), session)
	respondJSON(w, http.StatusCreated, session)
}

// GetSession returns the active session, or 204 when idle.
func (h *ReviewHandler) GetSession(w http.ResponseWriter, _ *http.Request) {
	session := h.controller.Session()
	if session == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// CancelSession clears the session and all in-flight stash state.
func (h *ReviewHandler) CancelSession(w http.ResponseWriter, _ *http.Request) {
	h.controller.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

// CompleteSession finishes the session: review sessions produce a merged
// draft, update sessions trigger the push workflow.
func (h *ReviewHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	draft, err := h.controller.Complete(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, push.ErrMissingToken):
			respondError(w, http.StatusPreconditionFailed, "no authentication token configured")
		case errors.Is(err, push.ErrDeclined):
			respondError(w, http.StatusConflict, "update push declined")
		default:
			h.logger.Error("failed to complete review session", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to complete review session")
		}
		return
	}
	if draft == nil {
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "update push started"})
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

// ObserveDocument receives the live document after every editor change and
// feeds it to the session state machine.
func (h *ReviewHandler) ObserveDocument(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Document     *lyric.Document `json:"document"`
		SaveFileName string          `json:"saveFileName"`
		ProjectID    string          `json:"projectId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Document == nil {
		respondError(w, http.StatusBadRequest, "invalid document payload")
		return
	}
	h.controller.ObserveDocument(body.Document, body.SaveFileName, body.ProjectID)
	respondJSON(w, http.StatusOK, map[string]int{
		"candidates": len(h.controller.Candidates()),
	})
}

// SetToolMode switches the active editor tool mode.
func (h *ReviewHandler) SetToolMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode core.ToolMode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch body.Mode {
	case core.ToolEdit, core.ToolSync, core.ToolReview:
	default:
		respondError(w, http.StatusBadRequest, "unknown tool mode")
		return
	}
	h.controller.SetToolMode(body.Mode)
	w.WriteHeader(http.StatusNoContent)
}

// GetCandidates returns the current sync-change candidates.
func (h *ReviewHandler) GetCandidates(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Candidates())
}

// GetFreeze returns the frozen baseline snapshot, or 204 before capture.
func (h *ReviewHandler) GetFreeze(w http.ResponseWriter, _ *http.Request) {
	freeze := h.controller.FreezeSnapshot()
	if freeze == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, freeze)
}

// ListDrafts returns all accumulated report drafts.
func (h *ReviewHandler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.store.ListDrafts(r.Context())
	if err != nil {
		h.logger.Error("failed to list drafts", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list drafts")
		return
	}
	respondJSON(w, http.StatusOK, drafts)
}

// ListPullRequests returns the open PRs of the lyric repository, filtered by
// the optional query parameters.
func (h *ReviewHandler) ListPullRequests(w http.ResponseWriter, r *http.Request) {
	items, err := h.gh.ListPullRequests(r.Context(), h.cfg.GitHub.RepoOwner, h.cfg.GitHub.RepoName)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to list pull requests")
		return
	}
	query := r.URL.Query()
	opts := review.FilterOptions{
		HiddenLabels: h.repoCfg.HiddenLabels,
		PendingLabel: h.repoCfg.PendingLabel,
		PendingOnly:  query.Get("pending") == "true",
		SelectedUser: query.Get("user"),
	}
	if labels := query.Get("labels"); labels != "" {
		opts.SelectedLabels = strings.Split(labels, ",")
	}
	filtered := review.FilterPullRequests(items, opts)
	respondJSON(w, http.StatusOK, review.SortByPriority(filtered, h.repoCfg.PriorityLabel))
}

// VerifyIdentity checks whether the configured token may review the lyric
// repository.
func (h *ReviewHandler) VerifyIdentity(w http.ResponseWriter, r *http.Request) {
	result := github.VerifyAccess(r.Context(), h.gh,
		h.cfg.GitHub.Token, h.cfg.GitHub.RepoOwner, h.cfg.GitHub.RepoName)
	respondJSON(w, http.StatusOK, result)
}
