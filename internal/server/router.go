package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/lyric-warden/internal/config"
	"github.com/sevigo/lyric-warden/internal/github"
	"github.com/sevigo/lyric-warden/internal/review"
	"github.com/sevigo/lyric-warden/internal/server/handler"
	"github.com/sevigo/lyric-warden/internal/storage"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, controller *review.Controller, gh github.Client, store storage.Store, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Configure middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// GitHub relay for frontends without direct github.com access. The
	// upstream target comes from a url/path query parameter or from the
	// path after the prefix.
	proxy := handler.NewProxyHandler(logger)
	r.HandleFunc("/github", proxy.Relay)
	r.HandleFunc("/github/*", proxy.Relay)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		h := handler.NewReviewHandler(cfg, controller, gh, store, logger)

		r.Route("/session", func(r chi.Router) {
			r.Post("/", h.StartSession)
			r.Get("/", h.GetSession)
			r.Delete("/", h.CancelSession)
			r.Post("/remote", h.StartRemoteSession)
			r.Post("/complete", h.CompleteSession)
			r.Put("/document", h.ObserveDocument)
			r.Put("/toolmode", h.SetToolMode)
			r.Get("/candidates", h.GetCandidates)
			r.Get("/freeze", h.GetFreeze)
		})

		r.Route("/stash", func(r chi.Router) {
			r.Get("/", h.GetStash)
			r.Post("/open", h.OpenStash)
			r.Post("/toggle", h.ToggleStashItem)
			r.Post("/remove", h.RemoveSelected)
			r.Post("/clear", h.ClearStash)
			r.Post("/confirm", h.ConfirmStash)
		})

		r.Get("/drafts", h.ListDrafts)
		r.Get("/pulls", h.ListPullRequests)
		r.Get("/identity", h.VerifyIdentity)
	})

	return r
}
