package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all decision history routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.HandleListRuns)
		r.Get("/latest", h.HandleLatestRun)
		r.Get("/{runID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetRun(w, r, chi.URLParam(r, "runID"))
		})
		r.Get("/{runID}/decisions", func(w http.ResponseWriter, r *http.Request) {
			h.HandleRunDecisions(w, r, chi.URLParam(r, "runID"))
		})
	})

	r.Route("/decisions", func(r chi.Router) {
		r.Get("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleLatestForSymbol(w, r, chi.URLParam(r, "symbol"))
		})
		r.Get("/{symbol}/history", func(w http.ResponseWriter, r *http.Request) {
			h.HandleSymbolHistory(w, r, chi.URLParam(r, "symbol"))
		})
	})
}
