// Package handlers provides HTTP handlers for decision history operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/modules/decisions"
)

// Handler handles decision HTTP requests
type Handler struct {
	repo *decisions.Repository
	log  zerolog.Logger
}

// NewHandler creates a new decisions handler
func NewHandler(repo *decisions.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "decisions").Logger(),
	}
}

// HandleListRuns handles GET /api/runs
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": runs,
		"metadata": map[string]interface{}{
			"count":     len(runs),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleLatestRun handles GET /api/runs/latest
func (h *Handler) HandleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.repo.LatestRun()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get latest run")
		http.Error(w, "Failed to get latest run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "No runs recorded yet", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": run})
}

// HandleGetRun handles GET /api/runs/{runID}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.repo.GetRun(runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		http.Error(w, "Failed to get run", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": run})
}

// HandleRunDecisions handles GET /api/runs/{runID}/decisions
func (h *Handler) HandleRunDecisions(w http.ResponseWriter, r *http.Request, runID string) {
	list, err := h.repo.ListByRun(runID)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", runID).Msg("Failed to list run decisions")
		http.Error(w, "Failed to list run decisions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": list,
		"metadata": map[string]interface{}{
			"run_id": runID,
			"count":  len(list),
		},
	})
}

// HandleLatestForSymbol handles GET /api/decisions/{symbol}
func (h *Handler) HandleLatestForSymbol(w http.ResponseWriter, r *http.Request, symbol string) {
	decision, err := h.repo.LatestForSymbol(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get latest decision")
		http.Error(w, "Failed to get latest decision", http.StatusInternalServerError)
		return
	}
	if decision == nil {
		http.Error(w, "No decision recorded for symbol", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": decision})
}

// HandleSymbolHistory handles GET /api/decisions/{symbol}/history
func (h *Handler) HandleSymbolHistory(w http.ResponseWriter, r *http.Request, symbol string) {
	limit := queryInt(r, "limit", 50)

	history, err := h.repo.HistoryForSymbol(symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to get decision history")
		http.Error(w, "Failed to get decision history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": history,
		"metadata": map[string]interface{}{
			"symbol": symbol,
			"count":  len(history),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return defaultValue
}
