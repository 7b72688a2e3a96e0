// Package handlers provides HTTP handlers for staging analysis submissions.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/domain"
	"github.com/aristath/confluence/internal/modules/intake"
	"github.com/aristath/confluence/internal/modules/technicals"
)

// Handler handles intake HTTP requests
type Handler struct {
	service   *intake.Service
	structure *technicals.Service
	log       zerolog.Logger
}

// NewHandler creates a new intake handler
func NewHandler(service *intake.Service, structure *technicals.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		structure: structure,
		log:       log.With().Str("handler", "intake").Logger(),
	}
}

// RegisterRoutes mounts the intake routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/intake", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Post("/assets", h.HandleSubmitAssets)
		r.Delete("/assets", h.HandleClearAssets)
		r.Delete("/assets/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleRemoveAsset(w, r, chi.URLParam(r, "symbol"))
		})
		r.Post("/assets/{symbol}/candles", func(w http.ResponseWriter, r *http.Request) {
			h.HandleSubmitCandles(w, r, chi.URLParam(r, "symbol"))
		})
		r.Post("/regime", h.HandleSubmitRegime)
	})
}

// HandleStatus handles GET /api/intake/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": h.service.Status()})
}

// HandleSubmitAssets handles POST /api/intake/assets
func (h *Handler) HandleSubmitAssets(w http.ResponseWriter, r *http.Request) {
	var assets []*domain.AssetAnalysis
	if err := json.NewDecoder(r.Body).Decode(&assets); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	accepted, err := h.service.SubmitAssets(assets)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"data": map[string]interface{}{
			"accepted": accepted,
			"staged":   h.service.Status().AssetCount,
		},
	})
}

// HandleClearAssets handles DELETE /api/intake/assets
func (h *Handler) HandleClearAssets(w http.ResponseWriter, r *http.Request) {
	h.service.Clear()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"cleared": true},
	})
}

// HandleRemoveAsset handles DELETE /api/intake/assets/{symbol}
func (h *Handler) HandleRemoveAsset(w http.ResponseWriter, r *http.Request, symbol string) {
	if !h.service.RemoveAsset(symbol) {
		http.Error(w, "Symbol not staged", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"removed": symbol},
	})
}

// HandleSubmitCandles handles POST /api/intake/assets/{symbol}/candles.
// It derives the structural plan context (ATR, S/R levels, order blocks,
// liquidity pools) and trend alignment from the submitted bars and attaches
// them to the staged asset.
func (h *Handler) HandleSubmitCandles(w http.ResponseWriter, r *http.Request, symbol string) {
	var candles []technicals.Candle
	if err := json.NewDecoder(r.Body).Decode(&candles); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	asset, ok := h.service.Asset(symbol)
	if !ok {
		http.Error(w, "Symbol not staged", http.StatusNotFound)
		return
	}

	ctx, err := h.structure.BuildContext(candles, asset.Price)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	dir := asset.Direction
	if dir == domain.DirectionNeutral {
		dir = domain.DirectionLong
	}
	aligned := h.structure.TrendAligned(candles, dir)

	if err := h.service.SetStructure(symbol, ctx, aligned); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"data": map[string]interface{}{
			"symbol":        asset.Symbol,
			"atr":           ctx.ATR,
			"supports":      len(ctx.Supports),
			"resistances":   len(ctx.Resistances),
			"order_blocks":  len(ctx.OrderBlocks),
			"liquidity":     len(ctx.Liquidity),
			"trend_aligned": aligned,
		},
	})
}

// HandleSubmitRegime handles POST /api/intake/regime
func (h *Handler) HandleSubmitRegime(w http.ResponseWriter, r *http.Request) {
	var snap domain.RegimeSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.SubmitRegime(snap); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"data": map[string]interface{}{"regime": snap.Regime},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
