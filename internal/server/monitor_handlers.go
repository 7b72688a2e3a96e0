package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/confluence/internal/monitor"
)

// MonitorHandlers exposes run status and the manual trigger.
type MonitorHandlers struct {
	monitor *monitor.Service
	log     zerolog.Logger
}

// NewMonitorHandlers creates monitor handlers
func NewMonitorHandlers(svc *monitor.Service, log zerolog.Logger) *MonitorHandlers {
	return &MonitorHandlers{
		monitor: svc,
		log:     log.With().Str("handler", "monitor").Logger(),
	}
}

// HandleStatus handles GET /api/monitor/status
func (h *MonitorHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": h.monitor.Status()})
}

// HandleTriggerRun handles POST /api/monitor/run. The run executes
// synchronously, aggregation is pure compute and completes well inside the
// request timeout.
func (h *MonitorHandlers) HandleTriggerRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.monitor.TriggerRun(r.Context(), "manual")
	if err != nil {
		if errors.Is(err, monitor.ErrRunInProgress) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Msg("Manual run failed")
		http.Error(w, "Run failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"data": result.Summary})
}

func (h *MonitorHandlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
