package server

import (
	"encoding/json"
	"net/http"
)

// handleHealth handles health check requests. The database gets a full
// integrity check so a corrupted file surfaces here, not on the next write.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "confluence",
	}

	if s.decisionsDB != nil {
		if err := s.decisionsDB.HealthCheck(r.Context()); err != nil {
			s.log.Error().Err(err).Msg("Database health check failed")
			status = http.StatusServiceUnavailable
			response["status"] = "degraded"
			response["database_error"] = err.Error()
		}
	}

	s.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
