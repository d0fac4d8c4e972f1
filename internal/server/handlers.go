package server

import (
	"context"
	"net/http"
	"time"
)

// handleHealth reports whether the record store answers queries
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"service": "dealdesk",
	}

	if err := s.container.DB.HealthCheck(ctx); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		response["status"] = "unhealthy"
		response["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, response, s.log)
		return
	}

	writeJSON(w, http.StatusOK, response, s.log)
}
