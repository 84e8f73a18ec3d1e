package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves probe as JSON: 503 when unhealthy, 200 otherwise, so a
// degraded analyzer stays in rotation.
func (hc *HealthChecker) Handler(probe Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := hc.Run(probe)

		w.Header().Set("Content-Type", "application/json")
		if response.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(response)
	}
}
