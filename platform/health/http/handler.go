package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ReadinessFunc reports whether the service dependencies (store, broker) are reachable
type ReadinessFunc func(ctx context.Context) error

// Handler returns the health endpoint.
// 200 {"status":"ok"} when readiness is nil or succeeds,
// 503 {"status":"not ready","error":...} otherwise.
func Handler(readiness ReadinessFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if readiness != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := readiness(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}

		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
