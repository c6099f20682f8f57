package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Pinger is a dependency whose reachability Health reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health pings every named dependency. Any failure marks the service degraded.
func Health(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		results := make(map[string]string, len(checks))

		for name, p := range checks {
			if err := p.Ping(r.Context()); err != nil {
				slog.Warn("health: ping failed", "check", name, "err", err)
				results[name] = "unreachable"
				status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": results})
	}
}
