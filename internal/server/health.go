package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// healthChecker is implemented by collaborators that can report liveness.
type healthChecker interface {
	Healthy(ctx context.Context) error
}

type healthResp struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// healthHandler reports per-component health for the database and the
// object store. Any down component degrades the whole response to 503.
func (cfg Config) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResp{
		Status:     "ok",
		Components: make(map[string]string),
	}

	if cfg.DB != nil {
		if err := cfg.DB.PingContext(ctx); err != nil {
			resp.Components["database"] = "down"
			resp.Status = "degraded"
		} else {
			resp.Components["database"] = "up"
		}
	}

	if hc, ok := cfg.Blobs.(healthChecker); ok {
		if err := hc.Healthy(ctx); err != nil {
			resp.Components["object_store"] = "down"
			resp.Status = "degraded"
		} else {
			resp.Components["object_store"] = "up"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
