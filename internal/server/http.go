package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/wemo/internal/logging"
	"github.com/muurk/wemo/internal/wemo"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /devices", s.handleDevices)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.hub.serveWS)
	return mux
}

// handleDevices writes the latest snapshot, optionally filtered by ?kind=
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()

	if name := r.URL.Query().Get("kind"); name != "" {
		var kind wemo.Kind
		if err := kind.UnmarshalText([]byte(name)); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filtered := make([]*wemo.Device, 0, len(snap.Devices))
		for _, d := range snap.Devices {
			if d.Kind == kind {
				filtered = append(filtered, d)
			}
		}
		snap.Devices = filtered
	}

	writeJSON(w, r, snap)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]any{
		"status":  "ok",
		"cycle":   s.Snapshot().Cycle,
		"clients": s.hub.count(),
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to write response",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}
