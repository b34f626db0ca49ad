package api

import (
	"net/http"
)

func (s *Server) handleStoreStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.StoreStats == nil {
		jsonError(w, "store stats unavailable", http.StatusServiceUnavailable)
		return
	}

	out := map[string]any{
		"backend": s.cfg.StoreBackend,
		"store":   s.deps.StoreStats(),
	}
	if s.deps.TrackerStats != nil {
		out["views"] = s.deps.TrackerStats()
	}
	writeJSON(w, http.StatusOK, out)
}
