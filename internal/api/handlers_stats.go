package api

import "net/http"

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model":       s.deps.Model,
		"stats":       s.deps.Stats.Snapshot(),
		"queue_depth": s.queueDepth(),
	})
}

func (s *Server) queueDepth() int {
	if s.deps.Jobs == nil {
		return 0
	}
	return s.deps.Jobs.QueueDepth()
}
