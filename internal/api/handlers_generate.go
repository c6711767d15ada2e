package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgallion1/formgest/internal/export"
	"github.com/dgallion1/formgest/internal/form"
	"github.com/dgallion1/formgest/internal/generate"
	"github.com/dgallion1/formgest/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type generateRequest struct {
	Questions    []form.Question        `json:"questions"`
	Distribution *generate.Distribution `json:"distribution"`
	Count        int                    `json:"count"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		jsonError(w, "generation unavailable: GEMINI_API_KEY is not configured", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	dist := generate.DefaultDistribution()
	if req.Distribution != nil {
		dist = *req.Distribution
	}
	count := req.Count
	if count == 0 && len(req.Questions) > 0 {
		count = generate.Analyze(req.Questions).RecommendedCount
	}
	for i := range req.Questions {
		if !req.Questions[i].Type.Valid() {
			req.Questions[i].Type = form.ShortAnswer
		}
	}

	job, err := pipeline.NewJob(req.Questions, dist, count, s.deps.Jobs.MaxResponses())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.deps.Jobs.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"count":    count,
		"poll_url": fmt.Sprintf("/api/generate/%s/status", job.ID),
	})
}

func (s *Server) job(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	if s.deps.Jobs == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return nil
	}
	job := s.deps.Jobs.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

func (s *Server) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	job := s.job(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	job := s.job(w, r)
	if job == nil {
		return
	}
	responses, err := job.Finished()
	if err != nil {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if len(responses) == 0 {
		jsonError(w, "no responses to export", http.StatusConflict)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, responses); err != nil {
		s.log.Error("export failed", "job_id", job.ID, "format", format, "error", err)
		jsonError(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.Write(buf.Bytes())
}

type completionRequest struct {
	Prompt string `json:"prompt"`
}

// handleGemini forwards a caller-built prompt to the model chain.
func (s *Server) handleGemini(w http.ResponseWriter, r *http.Request) {
	if s.deps.LLM == nil {
		jsonError(w, "Gemini API key not configured", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		jsonError(w, "Prompt is required", http.StatusBadRequest)
		return
	}

	c, err := s.deps.LLM.Complete(r.Context(), req.Prompt)
	if err != nil {
		status := http.StatusBadGateway
		var retry *generate.RetryableError
		if errors.As(err, &retry) {
			status = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":        c.Text,
		"model":       c.Model,
		"duration_ms": c.DurationMs,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func jsonErrorHint(w http.ResponseWriter, msg, hint string, code int) {
	writeJSON(w, code, map[string]string{"error": msg, "hint": hint})
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
