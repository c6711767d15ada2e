package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/formgest/internal/fetch"
	"github.com/dgallion1/formgest/internal/form"
	"github.com/dgallion1/formgest/internal/generate"
	"github.com/dgallion1/formgest/internal/parser"
)

// manualInputHint accompanies parse failures; clients fall back to letting
// the user enter questions by hand.
const manualInputHint = "use manual input"

type parseRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

type parseResponse struct {
	form.ParseResult
	Analysis generate.Analysis `json:"analysis"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	document := req.HTML
	if strings.TrimSpace(document) == "" {
		if strings.TrimSpace(req.URL) == "" {
			jsonError(w, "url or html is required", http.StatusBadRequest)
			return
		}
		page, status, err := s.fetchPage(r, req.URL)
		if err != nil {
			jsonErrorHint(w, err.Error(), manualInputHint, status)
			return
		}
		document = page
	}

	result, err := s.deps.Parser.Parse(document)
	if err == nil {
		err = parser.RequireQuestions(result)
	}
	if err != nil {
		s.log.Info("parse failed", "error", err, "request_id", requestID(r))
		jsonErrorHint(w, err.Error(), manualInputHint, http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, parseResponse{
		ParseResult: result,
		Analysis:    generate.Analyze(result.Questions),
	})
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		jsonError(w, "URL parameter is required", http.StatusBadRequest)
		return
	}
	page, status, err := s.fetchPage(r, target)
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

// fetchPage fetches target and maps failures to a status code.
func (s *Server) fetchPage(r *http.Request, target string) (string, int, error) {
	if s.deps.Fetcher == nil {
		return "", http.StatusServiceUnavailable, errors.New("fetching is not configured")
	}
	page, err := s.deps.Fetcher.Fetch(r.Context(), target)
	switch {
	case err == nil:
		return page, http.StatusOK, nil
	case errors.Is(err, fetch.ErrInvalidURL):
		return "", http.StatusBadRequest, err
	default:
		s.log.Warn("fetch failed", "url", target, "error", err, "request_id", requestID(r))
		return "", http.StatusBadGateway, err
	}
}
