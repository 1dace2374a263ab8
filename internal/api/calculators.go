package api

import (
	"net/http"
	"strings"

	"immo-workers/internal/calculator"
	"immo-workers/internal/common/validation"
	"immo-workers/internal/history"

	"github.com/go-chi/chi/v5"
)

type toolPayload struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Schema      *validation.JSONSchema `json:"schema,omitempty"`
}

func buildToolPayload(t calculator.Tool, withSchema bool) toolPayload {
	p := toolPayload{
		ID:          t.ID(),
		Name:        t.Name(),
		Description: t.Description(),
		Category:    t.Category(),
	}
	if withSchema {
		schema := t.Schema()
		p.Schema = &schema
	}
	return p
}

type calculateRequest struct {
	Values calculator.Values `json:"values"`
	Save   bool              `json:"save"`
	Name   string            `json:"name"`
}

type calculateResponse struct {
	*calculator.Outcome
	Saved *history.SavedCalculation `json:"saved,omitempty"`
}

func (s *Server) calculatorRoutes(r chi.Router) {
	r.Get("/", s.listCalculators)
	r.Get("/{toolID}", s.getCalculator)
	r.Post("/{toolID}", s.calculate)
}

func (s *Server) listCalculators(w http.ResponseWriter, r *http.Request) {
	if s.calculators == nil {
		writeUnavailable(w, r, "calculators")
		return
	}
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	tools := s.calculators.List()
	payload := make([]toolPayload, 0, len(tools))
	for _, t := range tools {
		if category != "" && t.Category() != category {
			continue
		}
		payload = append(payload, buildToolPayload(t, false))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) getCalculator(w http.ResponseWriter, r *http.Request) {
	if s.calculators == nil {
		writeUnavailable(w, r, "calculators")
		return
	}
	t, err := s.calculators.Get(chi.URLParam(r, "toolID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buildToolPayload(t, true))
}

// calculate runs a tool. With save set (body or ?save=true) the outcome is
// stored in the caller's history; a failed save fails the request.
func (s *Server) calculate(w http.ResponseWriter, r *http.Request) {
	if s.calculators == nil {
		writeUnavailable(w, r, "calculators")
		return
	}
	var req calculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Values == nil {
		req.Values = calculator.Values{}
	}

	outcome, err := s.calculators.Run(chi.URLParam(r, "toolID"), req.Values)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := calculateResponse{Outcome: outcome}
	if req.Save || queryBool(r, "save") {
		if s.history == nil {
			writeUnavailable(w, r, "history")
			return
		}
		saved, err := s.history.Save(r.Context(), userFrom(r.Context()).Email, outcome, req.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.Saved = saved
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, r, "history")
		return
	}
	items, err := s.history.List(r.Context(), userFrom(r.Context()).Email, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []history.SavedCalculation{}
	}
	writeJSON(w, http.StatusOK, items)
}
