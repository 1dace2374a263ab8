package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) ecosystemRoutes(r chi.Router) {
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.ecosystem == nil {
				writeUnavailable(w, r, "ecosystem")
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/apps", s.ecosystemApps)
	r.Get("/apps/{appID}/access", s.appAccess)
	r.Get("/apps/{appID}/pricing", s.appPricing)
	r.Get("/recommendations", s.crossSell)
	r.Get("/buildings", s.buildings)
	r.Get("/meters", s.meters)
}

func (s *Server) ecosystemApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.ecosystem.Apps(r.Context())
	respond(w, r, apps, err)
}

func (s *Server) appAccess(w http.ResponseWriter, r *http.Request) {
	check := s.ecosystem.CheckAccess
	if queryBool(r, "refresh") {
		check = s.ecosystem.RefreshAccess
	}
	access, err := check(r.Context(), userFrom(r.Context()).Email, chi.URLParam(r, "appID"))
	respond(w, r, access, err)
}

func (s *Server) appPricing(w http.ResponseWriter, r *http.Request) {
	pricing, err := s.ecosystem.Pricing(r.Context(), chi.URLParam(r, "appID"))
	respond(w, r, pricing, err)
}

func (s *Server) crossSell(w http.ResponseWriter, r *http.Request) {
	current := strings.TrimSpace(r.URL.Query().Get("current_app"))
	recs, err := s.ecosystem.CrossSell(r.Context(), userFrom(r.Context()).Email, current)
	respond(w, r, recs, err)
}

func (s *Server) buildings(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ecosystem.Buildings(r.Context(), userFrom(r.Context()).Email)
	respond(w, r, summary, err)
}

func (s *Server) meters(w http.ResponseWriter, r *http.Request) {
	building := strings.TrimSpace(r.URL.Query().Get("building_id"))
	meters, err := s.ecosystem.Meters(r.Context(), userFrom(r.Context()).Email, building)
	respond(w, r, meters, err)
}

func respond(w http.ResponseWriter, r *http.Request, v interface{}, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
