package api

import (
	"context"
	"net/http"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/wizard"

	"github.com/go-chi/chi/v5"
)

type startRequest struct {
	FormData wizard.FormData `json:"formData"`
}

type sessionPayload struct {
	*wizard.Session
	Missing    []string `json:"missing"`
	IsFirst    bool     `json:"isFirst"`
	IsLast     bool     `json:"isLast"`
	Autosaving bool     `json:"autosaving"`
}

func (s *Server) wizardRoutes(r chi.Router) {
	r.Get("/", s.listWizards)
	r.Get("/{wizardID}", s.getWizard)
	r.Post("/{wizardID}/sessions", s.startSession)
	r.Post("/{wizardID}/generate", s.generateFromData)
}

func (s *Server) sessionRoutes(r chi.Router) {
	r.Get("/{sessionID}", s.getSession)
	r.Patch("/{sessionID}", s.updateSession)
	r.Post("/{sessionID}/next", s.nextStep)
	r.Post("/{sessionID}/prev", s.prevStep)
	r.Post("/{sessionID}/generate", s.generate)
	r.Post("/{sessionID}/autosave", s.startAutosave)
	r.Delete("/{sessionID}/autosave", s.stopAutosave)
}

func (s *Server) listWizards(w http.ResponseWriter, r *http.Request) {
	if s.wizards == nil {
		writeUnavailable(w, r, "wizards")
		return
	}
	writeJSON(w, http.StatusOK, s.wizards.Definitions())
}

func (s *Server) getWizard(w http.ResponseWriter, r *http.Request) {
	if s.wizards == nil {
		writeUnavailable(w, r, "wizards")
		return
	}
	def, err := s.wizards.Definition(chi.URLParam(r, "wizardID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	if s.wizards == nil {
		writeUnavailable(w, r, "wizards")
		return
	}
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	session, err := s.wizards.Start(r.Context(), chi.URLParam(r, "wizardID"), userFrom(r.Context()).Email, req.FormData)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusCreated, session)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, id string) (*wizard.Session, error) {
		return s.wizards.Get(ctx, id)
	})
}

func (s *Server) updateSession(w http.ResponseWriter, r *http.Request) {
	var patch wizard.FormData
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	s.withSession(w, r, func(ctx context.Context, id string) (*wizard.Session, error) {
		return s.wizards.Update(ctx, id, patch)
	})
}

func (s *Server) nextStep(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, s.wizards.Next)
}

func (s *Server) prevStep(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, s.wizards.Prev)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	if s.wizards == nil {
		writeUnavailable(w, r, "wizards")
		return
	}
	id, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	doc, err := s.wizards.Generate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) generateFromData(w http.ResponseWriter, r *http.Request) {
	if s.wizards == nil {
		writeUnavailable(w, r, "wizards")
		return
	}
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.wizards.GenerateFromData(r.Context(), chi.URLParam(r, "wizardID"), userFrom(r.Context()).Email, req.FormData)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// startAutosave keeps saving the session after this request returns, so the
// loop runs on a context detached from the request's cancellation.
func (s *Server) startAutosave(w http.ResponseWriter, r *http.Request) {
	if s.wizards == nil {
		writeUnavailable(w, r, "wizards")
		return
	}
	id, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	if err := s.wizards.StartAutosave(context.WithoutCancel(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"sessionId": id, "autosaving": true})
}

func (s *Server) stopAutosave(w http.ResponseWriter, r *http.Request) {
	if s.wizards == nil {
		writeUnavailable(w, r, "wizards")
		return
	}
	id, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	s.wizards.StopAutosave(id)
	w.WriteHeader(http.StatusNoContent)
}

// withSession checks ownership of the session in the URL, applies op and
// writes the resulting session.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (*wizard.Session, error)) {
	if s.wizards == nil {
		writeUnavailable(w, r, "wizards")
		return
	}
	id, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	session, err := op(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.writeSession(w, r, http.StatusOK, session)
}

// ownedSession answers 404 for sessions of other users.
func (s *Server) ownedSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "sessionID")
	session, err := s.wizards.Get(r.Context(), id)
	if err == nil && session.UserEmail != userFrom(r.Context()).Email {
		err = errors.NewSessionNotFoundError(id)
	}
	if err != nil {
		writeError(w, r, err)
		return "", false
	}
	return id, true
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, session *wizard.Session) {
	payload := sessionPayload{Session: session, Autosaving: s.wizards.Autosaving(session.ID)}
	if def, err := s.wizards.Definition(session.WizardID); err == nil {
		wz := wizard.Restore(def, session.State)
		payload.Missing = wz.Missing()
		payload.IsFirst = wz.IsFirst()
		payload.IsLast = wz.IsLast()
	}
	if payload.Missing == nil {
		payload.Missing = []string{}
	}
	writeJSON(w, status, payload)
}
