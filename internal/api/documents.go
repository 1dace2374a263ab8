package api

import (
	"net/http"
	"strings"

	"immo-workers/internal/documents"

	"github.com/go-chi/chi/v5"
)

type bulkRequest struct {
	IDs    []string `json:"ids"`
	Format string   `json:"format,omitempty"`
}

type syncRequest struct {
	TargetApp string `json:"target_app"`
}

func (s *Server) documentRoutes(r chi.Router) {
	r.Get("/", s.listDocuments)
	r.Post("/batch-delete", s.deleteDocuments)
	r.Post("/batch-export", s.exportDocuments)
	r.Patch("/{documentID}", s.updateDocument)
	r.Delete("/{documentID}", s.deleteDocument)
	r.Post("/{documentID}/email", s.emailDocument)
	r.Post("/{documentID}/sync", s.syncDocument)
	r.Get("/{documentID}/share-stats", s.shareStats)
}

func (s *Server) shareRoutes(r chi.Router) {
	r.Get("/", s.listShares)
	r.Post("/", s.shareDocument)
	r.Post("/batch-revoke", s.revokeShares)
	r.Delete("/{shareID}", s.revokeShare)
	r.Post("/{shareID}/downloads", s.trackDownload)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	ctx := r.Context()
	user := userFrom(ctx).Email
	if queryBool(r, "refresh") {
		if err := s.documents.RefreshDocuments(ctx, user); err != nil {
			writeError(w, r, err)
			return
		}
	}
	q := r.URL.Query()
	page, err := s.documents.ListDocuments(ctx, user, documents.DocumentFilter{
		Query: strings.TrimSpace(q.Get("q")),
		Type:  strings.TrimSpace(q.Get("type")),
		Sort:  strings.TrimSpace(q.Get("sort")),
		Page:  queryInt(r, "page", 1),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	var patch map[string]interface{}
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.documents.UpdateDocument(r.Context(), userFrom(r.Context()).Email, chi.URLParam(r, "documentID"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	if err := s.documents.DeleteDocument(r.Context(), userFrom(r.Context()).Email, chi.URLParam(r, "documentID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteDocuments(w http.ResponseWriter, r *http.Request) {
	s.bulk(w, r, func(req bulkRequest) (*documents.BulkResult, error) {
		return s.documents.DeleteDocuments(r.Context(), userFrom(r.Context()).Email, req.IDs)
	})
}

func (s *Server) exportDocuments(w http.ResponseWriter, r *http.Request) {
	s.bulk(w, r, func(req bulkRequest) (*documents.BulkResult, error) {
		return s.documents.ExportDocuments(r.Context(), userFrom(r.Context()).Email, req.IDs, req.Format)
	})
}

func (s *Server) revokeShares(w http.ResponseWriter, r *http.Request) {
	s.bulk(w, r, func(req bulkRequest) (*documents.BulkResult, error) {
		return s.documents.RevokeShares(r.Context(), userFrom(r.Context()).Email, req.IDs)
	})
}

// bulk writes the per-ID result. A partial failure still answers with the
// result so the client can keep the failed rows selected.
func (s *Server) bulk(w http.ResponseWriter, r *http.Request, run func(bulkRequest) (*documents.BulkResult, error)) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	var req bulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := run(req)
	if err != nil && result == nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

func (s *Server) emailDocument(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	var req documents.EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.DocumentID = chi.URLParam(r, "documentID")
	if err := s.documents.SendEmail(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) syncDocument(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.documents.SyncDocument(r.Context(), chi.URLParam(r, "documentID"), req.TargetApp); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) shareStats(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	stats, err := s.documents.ShareStats(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) listShares(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	ctx := r.Context()
	user := userFrom(ctx).Email
	if queryBool(r, "refresh") {
		if err := s.documents.RefreshShares(ctx, user); err != nil {
			writeError(w, r, err)
			return
		}
	}
	q := r.URL.Query()
	page, err := s.documents.ListShares(ctx, user, documents.ShareFilter{
		Query:       strings.TrimSpace(q.Get("q")),
		App:         strings.TrimSpace(q.Get("app")),
		AccessLevel: strings.TrimSpace(q.Get("access")),
		Sort:        strings.TrimSpace(q.Get("sort")),
		Page:        queryInt(r, "page", 1),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) shareDocument(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	var req documents.ShareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	share, err := s.documents.ShareDocument(r.Context(), userFrom(r.Context()).Email, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, share)
}

func (s *Server) revokeShare(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	if err := s.documents.RevokeShare(r.Context(), userFrom(r.Context()).Email, chi.URLParam(r, "shareID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) trackDownload(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	if err := s.documents.TrackDownload(r.Context(), chi.URLParam(r, "shareID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requestDocuments(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	var req documents.DocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.documents.RequestDocuments(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) createSelfDisclosure(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	var req documents.SelfDisclosureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	form, err := s.documents.CreateSelfDisclosureForm(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, form)
}

func (s *Server) selfDisclosureSubmissions(w http.ResponseWriter, r *http.Request) {
	if s.documents == nil {
		writeUnavailable(w, r, "documents")
		return
	}
	subs, err := s.documents.SelfDisclosureSubmissions(r.Context(), chi.URLParam(r, "formID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if subs == nil {
		subs = []documents.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}
