package api

import (
	"net/http"
	"path/filepath"
	"sync"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/platform"
)

const maxUploadBytes = 25 << 20

// uploadGuards keeps one single-flight upload guard per user while that
// user has a request in the handler. Entries go away with the last request.
type uploadGuards struct {
	uploader platform.Uploader
	mu       sync.Mutex
	byUser   map[string]*userUpload
}

type userUpload struct {
	guard *platform.FileUpload
	refs  int
}

func newUploadGuards(uploader platform.Uploader) *uploadGuards {
	return &uploadGuards{uploader: uploader, byUser: make(map[string]*userUpload)}
}

// acquire returns the user's guard and a release func that must be called
// once the request is done with it.
func (g *uploadGuards) acquire(email string) (*platform.FileUpload, func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.byUser[email]
	if !ok {
		entry = &userUpload{guard: platform.NewFileUpload(g.uploader)}
		g.byUser[email] = entry
	}
	entry.refs++
	return entry.guard, func() { g.release(email, entry) }
}

func (g *uploadGuards) release(email string, entry *userUpload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry.refs--
	if entry.refs <= 0 && g.byUser[email] == entry {
		delete(g.byUser, email)
	}
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		writeUnavailable(w, r, "upload")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, errors.NewValidationError("file", "Bitte wählen Sie eine Datei aus"))
		return
	}
	defer file.Close()

	guard, release := s.uploads.acquire(userFrom(r.Context()).Email)
	defer release()
	fileURL, err := guard.Upload(r.Context(), filepath.Base(header.Filename), file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"file_url": fileURL, "file_name": header.Filename})
}
