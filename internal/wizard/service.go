package wizard

import (
	"context"
	"sync"
	"time"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/platform"

	"github.com/google/uuid"
)

// GeneratedDocument is what generateDocument returns.
type GeneratedDocument struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DocumentType string `json:"document_type"`
	FileURL      string `json:"file_url"`
}

// Notifier is told about freshly generated documents.
type Notifier interface {
	DocumentReady(ctx context.Context, recipient string, doc GeneratedDocument)
}

type ServiceOptions struct {
	Registry         *Registry
	Store            SessionStore
	Invoker          platform.Invoker
	Notifier         Notifier
	Logger           logger.Logger
	AutosaveInterval time.Duration
}

// Service runs wizard sessions on behalf of the API and workers.
type Service struct {
	registry *Registry
	store    SessionStore
	invoker  platform.Invoker
	notifier Notifier
	logger   logger.Logger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	autosaves map[string]*autosave
}

type autosave struct {
	cancel context.CancelFunc
}

// DefaultAutosaveInterval applies when ServiceOptions leaves it unset.
const DefaultAutosaveInterval = 30 * time.Second

func NewService(opts ServiceOptions) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	interval := opts.AutosaveInterval
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Service{
		registry:  opts.Registry,
		store:     opts.Store,
		invoker:   opts.Invoker,
		notifier:  opts.Notifier,
		logger:    log.With(map[string]interface{}{"component": "wizard"}),
		interval:  interval,
		now:       time.Now,
		autosaves: make(map[string]*autosave),
	}
}

func (s *Service) Definitions() []*Definition {
	return s.registry.List()
}

func (s *Service) Definition(id string) (*Definition, error) {
	return s.registry.Get(id)
}

// Start opens a new session on step 1, optionally prefilled.
func (s *Service) Start(ctx context.Context, wizardID, userEmail string, initial FormData) (*Session, error) {
	def, err := s.registry.Get(wizardID)
	if err != nil {
		return nil, err
	}
	w := New(def)
	w.Merge(initial)

	now := s.now()
	session := &Session{
		ID:        uuid.NewString(),
		WizardID:  wizardID,
		UserEmail: userEmail,
		State:     w.State(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("wizard session started", map[string]interface{}{
		"wizardId":  wizardID,
		"sessionId": session.ID,
	})
	return session, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	return s.store.Get(ctx, sessionID)
}

// Update merges patch into the session's form data without moving steps.
func (s *Service) Update(ctx context.Context, sessionID string, patch FormData) (*Session, error) {
	return s.mutate(ctx, sessionID, func(w *Wizard) error {
		w.Merge(patch)
		return nil
	})
}

// Next advances the session. When the step is incomplete the stored session
// is unchanged and the validation error is returned.
func (s *Service) Next(ctx context.Context, sessionID string) (*Session, error) {
	return s.mutate(ctx, sessionID, func(w *Wizard) error {
		return w.Next()
	})
}

func (s *Service) Prev(ctx context.Context, sessionID string) (*Session, error) {
	return s.mutate(ctx, sessionID, func(w *Wizard) error {
		w.Prev()
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*Wizard) error) (*Session, error) {
	session, w, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return session, err
	}
	session.State = w.State()
	session.UpdatedAt = s.now()
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) load(ctx context.Context, sessionID string) (*Session, *Wizard, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	def, err := s.registry.Get(session.WizardID)
	if err != nil {
		return nil, nil, err
	}
	return session, Restore(def, session.State), nil
}

// Generate creates the document of a session that has reached its last
// step. The session keeps the resulting document reference.
func (s *Service) Generate(ctx context.Context, sessionID string) (*GeneratedDocument, error) {
	session, w, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := w.ReadyToGenerate(); err != nil {
		return nil, err
	}

	doc, err := s.generate(ctx, w.Definition(), session.UserEmail, w.State().FormData)
	if err != nil {
		return nil, err
	}

	s.StopAutosave(sessionID)
	session.DocumentID = doc.ID
	session.FileURL = doc.FileURL
	session.UpdatedAt = s.now()
	if err := s.store.Save(ctx, session); err != nil {
		s.logger.WithError(err).Warn("failed to record generated document on session", map[string]interface{}{
			"sessionId":  sessionID,
			"documentId": doc.ID,
		})
	}
	return doc, nil
}

// GenerateFromData validates complete form data for wizardID and generates
// the document without a session.
func (s *Service) GenerateFromData(ctx context.Context, wizardID, userEmail string, data FormData) (*GeneratedDocument, error) {
	def, err := s.registry.Get(wizardID)
	if err != nil {
		return nil, err
	}
	if err := def.ValidateDocument(data); err != nil {
		return nil, err
	}
	return s.generate(ctx, def, userEmail, data)
}

func (s *Service) generate(ctx context.Context, def *Definition, userEmail string, data FormData) (*GeneratedDocument, error) {
	start := s.now()
	resp, err := s.invoker.Invoke(ctx, platform.FnGenerateDocument, map[string]interface{}{
		"document_type": def.DocumentType,
		"title":         def.Title,
		"user_email":    userEmail,
		"data":          map[string]interface{}(data),
	})
	fields := map[string]interface{}{
		"wizardId":   def.ID,
		"durationMs": time.Since(start).Milliseconds(),
	}
	if err != nil {
		s.logger.WithError(err).Error("document generation failed", fields)
		return nil, err
	}

	var doc GeneratedDocument
	if err := resp.Decode(&doc); err != nil {
		return nil, errors.NewPlatformError(platform.FnGenerateDocument, resp.Status, err)
	}
	if doc.Title == "" {
		doc.Title = def.Title
	}
	if doc.DocumentType == "" {
		doc.DocumentType = def.DocumentType
	}

	fields["documentId"] = doc.ID
	s.logger.Info("document generated", fields)
	if s.notifier != nil && userEmail != "" {
		s.notifier.DocumentReady(ctx, userEmail, doc)
	}
	return &doc, nil
}

// StartAutosave begins periodic saving of the session until StopAutosave or
// ctx is cancelled. Starting twice for a session is a no-op.
func (s *Service) StartAutosave(ctx context.Context, sessionID string) error {
	if _, err := s.store.Get(ctx, sessionID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.autosaves[sessionID]; running {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	handle := &autosave{cancel: cancel}
	s.autosaves[sessionID] = handle

	saver := NewAutosaver(s.invoker, s.interval, s.logger)
	go func() {
		saver.Run(ctx, s.snapshot(sessionID))
		s.mu.Lock()
		if s.autosaves[sessionID] == handle {
			delete(s.autosaves, sessionID)
		}
		s.mu.Unlock()
	}()
	return nil
}

func (s *Service) StopAutosave(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if handle, ok := s.autosaves[sessionID]; ok {
		handle.cancel()
		delete(s.autosaves, sessionID)
	}
}

// Autosaving reports whether an autosave loop runs for the session.
func (s *Service) Autosaving(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.autosaves[sessionID]
	return ok
}

// StopAll cancels every running autosave.
func (s *Service) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, handle := range s.autosaves {
		handle.cancel()
		delete(s.autosaves, id)
	}
}

func (s *Service) snapshot(sessionID string) Snapshot {
	return func(ctx context.Context) (map[string]interface{}, time.Time, error) {
		session, err := s.store.Get(ctx, sessionID)
		if err != nil {
			return nil, time.Time{}, err
		}
		def, err := s.registry.Get(session.WizardID)
		if err != nil {
			return nil, time.Time{}, err
		}
		return map[string]interface{}{
			"session_id":    session.ID,
			"document_type": def.DocumentType,
			"current_step":  session.State.CurrentStep,
			"form_data":     map[string]interface{}(session.State.FormData),
		}, session.UpdatedAt, nil
	}
}
