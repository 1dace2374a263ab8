package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/common/metrics"
	"immo-workers/internal/listing"
	"immo-workers/internal/platform"
)

const fetchLimit = 500

// Share events published to the notifier.
const (
	EventShareCreated = "share.created"
	EventShareRevoked = "share.revoked"
)

// ShareNotifier is told about share changes.
type ShareNotifier interface {
	ShareEvent(ctx context.Context, eventType string, share Share)
}

type ServiceOptions struct {
	Invoker  platform.Invoker
	Entities platform.Entities
	Notifier ShareNotifier
	Logger   logger.Logger
	PageSize int
	// CacheTTL is how long a fetched list is served from the library.
	CacheTTL time.Duration
}

// Service lists documents and shares per user and runs bulk actions on them.
type Service struct {
	invoker  platform.Invoker
	entities platform.Entities
	notifier ShareNotifier
	logger   logger.Logger
	pageSize int
	ttl      time.Duration
	libs     libraries
	now      func() time.Time
}

func NewService(opts ServiceOptions) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = listing.DefaultPageSize
	}
	return &Service{
		invoker:  opts.Invoker,
		entities: opts.Entities,
		notifier: opts.Notifier,
		logger:   log.With(map[string]interface{}{"component": "documents"}),
		pageSize: pageSize,
		ttl:      opts.CacheTTL,
		now:      time.Now,
	}
}

// Library returns the cached lists of user.
func (s *Service) Library(user string) *Library {
	return s.libs.get(user, s.now())
}

// ListDocuments returns one page of the user's generated documents.
func (s *Service) ListDocuments(ctx context.Context, user string, f DocumentFilter) (listing.Page[Document], error) {
	lib := s.Library(user)
	if !lib.docsFresh(s.now(), s.ttl) {
		if err := s.RefreshDocuments(ctx, user); err != nil {
			return listing.Page[Document]{}, err
		}
	}
	return listing.Apply(lib.Documents().Items, documentOptions(f, s.pageSize)), nil
}

// RefreshDocuments refetches the user's documents from the entity store.
func (s *Service) RefreshDocuments(ctx context.Context, user string) error {
	var docs []Document
	err := s.entities.Filter(ctx, platform.EntityGeneratedDocument,
		map[string]interface{}{"created_by": user}, "-created_date", fetchLimit, &docs)
	if err != nil {
		return err
	}
	lib := s.Library(user)
	lib.applyDocs(Loaded[Document]{Items: docs})
	lib.markDocsLoaded(s.now())
	return nil
}

// UpdateDocument patches a document and refreshes it in the user's library.
func (s *Service) UpdateDocument(ctx context.Context, user, id string, patch map[string]interface{}) (*Document, error) {
	var doc Document
	if err := s.entities.Update(ctx, platform.EntityGeneratedDocument, id, patch, &doc); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = id
	}
	lib := s.Library(user)
	items := lib.Documents().Items
	updated := make([]Document, len(items))
	for i, d := range items {
		if d.ID == id {
			d = doc
		}
		updated[i] = d
	}
	lib.applyDocs(Loaded[Document]{Items: updated})
	return &doc, nil
}

// DeleteDocument removes a single document through the entity store.
func (s *Service) DeleteDocument(ctx context.Context, user, id string) error {
	lib := s.Library(user)
	lib.applyDocs(Started{Action: ActionDelete, IDs: []string{id}})
	if err := s.entities.Delete(ctx, platform.EntityGeneratedDocument, id); err != nil {
		lib.applyDocs(Failed{Action: ActionDelete, Err: err})
		return err
	}
	lib.applyDocs(Succeeded{Action: ActionDelete, IDs: []string{id}})
	return nil
}

// DeleteDocuments deletes ids with one batchDeleteDocuments call.
func (s *Service) DeleteDocuments(ctx context.Context, user string, ids []string) (*BulkResult, error) {
	ids = listing.NewSelection(ids...).IDs()
	lib := s.Library(user)
	return runBulk(ctx, s, ActionDelete, platform.FnBatchDeleteDocuments, ids,
		map[string]interface{}{"document_ids": ids}, lib.applyDocs)
}

// ExportDocuments bundles ids with one batchExportDocuments call. The
// returned result carries the download URL.
func (s *Service) ExportDocuments(ctx context.Context, user string, ids []string, format string) (*BulkResult, error) {
	ids = listing.NewSelection(ids...).IDs()
	if format == "" {
		format = "zip"
	}
	lib := s.Library(user)
	return runBulk(ctx, s, ActionExport, platform.FnBatchExportDocuments, ids,
		map[string]interface{}{"document_ids": ids, "format": format}, lib.applyDocs)
}

// ListShares returns one page of the shares the user created.
func (s *Service) ListShares(ctx context.Context, user string, f ShareFilter) (listing.Page[Share], error) {
	lib := s.Library(user)
	if !lib.sharesFresh(s.now(), s.ttl) {
		if err := s.RefreshShares(ctx, user); err != nil {
			return listing.Page[Share]{}, err
		}
	}
	return listing.Apply(lib.Shares().Items, shareOptions(f, s.pageSize)), nil
}

// RefreshShares refetches the user's shares.
func (s *Service) RefreshShares(ctx context.Context, user string) error {
	return s.refreshShares(ctx, user, s.Library(user))
}

func (s *Service) refreshShares(ctx context.Context, user string, lib *Library) error {
	resp, err := s.invoker.Invoke(ctx, platform.FnGetSharedDocumentsCrossApp, map[string]interface{}{"user_email": user})
	if err != nil {
		return err
	}
	var shares []Share
	if err := decodeList(resp, "shares", &shares); err != nil {
		return errors.NewPlatformError(platform.FnGetSharedDocumentsCrossApp, resp.Status, err)
	}
	lib.applyShares(Loaded[Share]{Items: shares})
	lib.markSharesLoaded(s.now())
	return nil
}

// ShareDocument shares a document into another app.
func (s *Service) ShareDocument(ctx context.Context, user string, req ShareRequest) (*Share, error) {
	if req.DocumentID == "" {
		return nil, errors.NewMissingFieldError("document_id")
	}
	if req.TargetApp == "" {
		return nil, errors.NewMissingFieldError("target_app")
	}
	if req.AccessLevel == "" {
		req.AccessLevel = AccessView
	}
	if !validAccessLevel(req.AccessLevel) {
		return nil, errors.NewValidationError("access_level",
			fmt.Sprintf("Ungültige Berechtigung. Erlaubt: %s", strings.Join(accessLevels, ", ")))
	}
	if req.SharedWith != "" {
		if err := checkEmail("shared_with", req.SharedWith); err != nil {
			return nil, err
		}
	}

	resp, err := s.invoker.Invoke(ctx, platform.FnShareDocumentCrossApp, req)
	if err != nil {
		return nil, err
	}
	var share Share
	if err := decodeObject(resp, "share", &share); err != nil {
		return nil, errors.NewPlatformError(platform.FnShareDocumentCrossApp, resp.Status, err)
	}
	if share.DocumentID == "" {
		share.DocumentID = req.DocumentID
	}
	if share.TargetApp == "" {
		share.TargetApp = req.TargetApp
	}
	if share.AccessLevel == "" {
		share.AccessLevel = req.AccessLevel
	}

	lib := s.Library(user)
	lib.applyShares(Loaded[Share]{Items: append([]Share{share}, lib.Shares().Items...)})
	s.logger.Info("document shared", map[string]interface{}{
		"documentId": share.DocumentID,
		"targetApp":  share.TargetApp,
		"shareId":    share.ID,
	})
	s.notify(ctx, EventShareCreated, share)
	return &share, nil
}

// SyncDocument pushes the latest version of a document to a target app.
func (s *Service) SyncDocument(ctx context.Context, documentID, targetApp string) error {
	if documentID == "" || targetApp == "" {
		return errors.NewMissingFieldError("document_id", "target_app")
	}
	_, err := s.invoker.Invoke(ctx, platform.FnSyncDocumentToApp, map[string]interface{}{
		"document_id": documentID,
		"target_app":  targetApp,
	})
	return err
}

func (s *Service) ShareStats(ctx context.Context, documentID string) (*ShareStats, error) {
	resp, err := s.invoker.Invoke(ctx, platform.FnGetDocumentShareStats, map[string]interface{}{"document_id": documentID})
	if err != nil {
		return nil, err
	}
	var stats ShareStats
	if err := decodeObject(resp, "stats", &stats); err != nil {
		return nil, errors.NewPlatformError(platform.FnGetDocumentShareStats, resp.Status, err)
	}
	return &stats, nil
}

// RevokeShare revokes a single share.
func (s *Service) RevokeShare(ctx context.Context, user, id string) error {
	lib := s.Library(user)
	var revoked Share
	for _, sh := range lib.Shares().Items {
		if sh.ID == id {
			revoked = sh
		}
	}

	lib.applyShares(Started{Action: ActionRevoke, IDs: []string{id}})
	_, err := s.invoker.Invoke(ctx, platform.FnRevokeDocumentShareCrossApp, map[string]interface{}{"share_id": id})
	metrics.BulkActions.WithLabelValues(ActionRevoke, metrics.Status(err)).Inc()
	if err != nil {
		lib.applyShares(Failed{Action: ActionRevoke, Err: err})
		return err
	}
	lib.applyShares(Succeeded{Action: ActionRevoke, IDs: []string{id}})

	revoked.ID = id
	s.notify(ctx, EventShareRevoked, revoked)
	return nil
}

// RevokeShares revokes ids with one batchRevokeShares call.
func (s *Service) RevokeShares(ctx context.Context, user string, ids []string) (*BulkResult, error) {
	ids = listing.NewSelection(ids...).IDs()
	lib := s.Library(user)
	result, err := runBulk(ctx, s, ActionRevoke, platform.FnBatchRevokeShares, ids,
		map[string]interface{}{"share_ids": ids}, lib.applyShares)
	if result != nil {
		for _, id := range result.Succeeded {
			s.notify(ctx, EventShareRevoked, Share{ID: id})
		}
	}
	return result, err
}

// TrackDownload counts a download of a shared document.
func (s *Service) TrackDownload(ctx context.Context, shareID string) error {
	_, err := s.invoker.Invoke(ctx, platform.FnTrackShareDownload, map[string]interface{}{"share_id": shareID})
	return err
}

// SendEmail mails a generated document.
func (s *Service) SendEmail(ctx context.Context, req EmailRequest) error {
	if req.DocumentID == "" {
		return errors.NewMissingFieldError("document_id")
	}
	if err := checkEmail("recipient_email", req.Recipient); err != nil {
		return err
	}
	_, err := s.invoker.Invoke(ctx, platform.FnSendDocumentEmail, req)
	return err
}

// RequestDocuments asks a recipient to provide documents.
func (s *Service) RequestDocuments(ctx context.Context, req DocumentRequest) error {
	if err := checkEmail("recipient_email", req.Recipient); err != nil {
		return err
	}
	if len(req.DocumentTypes) == 0 {
		return errors.NewMissingFieldError("document_types")
	}
	_, err := s.invoker.Invoke(ctx, platform.FnSendDocumentRequest, req)
	return err
}

func (s *Service) CreateSelfDisclosureForm(ctx context.Context, req SelfDisclosureRequest) (*SelfDisclosureForm, error) {
	if strings.TrimSpace(req.PropertyAddress) == "" {
		return nil, errors.NewMissingFieldError("property_address")
	}
	if req.RecipientEmail != "" {
		if err := checkEmail("recipient_email", req.RecipientEmail); err != nil {
			return nil, err
		}
	}
	resp, err := s.invoker.Invoke(ctx, platform.FnCreateSelfDisclosureForm, req)
	if err != nil {
		return nil, err
	}
	var form SelfDisclosureForm
	if err := decodeObject(resp, "form", &form); err != nil {
		return nil, errors.NewPlatformError(platform.FnCreateSelfDisclosureForm, resp.Status, err)
	}
	return &form, nil
}

func (s *Service) SelfDisclosureSubmissions(ctx context.Context, formID string) ([]Submission, error) {
	payload := map[string]interface{}{}
	if formID != "" {
		payload["form_id"] = formID
	}
	resp, err := s.invoker.Invoke(ctx, platform.FnGetSelfDisclosureSubmissions, payload)
	if err != nil {
		return nil, err
	}
	var subs []Submission
	if err := decodeList(resp, "submissions", &subs); err != nil {
		return nil, errors.NewPlatformError(platform.FnGetSelfDisclosureSubmissions, resp.Status, err)
	}
	return subs, nil
}

// runBulk runs one remote call for ids and feeds the outcome to the library
// reducer. When the response names no IDs, all requested IDs count as done.
func runBulk[T any](ctx context.Context, s *Service, action, function string, ids []string, payload map[string]interface{},
	apply func(Event) State[T]) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, errors.NewValidationError("ids", "Bitte wählen Sie mindestens einen Eintrag aus")
	}

	start := s.now()
	apply(Started{Action: action, IDs: ids})
	resp, err := s.invoker.Invoke(ctx, function, payload)
	metrics.BulkActions.WithLabelValues(action, metrics.Status(err)).Inc()
	fields := map[string]interface{}{
		"action":     action,
		"count":      len(ids),
		"durationMs": time.Since(start).Milliseconds(),
	}
	if err != nil {
		apply(Failed{Action: action, Err: err})
		s.logger.WithError(err).Warn("bulk action failed", fields)
		return nil, err
	}

	result := parseBulkResult(resp, action, ids)
	apply(Succeeded{Action: action, IDs: result.Succeeded, Failed: result.Failed})

	fields["succeeded"] = len(result.Succeeded)
	fields["failed"] = len(result.Failed)
	s.logger.Info("bulk action completed", fields)
	if len(result.Failed) > 0 {
		return result, errors.NewBulkActionFailedError(action,
			fmt.Errorf("%d of %d failed: %s", len(result.Failed), len(ids), result.failedIDs()))
	}
	return result, nil
}

func parseBulkResult(resp *platform.Response, action string, requested []string) *BulkResult {
	var body struct {
		Succeeded []string      `json:"succeeded"`
		Deleted   []string      `json:"deleted"`
		Revoked   []string      `json:"revoked"`
		Failed    []BulkFailure `json:"failed"`
		FileURL   string        `json:"file_url"`
	}
	// an undecodable body still means the call succeeded
	_ = resp.Decode(&body)

	result := &BulkResult{Action: action, Failed: body.Failed, FileURL: body.FileURL}
	switch {
	case body.Succeeded != nil:
		result.Succeeded = body.Succeeded
	case body.Deleted != nil:
		result.Succeeded = body.Deleted
	case body.Revoked != nil:
		result.Succeeded = body.Revoked
	default:
		failed := make(map[string]bool, len(body.Failed))
		for _, f := range body.Failed {
			failed[f.ID] = true
		}
		for _, id := range requested {
			if !failed[id] {
				result.Succeeded = append(result.Succeeded, id)
			}
		}
	}
	return result
}

func (s *Service) notify(ctx context.Context, eventType string, share Share) {
	if s.notifier != nil {
		s.notifier.ShareEvent(ctx, eventType, share)
	}
}

func checkEmail(field, addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.NewMissingFieldError(field)
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		return errors.NewValidationError(field, "Bitte geben Sie eine gültige E-Mail-Adresse ein")
	}
	return nil
}

// decodeList reads a list that is either the whole payload or under key.
func decodeList(resp *platform.Response, key string, out interface{}) error {
	if trimmed := bytes.TrimSpace(resp.Data); len(trimmed) > 0 && trimmed[0] == '[' {
		return resp.Decode(out)
	}
	return decodeObject(resp, key, out)
}

// decodeObject reads an object that is either the whole payload or under key.
func decodeObject(resp *platform.Response, key string, out interface{}) error {
	var wrapped map[string]json.RawMessage
	if err := resp.Decode(&wrapped); err != nil {
		return err
	}
	if inner, ok := wrapped[key]; ok {
		return (&platform.Response{Data: inner}).Decode(out)
	}
	return resp.Decode(out)
}
