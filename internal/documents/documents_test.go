package documents

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/platform"
	"immo-workers/internal/platform/platformtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const user = "anna@example.com"

func ts(day int) Timestamp {
	return Timestamp{Time: time.Date(2026, 10, day, 9, 0, 0, 0, time.UTC)}
}

func sampleDocs() []Document {
	return []Document{
		{ID: "d1", Title: "Zahlungserinnerung", DocumentType: "mahnung", CreatedDate: ts(1)},
		{ID: "d2", Title: "Übergabeprotokoll Lindenallee", DocumentType: "uebergabeprotokoll", CreatedDate: ts(5)},
		{ID: "d3", Title: "Abnahme Heizung", DocumentType: "protokoll", CreatedDate: ts(3)},
		{ID: "d4", Title: "Mietvertrag Lindenallee", DocumentType: "mietvertrag", CreatedDate: ts(4)},
	}
}

func docIDs(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

type recordingNotifier struct {
	events []string
	shares []Share
}

func (r *recordingNotifier) ShareEvent(ctx context.Context, eventType string, share Share) {
	r.events = append(r.events, eventType)
	r.shares = append(r.shares, share)
}

func newTestService(t *testing.T, invoker *platformtest.MockInvoker, entities *platformtest.MockEntities, notifier ShareNotifier) *Service {
	t.Helper()
	return NewService(ServiceOptions{
		Invoker:  invoker,
		Entities: entities,
		Notifier: notifier,
		Logger:   logger.NewTestLogger(t),
		PageSize: 10,
		CacheTTL: time.Minute,
	})
}

func expectDocuments(entities *platformtest.MockEntities, docs []Document) *mock.Call {
	return entities.On("Filter", mock.Anything, platform.EntityGeneratedDocument,
		map[string]interface{}{"created_by": user}, "-created_date", fetchLimit, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(5).(*[]Document) = docs
		}).
		Return(nil)
}

func TestReduce(t *testing.T) {
	start := State[Document]{Items: sampleDocs()}

	t.Run("started marks pending", func(t *testing.T) {
		s := Reduce(start, documentID, Started{Action: ActionDelete, IDs: []string{"d1"}})
		assert.Equal(t, []string{"d1"}, s.Pending)
		assert.Len(t, s.Items, 4)
	})

	t.Run("only confirmed ids are removed", func(t *testing.T) {
		s := Reduce(start, documentID, Succeeded{
			Action: ActionDelete,
			IDs:    []string{"d1", "d3"},
			Failed: []BulkFailure{{ID: "d2", Error: "gesperrt"}},
		})
		assert.Equal(t, []string{"d2", "d4"}, docIDs(s.Items))
		assert.Equal(t, "gesperrt", s.LastError)
		assert.Nil(t, s.Pending)
		assert.Len(t, start.Items, 4, "input state is not modified")
	})

	t.Run("export keeps items", func(t *testing.T) {
		s := Reduce(start, documentID, Succeeded{Action: ActionExport, IDs: []string{"d1"}})
		assert.Len(t, s.Items, 4)
	})

	t.Run("failure keeps items", func(t *testing.T) {
		pending := Reduce(start, documentID, Started{Action: ActionDelete, IDs: []string{"d1"}})
		s := Reduce(pending, documentID, Failed{Action: ActionDelete, Err: stderrors.New("offline")})
		assert.Len(t, s.Items, 4)
		assert.Nil(t, s.Pending)
		assert.Equal(t, "offline", s.LastError)
	})

	t.Run("loaded replaces and clears error", func(t *testing.T) {
		failed := State[Document]{Items: sampleDocs(), LastError: "x"}
		s := Reduce(failed, documentID, Loaded[Document]{Items: sampleDocs()[:1]})
		assert.Equal(t, []string{"d1"}, docIDs(s.Items))
		assert.Empty(t, s.LastError)
	})
}

func TestTimestamp_Unmarshal(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{`"2026-10-01T08:30:00Z"`, time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)},
		{`"2026-10-01T08:30:00.123+02:00"`, time.Date(2026, 10, 1, 6, 30, 0, 123000000, time.UTC)},
		{`"2026-10-01T08:30:00.000000"`, time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC)},
		{`"2026-10-01"`, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{`null`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var got Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			assert.True(t, tt.want.Equal(got.Time), "got %s", got.Time)
		})
	}

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"gestern"`), &bad))
}

func TestService_ListDocuments(t *testing.T) {
	entities := new(platformtest.MockEntities)
	expectDocuments(entities, sampleDocs())
	svc := newTestService(t, new(platformtest.MockInvoker), entities, nil)
	ctx := context.Background()

	page, err := svc.ListDocuments(ctx, user, DocumentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d2", "d4", "d3", "d1"}, docIDs(page.Items), "newest first by default")

	page, err = svc.ListDocuments(ctx, user, DocumentFilter{Sort: SortName})
	require.NoError(t, err)
	assert.Equal(t, []string{"d3", "d4", "d2", "d1"}, docIDs(page.Items), "umlauts sort with their base letter")

	page, err = svc.ListDocuments(ctx, user, DocumentFilter{Query: "linden", Type: "mietvertrag"})
	require.NoError(t, err)
	assert.Equal(t, []string{"d4"}, docIDs(page.Items))

	entities.AssertNumberOfCalls(t, "Filter", 1)
}

func TestService_DeleteDocuments_PartialFailure(t *testing.T) {
	entities := new(platformtest.MockEntities)
	expectDocuments(entities, sampleDocs())
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnBatchDeleteDocuments,
		map[string]interface{}{"document_ids": []string{"d1", "d2"}}).
		Return(platform.NewResponse(map[string]interface{}{
			"deleted": []string{"d1"},
			"failed":  []map[string]string{{"id": "d2", "error": "Dokument ist gesperrt"}},
		}), nil)

	svc := newTestService(t, invoker, entities, nil)
	ctx := context.Background()
	require.NoError(t, svc.RefreshDocuments(ctx, user))

	result, err := svc.DeleteDocuments(ctx, user, []string{"d1", "d2"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBulkActionFailed, errors.AsStandard(err).Code)
	require.NotNil(t, result)
	assert.Equal(t, []string{"d1"}, result.Succeeded)

	state := svc.Library(user).Documents()
	assert.Equal(t, []string{"d2", "d3", "d4"}, docIDs(state.Items))
	assert.Equal(t, "Dokument ist gesperrt", state.LastError)
}

func TestService_DeleteDocuments_RemoteFailure(t *testing.T) {
	entities := new(platformtest.MockEntities)
	expectDocuments(entities, sampleDocs())
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnBatchDeleteDocuments, mock.Anything).
		Return(nil, errors.NewPlatformError(platform.FnBatchDeleteDocuments, 500, stderrors.New("boom")))

	svc := newTestService(t, invoker, entities, nil)
	ctx := context.Background()
	require.NoError(t, svc.RefreshDocuments(ctx, user))

	_, err := svc.DeleteDocuments(ctx, user, []string{"d1"})
	require.Error(t, err)
	assert.Len(t, svc.Library(user).Documents().Items, 4)
}

func TestService_DeleteDocuments_NoSelection(t *testing.T) {
	svc := newTestService(t, new(platformtest.MockInvoker), new(platformtest.MockEntities), nil)
	_, err := svc.DeleteDocuments(context.Background(), user, nil)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.AsStandard(err).Code)

	_, err = svc.DeleteDocuments(context.Background(), user, []string{"", ""})
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.AsStandard(err).Code)
}

func TestService_DeleteDocuments_DeduplicatesSelection(t *testing.T) {
	entities := new(platformtest.MockEntities)
	expectDocuments(entities, sampleDocs())
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnBatchDeleteDocuments,
		map[string]interface{}{"document_ids": []string{"d1", "d3"}}).
		Return(platform.NewResponse(map[string]interface{}{"deleted": []string{"d1", "d3"}}), nil).Once()

	svc := newTestService(t, invoker, entities, nil)
	ctx := context.Background()
	require.NoError(t, svc.RefreshDocuments(ctx, user))

	result, err := svc.DeleteDocuments(ctx, user, []string{"d3", "d1", "d3", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1", "d3"}, result.Succeeded)
	invoker.AssertExpectations(t)
}

func TestService_ExportDocuments(t *testing.T) {
	entities := new(platformtest.MockEntities)
	expectDocuments(entities, sampleDocs())
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnBatchExportDocuments,
		map[string]interface{}{"document_ids": []string{"d1", "d4"}, "format": "zip"}).
		Return(platform.NewResponse(map[string]interface{}{"file_url": "https://files/export.zip"}), nil)

	svc := newTestService(t, invoker, entities, nil)
	ctx := context.Background()
	require.NoError(t, svc.RefreshDocuments(ctx, user))

	result, err := svc.ExportDocuments(ctx, user, []string{"d1", "d4"}, "")
	require.NoError(t, err)
	assert.Equal(t, "https://files/export.zip", result.FileURL)
	assert.Equal(t, []string{"d1", "d4"}, result.Succeeded)
	assert.Len(t, svc.Library(user).Documents().Items, 4)
}

func TestService_DeleteAndUpdateDocument(t *testing.T) {
	entities := new(platformtest.MockEntities)
	expectDocuments(entities, sampleDocs())
	entities.On("Delete", mock.Anything, platform.EntityGeneratedDocument, "d3").Return(nil)
	entities.On("Update", mock.Anything, platform.EntityGeneratedDocument, "d4",
		map[string]interface{}{"title": "Mietvertrag neu"}, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(4).(*Document) = Document{ID: "d4", Title: "Mietvertrag neu", DocumentType: "mietvertrag"}
		}).
		Return(nil)

	svc := newTestService(t, new(platformtest.MockInvoker), entities, nil)
	ctx := context.Background()
	require.NoError(t, svc.RefreshDocuments(ctx, user))

	require.NoError(t, svc.DeleteDocument(ctx, user, "d3"))
	doc, err := svc.UpdateDocument(ctx, user, "d4", map[string]interface{}{"title": "Mietvertrag neu"})
	require.NoError(t, err)
	assert.Equal(t, "Mietvertrag neu", doc.Title)

	items := svc.Library(user).Documents().Items
	assert.Equal(t, []string{"d1", "d2", "d4"}, docIDs(items))
	assert.Equal(t, "Mietvertrag neu", items[2].Title)
}

func sharesResponse() *platform.Response {
	return &platform.Response{Status: 200, Data: json.RawMessage(`{"shares":[
		{"id":"s1","document_id":"d1","document_title":"Mietvertrag","target_app":"hausverwaltung","access_level":"view","created_date":"2026-10-02T10:00:00Z"},
		{"id":"s2","document_id":"d2","document_title":"Übergabeprotokoll","target_app":"zaehlerstand","access_level":"download","created_date":"2026-10-04T10:00:00Z"},
		{"id":"s3","document_id":"d1","document_title":"Mietvertrag","target_app":"hausverwaltung","access_level":"edit","created_date":"2026-10-03T10:00:00Z"}
	]}`)}
}

func shareIDs(shares []Share) []string {
	out := make([]string, len(shares))
	for i, s := range shares {
		out[i] = s.ID
	}
	return out
}

func TestService_ListShares(t *testing.T) {
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnGetSharedDocumentsCrossApp,
		map[string]interface{}{"user_email": user}).Return(sharesResponse(), nil).Once()
	svc := newTestService(t, invoker, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ShareFilter
		want   []string
	}{
		{name: "all newest first", filter: ShareFilter{}, want: []string{"s2", "s3", "s1"}},
		{name: "by app", filter: ShareFilter{App: "hausverwaltung"}, want: []string{"s3", "s1"}},
		{name: "by access level", filter: ShareFilter{AccessLevel: AccessDownload}, want: []string{"s2"}},
		{name: "text and app", filter: ShareFilter{Query: "miet", App: "zaehlerstand"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListShares(ctx, user, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, shareIDs(page.Items))
		})
	}
	invoker.AssertExpectations(t)
}

func TestService_ShareDocument(t *testing.T) {
	tests := []struct {
		name  string
		req   ShareRequest
		field string
	}{
		{name: "missing document", req: ShareRequest{TargetApp: "a"}, field: "document_id"},
		{name: "bad access level", req: ShareRequest{DocumentID: "d1", TargetApp: "a", AccessLevel: "admin"}, field: "access_level"},
		{name: "bad recipient", req: ShareRequest{DocumentID: "d1", TargetApp: "a", SharedWith: "nobody"}, field: "shared_with"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoker := new(platformtest.MockInvoker)
			svc := newTestService(t, invoker, nil, nil)
			_, err := svc.ShareDocument(context.Background(), user, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.field, errors.AsStandard(err).Field)
			invoker.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("success notifies", func(t *testing.T) {
		invoker := new(platformtest.MockInvoker)
		invoker.On("Invoke", mock.Anything, platform.FnShareDocumentCrossApp, mock.MatchedBy(func(r ShareRequest) bool {
			return r.AccessLevel == AccessView && r.TargetApp == "hausverwaltung"
		})).Return(platform.NewResponse(map[string]interface{}{"share": map[string]interface{}{"id": "s9"}}), nil)
		notifier := &recordingNotifier{}
		svc := newTestService(t, invoker, nil, notifier)

		share, err := svc.ShareDocument(context.Background(), user, ShareRequest{DocumentID: "d1", TargetApp: "hausverwaltung"})
		require.NoError(t, err)
		assert.Equal(t, "s9", share.ID)
		assert.Equal(t, "d1", share.DocumentID)
		assert.Equal(t, []string{EventShareCreated}, notifier.events)
		assert.Equal(t, []string{"s9"}, shareIDs(svc.Library(user).Shares().Items))
	})
}

func TestService_RevokeShares(t *testing.T) {
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnGetSharedDocumentsCrossApp, mock.Anything).Return(sharesResponse(), nil)
	invoker.On("Invoke", mock.Anything, platform.FnBatchRevokeShares,
		map[string]interface{}{"share_ids": []string{"s1", "s3"}}).Return(platform.NewResponse(map[string]interface{}{"ok": true}), nil)
	invoker.On("Invoke", mock.Anything, platform.FnRevokeDocumentShareCrossApp,
		map[string]interface{}{"share_id": "s2"}).Return(platform.NewResponse(nil), nil)
	notifier := &recordingNotifier{}
	svc := newTestService(t, invoker, nil, notifier)
	ctx := context.Background()
	require.NoError(t, svc.RefreshShares(ctx, user))

	result, err := svc.RevokeShares(ctx, user, []string{"s1", "s3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s3"}, result.Succeeded)
	assert.Equal(t, []string{"s2"}, shareIDs(svc.Library(user).Shares().Items))

	require.NoError(t, svc.RevokeShare(ctx, user, "s2"))
	assert.Empty(t, svc.Library(user).Shares().Items)
	assert.Equal(t, []string{EventShareRevoked, EventShareRevoked, EventShareRevoked}, notifier.events)
	assert.Equal(t, "zaehlerstand", notifier.shares[2].TargetApp)
}

func TestService_SendEmailAndRequests(t *testing.T) {
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnSendDocumentEmail, mock.Anything).Return(platform.NewResponse(nil), nil)
	invoker.On("Invoke", mock.Anything, platform.FnSendDocumentRequest, mock.Anything).Return(platform.NewResponse(nil), nil)
	invoker.On("Invoke", mock.Anything, platform.FnTrackShareDownload, map[string]interface{}{"share_id": "s1"}).Return(platform.NewResponse(nil), nil)
	invoker.On("Invoke", mock.Anything, platform.FnSyncDocumentToApp,
		map[string]interface{}{"document_id": "d1", "target_app": "hausverwaltung"}).Return(platform.NewResponse(nil), nil)
	svc := newTestService(t, invoker, nil, nil)
	ctx := context.Background()

	err := svc.SendEmail(ctx, EmailRequest{DocumentID: "d1", Recipient: "kein-at"})
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.AsStandard(err).Code)
	require.NoError(t, svc.SendEmail(ctx, EmailRequest{DocumentID: "d1", Recipient: "Max <max@example.com>"}))

	err = svc.RequestDocuments(ctx, DocumentRequest{Recipient: "max@example.com"})
	assert.Equal(t, errors.ErrCodeMissingRequiredField, errors.AsStandard(err).Code)
	require.NoError(t, svc.RequestDocuments(ctx, DocumentRequest{Recipient: "max@example.com", DocumentTypes: []string{"gehaltsnachweis"}}))

	require.NoError(t, svc.TrackDownload(ctx, "s1"))
	require.NoError(t, svc.SyncDocument(ctx, "d1", "hausverwaltung"))
	assert.Error(t, svc.SyncDocument(ctx, "", "hausverwaltung"))

	invoker.AssertNumberOfCalls(t, "Invoke", 4)
}

func TestService_ShareStats(t *testing.T) {
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnGetDocumentShareStats, map[string]interface{}{"document_id": "d1"}).
		Return(platform.NewResponse(map[string]interface{}{
			"total_shares": 3, "active_shares": 2, "total_downloads": 7,
			"by_app": map[string]int{"hausverwaltung": 2, "zaehlerstand": 1},
		}), nil)
	svc := newTestService(t, invoker, nil, nil)

	stats, err := svc.ShareStats(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalDownloads)
	assert.Equal(t, 2, stats.ByApp["hausverwaltung"])
}

func TestService_SelfDisclosure(t *testing.T) {
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnCreateSelfDisclosureForm, mock.Anything).
		Return(platform.NewResponse(map[string]interface{}{"form": map[string]interface{}{"id": "f1", "form_url": "https://forms/f1"}}), nil)
	invoker.On("Invoke", mock.Anything, platform.FnGetSelfDisclosureSubmissions, map[string]interface{}{"form_id": "f1"}).
		Return(&platform.Response{Status: 200, Data: json.RawMessage(`[{"id":"sub1","form_id":"f1","applicant_name":"Erika Musterfrau","submitted_at":"2026-10-10T12:00:00Z"}]`)}, nil)
	svc := newTestService(t, invoker, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateSelfDisclosureForm(ctx, SelfDisclosureRequest{})
	assert.Equal(t, errors.ErrCodeMissingRequiredField, errors.AsStandard(err).Code)

	form, err := svc.CreateSelfDisclosureForm(ctx, SelfDisclosureRequest{PropertyAddress: "Lindenallee 12, Köln"})
	require.NoError(t, err)
	assert.Equal(t, "https://forms/f1", form.FormURL)

	subs, err := svc.SelfDisclosureSubmissions(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Erika Musterfrau", subs[0].ApplicantName)
}

func TestSharePoller_Poll(t *testing.T) {
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnGetSharedDocumentsCrossApp,
		map[string]interface{}{"user_email": user}).Return(sharesResponse(), nil).Once()
	invoker.On("Invoke", mock.Anything, platform.FnGetSharedDocumentsCrossApp,
		map[string]interface{}{"user_email": "carla@example.com"}).
		Return(nil, errors.NewPlatformTimeoutError(platform.FnGetSharedDocumentsCrossApp, context.DeadlineExceeded)).Once()
	svc := newTestService(t, invoker, nil, nil)

	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	svc.Library(user)
	svc.Library("bernd@example.com")

	now = now.Add(10 * time.Minute)
	svc.Library(user)
	svc.Library("carla@example.com")

	poller := NewSharePoller(svc, time.Hour, 5*time.Minute, logger.NewTestLogger(t))
	poller.Poll(context.Background())

	invoker.AssertExpectations(t)
	invoker.AssertNotCalled(t, "Invoke", mock.Anything, platform.FnGetSharedDocumentsCrossApp,
		map[string]interface{}{"user_email": "bernd@example.com"})
	assert.Len(t, svc.Library(user).Shares().Items, 3)
	assert.NotContains(t, svc.libs.byKey, "bernd@example.com")
}

func TestSharePoller_RunStops(t *testing.T) {
	svc := newTestService(t, new(platformtest.MockInvoker), nil, nil)
	poller := NewSharePoller(svc, time.Millisecond, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}
