package wizard

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"immo-workers/internal/common/database"
	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/platform"
	"immo-workers/internal/platform/platformtest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*database.RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return database.NewRedisFromClient(redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})), mr
}

func TestRedisSessionStore(t *testing.T) {
	client, mr := setupRedis(t)
	store := NewRedisSessionStore(client, time.Hour)
	ctx := context.Background()

	session := &Session{
		ID:       "s1",
		WizardID: "kuendigung",
		State:    State{CurrentStep: 2, TotalSteps: 3, FormData: FormData{"ort": "Köln"}},
	}
	require.NoError(t, store.Save(ctx, session))
	assert.Equal(t, time.Hour, mr.TTL("wizard:session:s1"))

	loaded, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.State.CurrentStep)
	assert.Equal(t, "Köln", loaded.State.FormData["ort"])

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "s1")
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.AsStandard(err).Code)
}

func TestRedisSessionStore_Delete(t *testing.T) {
	client, _ := setupRedis(t)
	store := NewRedisSessionStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "s2", WizardID: "mietvertrag"}))
	require.NoError(t, store.Delete(ctx, "s2"))
	_, err := store.Get(ctx, "s2")
	assert.Error(t, err)
}

func TestMemoryStore_IsolatesCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	session := &Session{ID: "s", State: State{FormData: FormData{"a": "1"}}}
	require.NoError(t, store.Save(ctx, session))

	session.State.FormData["a"] = "2"
	loaded, err := store.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "1", loaded.State.FormData["a"])
}

type recordingNotifier struct {
	recipient string
	doc       GeneratedDocument
}

func (r *recordingNotifier) DocumentReady(ctx context.Context, recipient string, doc GeneratedDocument) {
	r.recipient = recipient
	r.doc = doc
}

func newTestService(t *testing.T, invoker platform.Invoker, notifier Notifier) *Service {
	t.Helper()
	svc := NewService(ServiceOptions{
		Registry:         DefaultRegistry(),
		Store:            NewMemoryStore(),
		Invoker:          invoker,
		Notifier:         notifier,
		Logger:           logger.NewTestLogger(t),
		AutosaveInterval: 10 * time.Millisecond,
	})
	return svc
}

func TestService_SessionFlow(t *testing.T) {
	invoker := new(platformtest.MockInvoker)
	notifier := &recordingNotifier{}
	svc := newTestService(t, invoker, notifier)
	ctx := context.Background()

	session, err := svc.Start(ctx, "mietvertrag", "max@example.com", FormData{"vermieter_name": "Müller"})
	require.NoError(t, err)
	assert.Equal(t, 1, session.State.CurrentStep)
	assert.Equal(t, 5, session.State.TotalSteps)

	// incomplete step keeps the stored session on step 1
	_, err = svc.Next(ctx, session.ID)
	require.Error(t, err)
	stored, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.State.CurrentStep)

	_, err = svc.Generate(ctx, session.ID)
	assert.Equal(t, errors.ErrCodeWizardNotComplete, errors.AsStandard(err).Code)

	_, err = svc.Update(ctx, session.ID, completeMietvertrag())
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		session, err = svc.Next(ctx, session.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, session.State.CurrentStep)

	session, err = svc.Prev(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, session.State.CurrentStep)
	session, err = svc.Next(ctx, session.ID)
	require.NoError(t, err)

	invoker.On("Invoke", mock.Anything, platform.FnGenerateDocument, mock.MatchedBy(func(p map[string]interface{}) bool {
		data := p["data"].(map[string]interface{})
		return p["document_type"] == DocumentMietvertrag && p["user_email"] == "max@example.com" && data["mieter_name"] == "Max Mustermann"
	})).Return(&platform.Response{
		Data:   json.RawMessage(`{"id":"doc-1","file_url":"https://files/doc-1.pdf"}`),
		Status: 200,
	}, nil).Once()

	doc, err := svc.Generate(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "Mietvertrag", doc.Title)
	assert.Equal(t, "max@example.com", notifier.recipient)
	assert.Equal(t, "https://files/doc-1.pdf", notifier.doc.FileURL)

	stored, err = svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", stored.DocumentID)
	invoker.AssertExpectations(t)
}

func TestService_GenerateFailureLeavesSession(t *testing.T) {
	invoker := new(platformtest.MockInvoker)
	invoker.On("Invoke", mock.Anything, platform.FnGenerateDocument, mock.Anything).
		Return(nil, errors.NewPlatformError(platform.FnGenerateDocument, 500, stderrors.New("template missing")))
	svc := newTestService(t, invoker, nil)
	ctx := context.Background()

	session, err := svc.Start(ctx, "mietvertrag", "max@example.com", completeMietvertrag())
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = svc.Next(ctx, session.ID)
		require.NoError(t, err)
	}

	_, err = svc.Generate(ctx, session.ID)
	require.Error(t, err)
	assert.Contains(t, errors.UserMessage(err), "generateDocument")

	stored, err := svc.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.DocumentID)
	assert.Equal(t, 5, stored.State.CurrentStep)
}

func TestService_GenerateFromData(t *testing.T) {
	invoker := new(platformtest.MockInvoker)
	svc := newTestService(t, invoker, nil)

	_, err := svc.GenerateFromData(context.Background(), "mietvertrag", "", FormData{"mieter_name": "Max"})
	require.Error(t, err)
	invoker.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything)

	_, err = svc.GenerateFromData(context.Background(), "gibtsnicht", "", nil)
	assert.Equal(t, errors.ErrCodeUnknownWizard, errors.AsStandard(err).Code)
}

func TestService_UnknownSession(t *testing.T) {
	svc := newTestService(t, new(platformtest.MockInvoker), nil)
	_, err := svc.Next(context.Background(), "nope")
	assert.Equal(t, errors.ErrCodeSessionNotFound, errors.AsStandard(err).Code)
}

type countingInvoker struct {
	mu    sync.Mutex
	calls []map[string]interface{}
	err   error
	seen  chan struct{}
}

func newCountingInvoker() *countingInvoker {
	return &countingInvoker{seen: make(chan struct{}, 16)}
}

func (c *countingInvoker) Invoke(ctx context.Context, function string, payload interface{}) (*platform.Response, error) {
	c.mu.Lock()
	c.calls = append(c.calls, payload.(map[string]interface{}))
	err := c.err
	c.mu.Unlock()
	select {
	case c.seen <- struct{}{}:
	default:
	}
	if err != nil {
		return nil, err
	}
	return &platform.Response{Status: 200}, nil
}

func (c *countingInvoker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestAutosaver_SkipsUnchangedAndRetriesFailures(t *testing.T) {
	invoker := newCountingInvoker()
	saver := NewAutosaver(invoker, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	changedAt := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	snapshot := func(ctx context.Context) (map[string]interface{}, time.Time, error) {
		return map[string]interface{}{"session_id": "s1"}, changedAt, nil
	}

	invoker.err = stderrors.New("offline")
	saver.save(ctx, snapshot)
	assert.Equal(t, 1, invoker.count())

	// failed save is retried on the next tick
	invoker.err = nil
	saver.save(ctx, snapshot)
	assert.Equal(t, 2, invoker.count())

	saver.save(ctx, snapshot)
	assert.Equal(t, 2, invoker.count(), "unchanged data is not saved again")

	changedAt = changedAt.Add(time.Minute)
	saver.save(ctx, snapshot)
	assert.Equal(t, 3, invoker.count())
}

func TestAutosaver_SnapshotError(t *testing.T) {
	invoker := newCountingInvoker()
	saver := NewAutosaver(invoker, time.Hour, logger.NewTestLogger(t))
	saver.save(context.Background(), func(ctx context.Context) (map[string]interface{}, time.Time, error) {
		return nil, time.Time{}, stderrors.New("redis down")
	})
	assert.Equal(t, 0, invoker.count())
}

func TestService_Autosave(t *testing.T) {
	invoker := newCountingInvoker()
	svc := newTestService(t, invoker, nil)
	ctx := context.Background()

	session, err := svc.Start(ctx, "kuendigung", "max@example.com", FormData{"ort": "Köln"})
	require.NoError(t, err)

	require.NoError(t, svc.StartAutosave(ctx, session.ID))
	require.NoError(t, svc.StartAutosave(ctx, session.ID))
	assert.True(t, svc.Autosaving(session.ID))

	select {
	case <-invoker.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("autosave never ran")
	}

	invoker.mu.Lock()
	payload := invoker.calls[0]
	invoker.mu.Unlock()
	assert.Equal(t, session.ID, payload["session_id"])
	assert.Equal(t, DocumentKuendigung, payload["document_type"])

	svc.StopAutosave(session.ID)
	assert.False(t, svc.Autosaving(session.ID))

	assert.Error(t, svc.StartAutosave(ctx, "unbekannt"))
}

func TestService_AutosaveStopsWithContext(t *testing.T) {
	svc := newTestService(t, newCountingInvoker(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	session, err := svc.Start(ctx, "kuendigung", "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.StartAutosave(ctx, session.ID))
	cancel()

	assert.Eventually(t, func() bool { return !svc.Autosaving(session.ID) }, 2*time.Second, 5*time.Millisecond)
}
