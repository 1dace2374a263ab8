package senddocumentemail

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"immo-workers/internal/common/config"
	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/wizard"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, recipient string, doc wizard.GeneratedDocument) (string, error) {
	args := m.Called(ctx, recipient, doc)
	return args.String(0), args.Error(1)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "immo-document",
		ElementId:          "Activity_SendDocumentEmail",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T, sender Sender) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Sender:       sender,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2026, 10, 1, 8, 30, 0, 0, time.UTC) }
	return h
}

func TestHandler_NewHandler(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email sender is required")

	h, err := NewHandler(HandlerOptions{
		AppConfig: &config.Config{Workers: map[string]config.WorkerConfig{
			"send-document-email": {Enabled: false, MaxJobsActive: 2, Timeout: 5000},
		}},
		Sender: &MockSender{},
	})
	require.NoError(t, err)
	assert.False(t, h.IsEnabled())
	assert.Equal(t, 2, h.config.MaxJobsActive)
	assert.Equal(t, 5*time.Second, h.config.Timeout)
	assert.NoError(t, h.Register())
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, &MockSender{})
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantField string
	}{
		{
			name: "valid",
			variables: map[string]interface{}{
				"userEmail":     "anna@example.com",
				"documentId":    "doc-1",
				"documentTitle": "Kündigung",
				"documentUrl":   "https://files/doc-1.pdf",
			},
		},
		{
			name:      "missing url",
			variables: map[string]interface{}{"userEmail": "anna@example.com", "documentId": "doc-1"},
			wantField: "documentUrl",
		},
		{
			name: "invalid email",
			variables: map[string]interface{}{
				"userEmail":   "anna",
				"documentId":  "doc-1",
				"documentUrl": "https://files/doc-1.pdf",
			},
			wantField: "userEmail",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := h.parseInput(createMockJob(3, tt.variables))
			if tt.wantField != "" {
				require.Error(t, err)
				stdErr := errors.AsStandard(err)
				assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
				assert.Equal(t, tt.wantField, stdErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "doc-1", in.DocumentID)
			assert.Equal(t, "Kündigung", in.DocumentTitle)
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, "anna@example.com", wizard.GeneratedDocument{
		ID:           "doc-1",
		Title:        "kuendigung",
		DocumentType: "kuendigung",
		FileURL:      "https://files/doc-1.pdf",
	}).Return("msg-1", nil)

	out, err := newTestHandler(t, sender).Execute(context.Background(), &Input{
		UserEmail:    "anna@example.com",
		DocumentID:   "doc-1",
		DocumentType: "kuendigung",
		DocumentURL:  "https://files/doc-1.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", out.MessageID)
	assert.Equal(t, "2026-10-01T08:30:00Z", out.SentAt.Format(time.RFC3339))
	sender.AssertExpectations(t)
}

func TestHandler_Execute_SendFailureIsRetryable(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return("", stderrors.New("throttled"))

	_, err := newTestHandler(t, sender).Execute(context.Background(), &Input{UserEmail: "anna@example.com", DocumentID: "doc-1"})
	require.Error(t, err)
	stdErr := errors.AsStandard(err)
	assert.Equal(t, errors.ErrCodeNotificationFailed, stdErr.Code)
	assert.Equal(t, 3, errors.ConvertToBPMNError(stdErr).Retries)
}
