package generatedocument

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/wizard"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateFromData(ctx context.Context, wizardID, userEmail string, data wizard.FormData) (*wizard.GeneratedDocument, error) {
	args := m.Called(ctx, wizardID, userEmail, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wizard.GeneratedDocument), args.Error(1)
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "immo-document",
		ElementId:          "Activity_GenerateDocument",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T, gen Generator) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Generator:    gen,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func TestHandler_NewHandler_RequiresGenerator(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: DefaultConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document generator is required")
}

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, &MockGenerator{})
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantField string
	}{
		{
			name: "valid",
			variables: map[string]interface{}{
				"wizardId":  "kuendigung",
				"formData":  map[string]interface{}{"ort": "Köln"},
				"userEmail": "anna@example.com",
			},
		},
		{
			name:      "missing form data",
			variables: map[string]interface{}{"wizardId": "kuendigung", "userEmail": "anna@example.com"},
			wantField: "formData",
		},
		{
			name: "invalid email",
			variables: map[string]interface{}{
				"wizardId":  "kuendigung",
				"formData":  map[string]interface{}{},
				"userEmail": "anna",
			},
			wantField: "userEmail",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := h.parseInput(createMockJob(2, tt.variables))
			if tt.wantField != "" {
				require.Error(t, err)
				stdErr := errors.AsStandard(err)
				assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
				assert.Equal(t, tt.wantField, stdErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "kuendigung", in.WizardID)
			assert.Equal(t, "Köln", in.FormData["ort"])
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	gen := &MockGenerator{}
	data := wizard.FormData{"ort": "Köln"}
	gen.On("GenerateFromData", mock.Anything, "kuendigung", "anna@example.com", data).
		Return(&wizard.GeneratedDocument{
			ID:           "doc-1",
			Title:        "Kündigung",
			DocumentType: "kuendigung",
			FileURL:      "https://files/doc-1.pdf",
		}, nil)

	out, err := newTestHandler(t, gen).Execute(context.Background(), &Input{
		WizardID:  "kuendigung",
		FormData:  data,
		UserEmail: "anna@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", out.DocumentID)
	assert.Equal(t, "https://files/doc-1.pdf", out.FileURL)
	gen.AssertExpectations(t)
}

func TestHandler_Execute_PropagatesErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "incomplete data", err: errors.NewStepIncompleteError(2, []string{"grund"}), retryable: false},
		{name: "platform down", err: errors.NewPlatformError("generateDocument", 503, stderrors.New("unavailable")), retryable: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &MockGenerator{}
			gen.On("GenerateFromData", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			_, err := newTestHandler(t, gen).Execute(context.Background(), &Input{WizardID: "kuendigung"})
			require.Error(t, err)
			bpmn := errors.ConvertToBPMNError(errors.AsStandard(err))
			assert.Equal(t, tt.retryable, bpmn.Retries > 0)
		})
	}
}
