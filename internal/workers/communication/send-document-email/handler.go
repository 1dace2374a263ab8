package senddocumentemail

import (
	"context"
	"fmt"
	"time"

	"immo-workers/internal/common/camunda"
	"immo-workers/internal/common/config"
	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/common/metrics"
	"immo-workers/internal/common/validation"
	"immo-workers/internal/wizard"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "document.email"

// Sender mails the document-ready notice.
type Sender interface {
	Send(ctx context.Context, recipient string, doc wizard.GeneratedDocument) (string, error)
}

type Handler struct {
	config  *Config
	logger  logger.Logger
	camunda *camunda.Client
	sender  Sender
	errors  *errors.ErrorHandler
	worker  *camunda.CamundaWorker
	now     func() time.Time
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Sender       Sender
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for send-document-email: %w", err)
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("email sender is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:  workerConfig,
		logger:  log.With(map[string]interface{}{"worker": TaskType}),
		camunda: opts.Camunda,
		sender:  opts.Sender,
		errors:  errors.NewErrorHandler(log),
		now:     time.Now,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandard(err).Code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandard(err).Code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	title := input.DocumentTitle
	if title == "" {
		title = input.DocumentType
	}
	if title == "" {
		title = "Dokument"
	}

	messageID, err := h.sender.Send(ctx, input.UserEmail, wizard.GeneratedDocument{
		ID:           input.DocumentID,
		Title:        title,
		DocumentType: input.DocumentType,
		FileURL:      input.DocumentURL,
	})
	if err != nil {
		return nil, errors.NewNotificationFailedError("email", err)
	}
	return &Output{MessageID: messageID, SentAt: h.now().UTC()}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewValidationError("variables", "Failed to parse job variables: "+err.Error())
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		e := errors.NewValidationError(result.Errors[0].Field, "Input validation failed")
		e.Details = fmt.Sprintf("%v", result.GetErrorMessages())
		return nil, e
	}

	input := &Input{
		UserEmail:   variables["userEmail"].(string),
		DocumentID:  variables["documentId"].(string),
		DocumentURL: variables["documentUrl"].(string),
	}
	if v, ok := variables["documentTitle"].(string); ok {
		input.DocumentTitle = v
	}
	if v, ok := variables["documentType"].(string); ok {
		input.DocumentType = v
	}
	if !validation.ValidateEmail(input.UserEmail) {
		return nil, errors.NewValidationError("userEmail", "Ungültige E-Mail-Adresse")
	}
	return input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	variables := map[string]interface{}{
		"emailMessageId": output.MessageID,
		"emailSentAt":    output.SentAt.Format(time.RFC3339),
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("document email sent", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"messageId": output.MessageID,
	})
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("worker is disabled, skipping registration", nil)
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("camunda client is required to register %s", TaskType)
	}
	h.worker = camunda.NewWorker(h.camunda.GetClient(), camunda.WorkerOptions{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h.Handle, h.logger)
	return nil
}

func (h *Handler) Close() {
	if h.worker != nil {
		h.worker.Stop()
		h.worker = nil
	}
}

func (h *Handler) GetTaskType() string { return TaskType }

func (h *Handler) IsEnabled() bool { return h.config.Enabled }

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}
	cfg := DefaultConfig()
	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers["send-document-email"]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = config.GetDuration(workerCfg.Timeout)
			}
		}
	}
	return cfg
}
