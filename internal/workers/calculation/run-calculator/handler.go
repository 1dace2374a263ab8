package runcalculator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"immo-workers/internal/calculator"
	"immo-workers/internal/common/camunda"
	"immo-workers/internal/common/config"
	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/common/metrics"
	"immo-workers/internal/common/validation"
	"immo-workers/internal/history"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "calculator.run"

// Calculator runs a calculator by ID.
type Calculator interface {
	Run(toolID string, values calculator.Values) (*calculator.Outcome, error)
}

// HistorySaver stores an outcome for a user.
type HistorySaver interface {
	Save(ctx context.Context, userEmail string, outcome *calculator.Outcome, name string) (*history.SavedCalculation, error)
}

type Handler struct {
	config      *Config
	logger      logger.Logger
	camunda     *camunda.Client
	calculators Calculator
	history     HistorySaver
	errors      *errors.ErrorHandler
	worker      *camunda.CamundaWorker
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Calculators  Calculator
	History      HistorySaver
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for run-calculator: %w", err)
	}
	if opts.Calculators == nil {
		return nil, fmt.Errorf("calculator registry is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:      workerConfig,
		logger:      log.With(map[string]interface{}{"worker": TaskType}),
		camunda:     opts.Camunda,
		calculators: opts.Calculators,
		history:     opts.History,
		errors:      errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing calculation", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

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

// Execute runs the calculator and, when asked to, stores the outcome.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.calculators.Run(input.ToolID, input.Values)
	if err != nil {
		return nil, err
	}

	result, err := toMap(outcome.Result)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	output := &Output{ToolID: outcome.ToolID, Result: result, Display: outcome.Display}

	if input.Save {
		if h.history == nil {
			return nil, errors.NewHistorySaveFailedError(fmt.Errorf("history is not configured"))
		}
		saved, err := h.history.Save(ctx, input.UserEmail, outcome, input.Name)
		if err != nil {
			return nil, err
		}
		output.CalculationID = saved.ID
	}
	return output, nil
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
		ToolID: variables["toolId"].(string),
		Values: calculator.Values(variables["values"].(map[string]interface{})),
	}
	if save, ok := variables["save"].(bool); ok {
		input.Save = save
	}
	if email, ok := variables["userEmail"].(string); ok {
		input.UserEmail = email
	}
	if name, ok := variables["name"].(string); ok {
		input.Name = name
	}
	return input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(output.Variables())
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
	h.logger.Info("calculation completed", map[string]interface{}{
		"jobKey": job.GetKey(),
		"toolId": output.ToolID,
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
		if workerCfg, exists := appConfig.Workers["run-calculator"]; exists {
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

func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
