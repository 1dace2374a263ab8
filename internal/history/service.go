package history

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"immo-workers/internal/calculator"
	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
	"immo-workers/internal/common/metrics"
)

const maxNameLength = 100

// Service saves calculator outcomes for a user.
type Service struct {
	store    Store
	backend  string
	registry *calculator.Registry
	logger   logger.Logger
	now      func() time.Time
}

func NewService(store Store, backend string, registry *calculator.Registry, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		store:    store,
		backend:  backend,
		registry: registry,
		logger:   log.With(map[string]interface{}{"component": "history", "backend": backend}),
		now:      time.Now,
	}
}

// Save stores outcome under name. An empty name falls back to the tool name
// and the current date.
func (s *Service) Save(ctx context.Context, userEmail string, outcome *calculator.Outcome, name string) (*SavedCalculation, error) {
	if outcome == nil {
		return nil, errors.NewValidationError("outcome", "Bitte führen Sie zuerst eine Berechnung durch")
	}
	if strings.TrimSpace(userEmail) == "" {
		return nil, errors.NewValidationError("user_email", "Bitte melden Sie sich an, um Berechnungen zu speichern")
	}

	toolName := outcome.ToolID
	if t, err := s.registry.Get(outcome.ToolID); err == nil {
		toolName = t.Name()
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s vom %s", toolName, s.now().Format("02.01.2006"))
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, errors.NewValidationError("name", fmt.Sprintf("Der Name darf höchstens %d Zeichen lang sein", maxNameLength))
	}

	input, err := toMap(outcome.Input)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("calculation data: %w", err))
	}
	result, err := toMap(outcome.Result)
	if err != nil {
		return nil, errors.NewInternalError(fmt.Errorf("result data: %w", err))
	}

	saved, err := s.store.Create(ctx, &SavedCalculation{
		UserEmail:       userEmail,
		ToolID:          outcome.ToolID,
		ToolName:        toolName,
		CalculationData: input,
		ResultData:      result,
		Name:            name,
	})
	metrics.HistorySaves.WithLabelValues(s.backend, metrics.Status(err)).Inc()

	fields := map[string]interface{}{"toolId": outcome.ToolID, "name": name}
	if err != nil {
		s.logger.WithError(err).Error("failed to save calculation", fields)
		var stdErr *errors.StandardError
		if stderrors.As(err, &stdErr) && stdErr.Code == errors.ErrCodePlatformUnauthorized {
			return nil, stdErr
		}
		return nil, errors.NewHistorySaveFailedError(err)
	}

	fields["id"] = saved.ID
	s.logger.Info("calculation saved", fields)
	return saved, nil
}

// List returns the most recent saved calculations of a user.
func (s *Service) List(ctx context.Context, userEmail string, limit int) ([]SavedCalculation, error) {
	calcs, err := s.store.ListByUser(ctx, userEmail, limit)
	if err != nil {
		var stdErr *errors.StandardError
		if stderrors.As(err, &stdErr) {
			return nil, stdErr
		}
		return nil, errors.NewInternalError(err)
	}
	return calcs, nil
}
