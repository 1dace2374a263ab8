package calculator

import (
	"time"

	"immo-workers/internal/common/errors"
	"immo-workers/internal/common/logger"
)

// Service fronts the registry for the API and the workers and logs
// rejected inputs.
type Service struct {
	registry *Registry
	logger   logger.Logger
}

func NewService(registry *Registry, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{registry: registry, logger: log.With(map[string]interface{}{"component": "calculator"})}
}

func (s *Service) List() []Tool {
	return s.registry.List()
}

func (s *Service) Get(id string) (Tool, error) {
	return s.registry.Get(id)
}

func (s *Service) Run(toolID string, values Values) (*Outcome, error) {
	start := time.Now()
	outcome, err := s.registry.Run(toolID, values)
	if err != nil {
		stdErr := errors.AsStandard(err)
		s.logger.Info("calculation rejected", map[string]interface{}{
			"toolId":    toolID,
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		return nil, err
	}
	s.logger.Debug("calculation completed", map[string]interface{}{
		"toolId":     toolID,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return outcome, nil
}
