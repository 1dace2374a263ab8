package documents

import (
	"context"
	"time"

	"immo-workers/internal/common/logger"
)

// SharePoller refreshes the share lists of recently active users on a fixed
// interval. Libraries idle for longer than MaxIdle are dropped.
type SharePoller struct {
	service  *Service
	interval time.Duration
	maxIdle  time.Duration
	logger   logger.Logger
}

func NewSharePoller(service *Service, interval, maxIdle time.Duration, log logger.Logger) *SharePoller {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &SharePoller{
		service:  service,
		interval: interval,
		maxIdle:  maxIdle,
		logger:   log.With(map[string]interface{}{"component": "share-poller"}),
	}
}

// Run polls until ctx is cancelled.
func (p *SharePoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("share poller started", map[string]interface{}{"intervalMs": p.interval.Milliseconds()})
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("share poller stopped", nil)
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll refreshes every active library once.
func (p *SharePoller) Poll(ctx context.Context) {
	for user, lib := range p.service.libs.active(p.service.now(), p.maxIdle) {
		if ctx.Err() != nil {
			return
		}
		if err := p.service.refreshShares(ctx, user, lib); err != nil {
			p.logger.WithError(err).Warn("share refresh failed", map[string]interface{}{"user": user})
		}
	}
}
