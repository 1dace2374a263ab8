package wizard

import (
	"context"
	"time"

	"immo-workers/internal/common/logger"
	"immo-workers/internal/platform"
)

// Snapshot returns the payload to autosave and the time it was last changed.
type Snapshot func(ctx context.Context) (payload map[string]interface{}, changedAt time.Time, err error)

// Autosaver periodically sends a wizard's form data to saveDocument. A tick
// with no change since the last successful save sends nothing. Failures are
// logged and retried on the next tick.
type Autosaver struct {
	invoker  platform.Invoker
	interval time.Duration
	logger   logger.Logger

	saved time.Time
}

func NewAutosaver(invoker platform.Invoker, interval time.Duration, log logger.Logger) *Autosaver {
	return &Autosaver{invoker: invoker, interval: interval, logger: log}
}

// Run saves on every tick until ctx is cancelled.
func (a *Autosaver) Run(ctx context.Context, snapshot Snapshot) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.save(ctx, snapshot)
		}
	}
}

func (a *Autosaver) save(ctx context.Context, snapshot Snapshot) {
	payload, changedAt, err := snapshot(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("autosave snapshot failed", nil)
		return
	}
	if payload == nil || !changedAt.After(a.saved) {
		return
	}

	fields := map[string]interface{}{"sessionId": payload["session_id"]}
	if _, err := a.invoker.Invoke(ctx, platform.FnSaveDocument, payload); err != nil {
		if ctx.Err() == nil {
			a.logger.WithError(err).Warn("autosave failed", fields)
		}
		return
	}
	a.saved = changedAt
	a.logger.Debug("autosaved", fields)
}
