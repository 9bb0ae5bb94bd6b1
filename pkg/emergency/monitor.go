package emergency

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Monitor periodically checks the heartbeat and, once triggered, runs the
// recovery action exactly once and stops. A new monitor is needed after a
// trigger fires.
type Monitor struct {
	heartbeat *Heartbeat
	interval  time.Duration
	recover   func(context.Context) error
	log       *zap.Logger
}

// NewMonitor returns a monitor that runs recover when the heartbeat trips.
func NewMonitor(hb *Heartbeat, interval time.Duration, recover func(context.Context) error, log *zap.Logger) *Monitor {
	return &Monitor{heartbeat: hb, interval: interval, recover: recover, log: log}
}

// Run blocks until the context is canceled or the recovery action has fired.
// A failed recovery attempt is retried on the next tick.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !m.heartbeat.Triggered() {
			continue
		}

		m.log.Warn("inactivity threshold exceeded, releasing recovery kit")
		if err := m.recover(ctx); err != nil {
			m.log.Error("recovery export failed, will retry", zap.Error(err))
			continue
		}
		m.log.Info("recovery kit released, monitor stopping")
		return
	}
}
