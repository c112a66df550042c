package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/config"
)

// Checker runs periodic tier health checks in the background.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	prev      *MetricsSnapshot
}

// NewChecker creates a background checker. A non-positive interval defaults
// to five minutes.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Checker{collector: collector, alerter: alerter, interval: interval}
}

// Run starts the check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting tier health checker", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("tier health checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) int {
	snap := c.collector.Collect()
	alerts := c.alerter.EvaluateSince(snap, c.prev)
	c.prev = snap
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered", zap.Int("turns", snap.Turns))
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return len(alerts)
}
