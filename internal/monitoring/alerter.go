package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFallbackRate AlertType = "fallback_rate"
	AlertBreakerOpen  AlertType = "breaker_open"
	AlertRateLimited  AlertType = "rate_limited"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// Rate limits count from process start.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	return a.EvaluateSince(snap, nil)
}

// EvaluateSince is Evaluate with rate limits counted since prev, so a burst
// of 429s alerts once rather than on every check. A nil prev counts from
// process start.
func (a *Alerter) EvaluateSince(snap, prev *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	answered := snap.Turns - snap.Refused
	if answered >= a.cfg.MinTurns && answered > 0 && snap.FallbackRate > a.cfg.FallbackRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFallbackRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Fallback rate %.1f%% exceeds threshold %.1f%% (%d of %d turns, %d answered by the simulator)",
				snap.FallbackRate*100, a.cfg.FallbackRateThreshold*100,
				snap.Fallbacks, answered, snap.Simulated,
			),
			Details: map[string]any{
				"fallback_rate": snap.FallbackRate,
				"threshold":     a.cfg.FallbackRateThreshold,
				"fallbacks":     snap.Fallbacks,
				"answered":      answered,
			},
			Timestamp: now,
		})
	}

	for _, tier := range sortedKeys(snap.Breakers) {
		if snap.Breakers[tier] != "open" {
			continue
		}
		alerts = append(alerts, Alert{
			Type:      AlertBreakerOpen,
			Severity:  "medium",
			Message:   fmt.Sprintf("Circuit breaker for tier %s is open", tier),
			Details:   map[string]any{"tier": tier, "failures": snap.Failures[tier]},
			Timestamp: now,
		})
	}

	for _, tier := range sortedKeys(snap.RateLimited) {
		count := snap.RateLimited[tier]
		if prev != nil {
			count -= prev.RateLimited[tier]
		}
		if count <= 0 {
			continue
		}
		alerts = append(alerts, Alert{
			Type:      AlertRateLimited,
			Severity:  "low",
			Message:   fmt.Sprintf("Tier %s was rate limited %d time(s)", tier, count),
			Details:   map[string]any{"tier": tier, "count": count, "total": snap.RateLimited[tier]},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL and returns the
// number sent. Without a webhook the alerts are only logged.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if len(alerts) == 0 {
		return 0
	}
	if a.cfg.WebhookURL == "" {
		for _, alert := range alerts {
			zap.L().Warn("monitoring: alert",
				zap.String("type", string(alert.Type)),
				zap.String("severity", alert.Severity),
				zap.String("message", alert.Message),
			)
		}
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
