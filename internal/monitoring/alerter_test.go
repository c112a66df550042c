package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/config"
)

func thresholds() config.MonitoringConfig {
	return config.MonitoringConfig{FallbackRateThreshold: 0.5, MinTurns: 10}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{
		Turns:        20,
		Fallbacks:    2,
		FallbackRate: 0.1,
		Breakers:     map[string]string{"anthropic": "closed", "gemini": "half-open"},
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_FallbackRate(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{
		Turns:        22,
		Refused:      2,
		Fallbacks:    16,
		Simulated:    12,
		FallbackRate: 0.8,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFallbackRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "80.0%")
	assert.Contains(t, alerts[0].Message, "16 of 20 turns")
}

func TestAlerter_Evaluate_BelowMinTurns(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{Turns: 3, Fallbacks: 3, FallbackRate: 1}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_BreakersAndRateLimits(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{
		Breakers:    map[string]string{"gemini": "open", "anthropic": "open", "simulator": "closed"},
		Failures:    map[string]int{"anthropic": 5},
		RateLimited: map[string]int{"gemini": 3},
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 3)
	assert.Equal(t, AlertBreakerOpen, alerts[0].Type)
	assert.Equal(t, "anthropic", alerts[0].Details["tier"])
	assert.Equal(t, 5, alerts[0].Details["failures"])
	assert.Equal(t, AlertBreakerOpen, alerts[1].Type)
	assert.Equal(t, "gemini", alerts[1].Details["tier"])
	assert.Equal(t, AlertRateLimited, alerts[2].Type)
	assert.Contains(t, alerts[2].Message, "rate limited 3 time(s)")
}

func TestAlerter_EvaluateSince_CountsNewRateLimits(t *testing.T) {
	a := NewAlerter(thresholds())
	prev := &MetricsSnapshot{RateLimited: map[string]int{"gemini": 3}}

	alerts := a.EvaluateSince(&MetricsSnapshot{RateLimited: map[string]int{"gemini": 3}}, prev)
	assert.Empty(t, alerts)

	alerts = a.EvaluateSince(&MetricsSnapshot{RateLimited: map[string]int{"gemini": 5, "anthropic": 1}}, prev)
	require.Len(t, alerts, 2)
	assert.Equal(t, "anthropic", alerts[0].Details["tier"])
	assert.Equal(t, 1, alerts[0].Details["count"])
	assert.Equal(t, "gemini", alerts[1].Details["tier"])
	assert.Equal(t, 2, alerts[1].Details["count"])
	assert.Equal(t, 5, alerts[1].Details["total"])
	assert.Contains(t, alerts[1].Message, "rate limited 2 time(s)")
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var alert Alert
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		assert.Equal(t, AlertBreakerOpen, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := thresholds()
	cfg.WebhookURL = srv.URL
	a := NewAlerter(cfg)

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertBreakerOpen, Severity: "medium", Message: "a"},
		{Type: AlertBreakerOpen, Severity: "medium", Message: "b"},
	})
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := thresholds()
	cfg.WebhookURL = srv.URL
	a := NewAlerter(cfg)

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertFallbackRate}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_NoWebhookLogsOnly(t *testing.T) {
	a := NewAlerter(thresholds())
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertFallbackRate}}))
	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}
