// Package monitoring tracks which advice tier answers each turn and raises
// alerts when the service keeps falling back past its primary tiers.
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/advice"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

// MetricsSnapshot holds a point-in-time view of tier health since start.
type MetricsSnapshot struct {
	Turns        int     `json:"turns"`
	Refused      int     `json:"refused"`
	FallbackRate float64 `json:"fallback_rate"`
	Fallbacks    int     `json:"fallbacks"`
	Simulated    int     `json:"simulated"`

	AnsweredBy  map[string]int    `json:"answered_by"`
	Failures    map[string]int    `json:"failures"`
	RateLimited map[string]int    `json:"rate_limited"`
	Breakers    map[string]string `json:"breakers"`

	Since       time.Time `json:"since"`
	CollectedAt time.Time `json:"collected_at"`
}

// Source is the advisor being observed. *advice.Chain satisfies it.
type Source interface {
	GenerateWithReport(ctx context.Context, s model.AdvisoryState) (model.AdviceResponse, advice.Report)
	BreakerStates() map[string]string
}

// Collector wraps a Source and counts the outcome of every generation.
// It satisfies pipeline.Advisor, so it drops in where the chain would go.
type Collector struct {
	src Source

	mu          sync.Mutex
	turns       int
	refused     int
	fallbacks   int
	simulated   int
	answeredBy  map[string]int
	failures    map[string]int
	rateLimited map[string]int
	since       time.Time

	nowFunc func() time.Time
}

// NewCollector creates a collector around src.
func NewCollector(src Source) *Collector {
	return &Collector{
		src:         src,
		answeredBy:  make(map[string]int),
		failures:    make(map[string]int),
		rateLimited: make(map[string]int),
		since:       time.Now().UTC(),
		nowFunc:     time.Now,
	}
}

// GenerateWithReport delegates to the source and records the report.
func (c *Collector) GenerateWithReport(ctx context.Context, s model.AdvisoryState) (model.AdviceResponse, advice.Report) {
	resp, report := c.src.GenerateWithReport(ctx, s)
	c.record(resp, report)
	return resp, report
}

func (c *Collector) record(resp model.AdviceResponse, report advice.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns++
	if resp.Refused {
		c.refused++
		return
	}
	c.answeredBy[report.Tier]++
	if len(report.Failures) > 0 {
		c.fallbacks++
	}
	if report.Tier == advice.SimulatorName {
		c.simulated++
	}
	for _, f := range report.Failures {
		if f.RateLimited {
			c.rateLimited[f.Tier]++
			continue
		}
		c.failures[f.Tier]++
	}
}

// Collect returns a snapshot of the counters and current breaker states.
func (c *Collector) Collect() *MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &MetricsSnapshot{
		Turns:       c.turns,
		Refused:     c.refused,
		Fallbacks:   c.fallbacks,
		Simulated:   c.simulated,
		AnsweredBy:  copyCounts(c.answeredBy),
		Failures:    copyCounts(c.failures),
		RateLimited: copyCounts(c.rateLimited),
		Breakers:    c.src.BreakerStates(),
		Since:       c.since,
		CollectedAt: c.nowFunc().UTC(),
	}
	if answered := c.turns - c.refused; answered > 0 {
		snap.FallbackRate = float64(c.fallbacks) / float64(answered)
	}
	return snap
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
