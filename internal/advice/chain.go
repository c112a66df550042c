package advice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/resilience"
)

const defaultTierTimeout = 10 * time.Second

// TierFailure records one tier that did not produce a usable answer.
type TierFailure struct {
	Tier        string
	Err         string
	RateLimited bool
}

// Report describes how a response was produced.
type Report struct {
	Tier     string
	Failures []TierFailure
}

// Summary renders the report for the reasoning trace.
func (r Report) Summary() string {
	if len(r.Failures) == 0 {
		return "tier=" + r.Tier
	}
	names := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		if f.RateLimited {
			names = append(names, f.Tier+"(rate limited)")
			continue
		}
		names = append(names, f.Tier)
	}
	return fmt.Sprintf("tier=%s tier_failures=%s", r.Tier, strings.Join(names, ","))
}

// Chain tries tiers strictly in order and returns the first valid answer.
type Chain struct {
	tiers    []Tier
	timeout  time.Duration
	breakers *resilience.ServiceBreakers
	last     Tier
	tracer   trace.Tracer
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithTierTimeout bounds each tier attempt.
func WithTierTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreakers shares a breaker registry across chains.
func WithBreakers(sb *resilience.ServiceBreakers) ChainOption {
	return func(c *Chain) { c.breakers = sb }
}

// NewChain builds a chain over tiers, in priority order. It fails with
// resilience.ErrNoTiers when tiers is empty.
func NewChain(tiers []Tier, opts ...ChainOption) (*Chain, error) {
	if len(tiers) == 0 {
		return nil, resilience.ErrNoTiers
	}
	c := &Chain{
		tiers:    append([]Tier(nil), tiers...),
		timeout:  defaultTierTimeout,
		breakers: resilience.NewServiceBreakers(resilience.BreakerFromConfig(0, 0)),
		last:     NewSimulator(),
		tracer:   otel.Tracer("agri-advisor/advice"),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Tiers returns the configured tier names in order.
func (c *Chain) Tiers() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = t.Name()
	}
	return names
}

// BreakerStates reports the circuit state of every tier that has been tried.
func (c *Chain) BreakerStates() map[string]string {
	states := c.breakers.States()
	out := make(map[string]string, len(states))
	for name, st := range states {
		out[name] = st.String()
	}
	return out
}

// Generate returns advice for state. It never fails: tier errors are logged
// and the simulator answers when every tier is exhausted.
func (c *Chain) Generate(ctx context.Context, state model.AdvisoryState) model.AdviceResponse {
	resp, _ := c.GenerateWithReport(ctx, state)
	return resp
}

// GenerateWithReport is Generate plus a record of which tiers failed.
func (c *Chain) GenerateWithReport(ctx context.Context, state model.AdvisoryState) (model.AdviceResponse, Report) {
	ctx, span := c.tracer.Start(ctx, "advice.generate")
	defer span.End()

	if !state.Safe() {
		span.AddEvent("refused")
		zap.L().Info("advice: query refused by safety gate", zap.String("session_id", state.SessionID))
		resp := Refusal()
		return resp, Report{Tier: resp.Tier}
	}

	g := GroundingFromState(state)
	var report Report

	for _, t := range c.tiers {
		resp, err := c.attempt(ctx, t, g)
		if err != nil {
			report.Failures = append(report.Failures, c.recordFailure(span, t.Name(), err))
			continue
		}
		report.Tier = resp.Tier
		span.SetAttributes(attribute.String("advice.tier", resp.Tier))
		return ApplyGoldenRule(resp, g.WeatherAlert), report
	}

	// Every configured tier failed; the built-in simulator cannot.
	resp, _ := c.last.Generate(context.WithoutCancel(ctx), g)
	resp.Tier = c.last.Name()
	resp.Mode = g.Mode
	report.Tier = resp.Tier
	span.SetAttributes(attribute.String("advice.tier", resp.Tier))
	return ApplyGoldenRule(resp, g.WeatherAlert), report
}

func (c *Chain) attempt(ctx context.Context, t Tier, g Grounding) (model.AdviceResponse, error) {
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := resilience.ExecuteVal(tctx, c.breakers.Get(t.Name()), func(ctx context.Context) (model.AdviceResponse, error) {
		r, err := t.Generate(ctx, g)
		if err != nil {
			return model.AdviceResponse{}, err
		}
		r.Tier = t.Name()
		r.Mode = g.Mode
		if err := r.Validate(); err != nil {
			return model.AdviceResponse{}, err
		}
		return r, nil
	})
	if err == nil {
		zap.L().Info("advice: tier answered",
			zap.String("tier", t.Name()),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return resp, err
}

func (c *Chain) recordFailure(span trace.Span, tier string, err error) TierFailure {
	rateLimited := resilience.IsRateLimited(err)
	span.AddEvent("tier_failed", trace.WithAttributes(
		attribute.String("tier", tier),
		attribute.Bool("rate_limited", rateLimited),
		attribute.String("error", err.Error()),
	))

	if rateLimited {
		zap.L().Warn("advice: tier rate limited, falling through",
			zap.String("tier", tier),
			zap.Bool("rate_limited", true),
			zap.Error(err),
		)
	} else {
		zap.L().Warn("advice: tier failed, falling through",
			zap.String("tier", tier),
			zap.Bool("rate_limited", false),
			zap.Error(err),
		)
	}
	return TierFailure{Tier: tier, Err: err.Error(), RateLimited: rateLimited}
}
