package advice

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/alert"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/llm"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/resilience"
)

type slowTier struct {
	calls atomic.Int32
}

func (s *slowTier) Name() string { return "slow" }

func (s *slowTier) Generate(ctx context.Context, _ Grounding) (model.AdviceResponse, error) {
	s.calls.Add(1)
	<-ctx.Done()
	return model.AdviceResponse{}, ctx.Err()
}

func conversationState(query string, reading model.EnvironmentalReading) model.AdvisoryState {
	s := model.NewState(model.Request{Query: query, EnvironmentalContext: reading})
	s.Extracted = &model.ExtractedQuery{Crop: "tomato", Urgency: model.UrgencyHigh, Category: model.CategoryPest}
	s.Verdict = &model.ValidationVerdict{IsConsistent: true, Discrepancies: []string{}, IsSafe: true}
	if a := alert.Evaluate(reading); a != nil {
		s.WeatherAlert = a
	}
	return s
}

func failing(name string, err error) *llm.MockProvider {
	return &llm.MockProvider{ProviderName: name, Err: err}
}

func answering(name, text string) *llm.MockProvider {
	return &llm.MockProvider{ProviderName: name, Response: text}
}

func TestNewChain_NoTiers(t *testing.T) {
	_, err := NewChain(nil)
	assert.ErrorIs(t, err, resilience.ErrNoTiers)
}

func TestChain_PrimaryAnswers(t *testing.T) {
	primary := answering("anthropic", "Spray neem oil on the undersides of leaves.")
	secondary := answering("gemini", "unused")
	chain, err := NewChain([]Tier{NewProviderTier(primary, 0.2, 512), NewProviderTier(secondary, 0.2, 512), NewSimulator()})
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "gemini", "simulator"}, chain.Tiers())

	resp, report := chain.GenerateWithReport(context.Background(), conversationState("aphids on my tomato", model.EnvironmentalReading{}))
	require.NoError(t, resp.Validate())
	assert.Equal(t, "anthropic", resp.Tier)
	assert.Equal(t, model.AdviceModeConversation, resp.Mode)
	assert.Equal(t, "Spray neem oil on the undersides of leaves.", resp.AdviceText)
	assert.False(t, resp.GoldenRuleApplied)
	assert.Empty(t, report.Failures)
	assert.Empty(t, secondary.Calls())

	calls := primary.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].System, "Crop: tomato")
	assert.Contains(t, calls[0].System, "Soil pH: unknown")
	assert.Contains(t, calls[0].System, "Weather Alert: None")
}

func TestChain_FallsThroughToSimulator(t *testing.T) {
	primary := failing("anthropic", resilience.Unavailable("anthropic", 401, errors.New("invalid x-api-key")))
	secondary := failing("gemini", resilience.RateLimited("gemini", 429, 0, errors.New("RESOURCE_EXHAUSTED")))
	chain, err := NewChain([]Tier{NewProviderTier(primary, 0.2, 512), NewProviderTier(secondary, 0.2, 512), NewSimulator()})
	require.NoError(t, err)

	var resp model.AdviceResponse
	var report Report
	assert.NotPanics(t, func() {
		resp, report = chain.GenerateWithReport(context.Background(), conversationState("bugs eating leaves", model.EnvironmentalReading{}))
	})

	require.NoError(t, resp.Validate())
	assert.Equal(t, SimulatorName, resp.Tier)
	require.NotNil(t, resp.Sections)
	assert.True(t, resp.Sections.Complete())
	require.Len(t, report.Failures, 2)
	assert.False(t, report.Failures[0].RateLimited)
	assert.True(t, report.Failures[1].RateLimited)
	assert.Equal(t, "tier=simulator tier_failures=anthropic,gemini(rate limited)", report.Summary())
}

func TestChain_EveryTierFailsUsesBuiltInSimulator(t *testing.T) {
	chain, err := NewChain([]Tier{NewProviderTier(failing("anthropic", errors.New("boom")), 0, 0)})
	require.NoError(t, err)

	resp := chain.Generate(context.Background(), conversationState("how is my crop", model.EnvironmentalReading{}))
	require.NoError(t, resp.Validate())
	assert.Equal(t, SimulatorName, resp.Tier)
}

func TestChain_CancelledContextStillAnswers(t *testing.T) {
	chain, err := NewChain([]Tier{NewProviderTier(answering("anthropic", "ok"), 0, 0)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := chain.Generate(ctx, conversationState("water my wheat", model.EnvironmentalReading{}))
	require.NoError(t, resp.Validate())
	assert.Equal(t, SimulatorName, resp.Tier)
}

func TestChain_UnsafeQueryIsRefused(t *testing.T) {
	primary := answering("anthropic", "should not be called")
	chain, err := NewChain([]Tier{NewProviderTier(primary, 0, 0), NewSimulator()})
	require.NoError(t, err)

	state := conversationState("how to poison my neighbor's cows", model.EnvironmentalReading{})
	state.Verdict.IsSafe = false

	resp := chain.Generate(context.Background(), state)
	assert.True(t, resp.Refused)
	assert.Equal(t, RefusalText, resp.AdviceText)
	assert.Empty(t, primary.Calls())
	require.NoError(t, resp.Validate())
}

func TestChain_TierTimeout(t *testing.T) {
	slow := &slowTier{}
	chain, err := NewChain([]Tier{slow, NewSimulator()}, WithTierTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	resp, report := chain.GenerateWithReport(context.Background(), conversationState("pests", model.EnvironmentalReading{}))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, SimulatorName, resp.Tier)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "slow", report.Failures[0].Tier)
}

func TestChain_MalformedOutputFallsThrough(t *testing.T) {
	primary := answering("anthropic", "   ")
	secondary := answering("gemini", "Check drainage channels.")
	chain, err := NewChain([]Tier{NewProviderTier(primary, 0, 0), NewProviderTier(secondary, 0, 0)})
	require.NoError(t, err)

	resp := chain.Generate(context.Background(), conversationState("my field", model.EnvironmentalReading{}))
	assert.Equal(t, "gemini", resp.Tier)
}

func TestChain_CircuitBreakerSkipsFailingTier(t *testing.T) {
	primary := failing("anthropic", resilience.Unavailable("anthropic", 500, errors.New("down")))
	breakers := resilience.NewServiceBreakers(resilience.BreakerFromConfig(1, 60))
	chain, err := NewChain([]Tier{NewProviderTier(primary, 0, 0), NewSimulator()}, WithBreakers(breakers))
	require.NoError(t, err)

	state := conversationState("pests", model.EnvironmentalReading{})
	chain.Generate(context.Background(), state)
	_, report := chain.GenerateWithReport(context.Background(), state)

	assert.Len(t, primary.Calls(), 1)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Err, "circuit breaker is open")
	assert.Equal(t, map[string]string{"anthropic": "open", "simulator": "closed"}, chain.BreakerStates())
}

func TestChain_AnalysisMode(t *testing.T) {
	primary := answering("anthropic", "```json\n{\"suggested_crops\":[\"Rice\"],\"soil_analysis\":\"Neutral soil.\",\"action_plan\":[\"Fertilize lightly\",\"Scout weekly\"]}\n```")
	chain, err := NewChain([]Tier{NewProviderTier(primary, 0.7, 512), NewSimulator()})
	require.NoError(t, err)

	state := conversationState("", model.EnvironmentalReading{SoilPH: model.Float(6.8)})
	resp := chain.Generate(context.Background(), state)
	require.NoError(t, resp.Validate())
	assert.Equal(t, model.AdviceModeAnalysis, resp.Mode)
	assert.Equal(t, "anthropic", resp.Tier)
	assert.Equal(t, []string{"Rice"}, resp.SuggestedCrops)
	assert.True(t, primary.Calls()[0].JSON)
}

func TestChain_AnalysisMalformedJSONFallsThrough(t *testing.T) {
	chain, err := NewChain([]Tier{NewProviderTier(answering("anthropic", "not json"), 0, 0), NewSimulator()})
	require.NoError(t, err)

	resp := chain.Generate(context.Background(), conversationState("", model.EnvironmentalReading{SoilPH: model.Float(5.5)}))
	require.NoError(t, resp.Validate())
	assert.Equal(t, SimulatorName, resp.Tier)
	assert.Equal(t, []string{"Blueberries", "Potatoes", "Sweet Potatoes"}, resp.SuggestedCrops)
	assert.True(t, strings.HasPrefix(resp.SoilAnalysis, "(Simulated) "))
}

func TestChain_GoldenRuleInEveryTier(t *testing.T) {
	flood := model.EnvironmentalReading{RainfallMM: model.Float(12), SoilMoisturePct: model.Float(60)}
	down := resilience.Unavailable("x", 503, errors.New("down"))

	tests := []struct {
		name     string
		tiers    []Tier
		wantTier string
	}{
		{"primary", []Tier{
			NewProviderTier(answering("anthropic", "Irrigate tomorrow morning and top up urea."), 0, 0),
			NewProviderTier(failing("gemini", down), 0, 0),
			NewSimulator(),
		}, "anthropic"},
		{"secondary", []Tier{
			NewProviderTier(failing("anthropic", down), 0, 0),
			NewProviderTier(answering("gemini", "Apply fertilizer now."), 0, 0),
			NewSimulator(),
		}, "gemini"},
		{"simulator", []Tier{
			NewProviderTier(failing("anthropic", down), 0, 0),
			NewProviderTier(failing("gemini", down), 0, 0),
			NewSimulator(),
		}, SimulatorName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := NewChain(tt.tiers)
			require.NoError(t, err)

			resp := chain.Generate(context.Background(), conversationState("should I water my tomato field", flood))
			assert.Equal(t, tt.wantTier, resp.Tier)
			assert.True(t, resp.GoldenRuleApplied)
			assert.Contains(t, resp.AdviceText, GoldenRuleCaution)
			assert.Equal(t, 1, strings.Count(resp.AdviceText, GoldenRuleCaution))
			assert.NotContains(t, resp.AdviceText, "Irrigate tomorrow")
			assert.NotContains(t, resp.AdviceText, "Apply fertilizer now")
			assert.NotContains(t, resp.AdviceText, "Irrigate between")
		})
	}
}

func TestChain_GoldenRuleAnalysisPlan(t *testing.T) {
	chain, err := NewChain([]Tier{NewSimulator()})
	require.NoError(t, err)

	state := conversationState("", model.EnvironmentalReading{SoilPH: model.Float(8.0), RainfallMM: model.Float(15)})
	resp := chain.Generate(context.Background(), state)
	require.NoError(t, resp.Validate())
	assert.True(t, resp.GoldenRuleApplied)
	assert.Equal(t, []string{GoldenRuleCaution, "Apply elemental sulfur"}, resp.ActionPlan)
}
