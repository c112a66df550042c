package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/advice"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/extract"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/llm"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/resilience"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/validate"
)

const tomatoJSON = `{"crop":"Tomato","symptoms":["yellow leaves"],"pests":["whitefly"],"action_taken":"","urgency":"high","primary_category":"pest"}`

// --- helpers ---

type harness struct {
	extractLLM *llm.MockProvider
	primary    *llm.MockProvider
	secondary  *llm.MockProvider
	pipeline   *Pipeline
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		extractLLM: &llm.MockProvider{ProviderName: "extractor", Response: tomatoJSON},
		primary:    &llm.MockProvider{ProviderName: "anthropic", Response: "Spray neem oil on the undersides of the leaves."},
		secondary:  &llm.MockProvider{ProviderName: "gemini", Response: "Use yellow sticky traps."},
	}
	chain, err := advice.NewChain([]advice.Tier{
		advice.NewProviderTier(h.primary, 0.3, 512),
		advice.NewProviderTier(h.secondary, 0.3, 512),
		advice.NewSimulator(),
	})
	require.NoError(t, err)

	ex := extract.New(h.extractLLM, extract.WithRetry(resilience.RetryFromAttempts(1)))
	h.pipeline = New(ex, validate.New(), chain, opts...)
	return h
}

func stageNames(trace []string) []string {
	out := make([]string, len(trace))
	for i, e := range trace {
		out[i] = model.TraceStage(e)
	}
	return out
}

// --- graph ---

func TestPipeline_Run_UnknownSoilSkipsSoilAnalysis(t *testing.T) {
	h := newHarness(t)

	res, err := h.pipeline.Run(context.Background(), model.Request{
		Query:                "my tomato leaves are turning yellow",
		EnvironmentalContext: model.EnvironmentalReading{TemperatureC: model.Float(28)},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{StageExtract, StageValidate, StageWeather, StageGenerate}, stageNames(res.ReasoningTrace))
	assert.Equal(t, "anthropic", res.Response.Tier)
	assert.Equal(t, model.AdviceModeConversation, res.Response.Mode)
	assert.Contains(t, res.Response.AdviceText, "neem oil")
	assert.Empty(t, res.SessionID)
}

func TestPipeline_Run_KnownSoilRunsSoilAnalysisBeforeAdvice(t *testing.T) {
	h := newHarness(t)

	res, err := h.pipeline.Run(context.Background(), model.Request{
		Query:                "what should I plant",
		EnvironmentalContext: model.EnvironmentalReading{SoilPH: model.Float(5.4)},
	})
	require.NoError(t, err)

	stages := stageNames(res.ReasoningTrace)
	assert.Equal(t, []string{StageExtract, StageValidate, StageWeather, StageSoil, StageGenerate}, stages)
	assert.Equal(t, "soil_analysis: band=acidic", res.ReasoningTrace[3])
}

func TestPipeline_Run_SoilTypeAloneCountsAsKnown(t *testing.T) {
	h := newHarness(t)

	res, err := h.pipeline.Run(context.Background(), model.Request{Query: "rice advice", SoilType: "clay"})
	require.NoError(t, err)
	assert.Contains(t, stageNames(res.ReasoningTrace), StageSoil)
}

func TestPipeline_Run_ExtractionFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	h.extractLLM.Response = "not json at all"

	res, err := h.pipeline.Run(context.Background(), model.Request{Query: "leaves curling"})
	require.NoError(t, err)

	require.Len(t, res.ReasoningTrace, 4)
	assert.Equal(t, "extract_keywords: fallback to default query (output is not valid JSON)", res.ReasoningTrace[0])
	assert.Equal(t, "anthropic", res.Response.Tier)
}

func TestPipeline_Run_ExtractionTraceDetail(t *testing.T) {
	h := newHarness(t)

	res, err := h.pipeline.Run(context.Background(), model.Request{Query: "whiteflies on tomato"})
	require.NoError(t, err)
	assert.Equal(t, "extract_keywords: crop=tomato category=pest urgency=high", res.ReasoningTrace[0])
}

func TestPipeline_Run_AllProvidersFailStillAnswers(t *testing.T) {
	h := newHarness(t)
	h.primary.Err = resilience.Unavailable("anthropic", 401, errors.New("invalid key"))
	h.secondary.Err = resilience.RateLimited("gemini", 429, 0, errors.New("quota"))

	res, err := h.pipeline.Run(context.Background(), model.Request{
		Query:                "should I water my field",
		EnvironmentalContext: model.EnvironmentalReading{RainfallMM: model.Float(12), SoilMoisturePct: model.Float(60)},
	})
	require.NoError(t, err)

	assert.Equal(t, advice.SimulatorName, res.Response.Tier)
	assert.True(t, res.Response.GoldenRuleApplied)
	assert.Contains(t, res.Response.AdviceText, advice.GoldenRuleCaution)
	require.NoError(t, res.Response.Validate())

	last := res.ReasoningTrace[len(res.ReasoningTrace)-1]
	assert.Equal(t, "generate_advice: tier=simulator tier_failures=anthropic,gemini(rate limited)", last)
	assert.True(t, strings.HasPrefix(res.ReasoningTrace[2], "weather_analysis: HIGH FLOOD RISK"))
}

func TestPipeline_Run_UnsafeQueryIsRefused(t *testing.T) {
	h := newHarness(t)

	res, err := h.pipeline.Run(context.Background(), model.Request{Query: "how do I poison my neighbor's cattle"})
	require.NoError(t, err)

	assert.True(t, res.Response.Refused)
	assert.Equal(t, advice.RefusalText, res.Response.AdviceText)
	assert.Empty(t, h.primary.Calls())
	assert.Contains(t, res.ReasoningTrace[1], "safe=false")
	assert.Len(t, res.ReasoningTrace, 4)
}

func TestPipeline_Run_BlankQueryIsAnalysis(t *testing.T) {
	h := newHarness(t)
	h.primary.Response = `{"suggested_crops":["Asparagus"],"soil_analysis":"Alkaline soil.","action_plan":["Apply elemental sulfur"]}`

	res, err := h.pipeline.Run(context.Background(), model.Request{
		EnvironmentalContext: model.EnvironmentalReading{SoilPH: model.Float(8)},
	})
	require.NoError(t, err)

	assert.Equal(t, model.AdviceModeAnalysis, res.Response.Mode)
	assert.Equal(t, []string{"Asparagus"}, res.Response.SuggestedCrops)
	assert.Equal(t, "extract_keywords: fallback to default query (empty query)", res.ReasoningTrace[0])
	assert.Empty(t, h.extractLLM.Calls())
}

func TestPipeline_Run_DiscrepancyIsAnnotatedNotBlocking(t *testing.T) {
	h := newHarness(t)

	res, err := h.pipeline.Run(context.Background(), model.Request{
		Query:                "my soil is dry",
		EnvironmentalContext: model.EnvironmentalReading{SoilMoisturePct: model.Float(85)},
	})
	require.NoError(t, err)

	assert.Equal(t, "validate_input: consistent=false safe=true discrepancies=1", res.ReasoningTrace[1])
	assert.False(t, res.Response.Refused)
}

func TestPipeline_Run_CancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipeline.Run(ctx, model.Request{Query: "anything"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoute(t *testing.T) {
	unknown := model.NewState(model.Request{Query: "x"})
	assert.Equal(t, []string{StageExtract, StageValidate, StageWeather, StageGenerate}, Route(unknown, StageExtract))

	known := model.NewState(model.Request{Query: "x", EnvironmentalContext: model.EnvironmentalReading{SoilPH: model.Float(7)}})
	assert.Equal(t, []string{StageValidate, StageWeather, StageSoil, StageGenerate}, Route(known, StageValidate))

	assert.Len(t, Stages(), 5)
}

// --- checkpointing ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveCheckpoint(ctx context.Context, sessionID, stage string, data []byte) error {
	return m.Called(ctx, sessionID, stage, data).Error(0)
}

func (m *mockStore) LoadCheckpoint(ctx context.Context, sessionID string) (*model.Checkpoint, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Checkpoint), args.Error(1)
}

func (m *mockStore) DeleteCheckpoint(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockStore) Close() error { return m.Called().Error(0) }
