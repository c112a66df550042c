package advice

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/llm"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/textutil"
)

// ProviderTier asks a generation provider for advice.
type ProviderTier struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// NewProviderTier wraps provider. The tier takes the provider's name.
func NewProviderTier(provider llm.Provider, temperature float64, maxTokens int) *ProviderTier {
	return &ProviderTier{provider: provider, temperature: temperature, maxTokens: maxTokens}
}

func (t *ProviderTier) Name() string { return t.provider.Name() }

// Generate sends the grounded prompt and normalizes the reply into the
// response contract for the grounding's mode.
func (t *ProviderTier) Generate(ctx context.Context, g Grounding) (model.AdviceResponse, error) {
	if g.Mode == model.AdviceModeAnalysis {
		return t.analysis(ctx, g)
	}

	text, err := t.provider.Generate(ctx, llm.Request{
		System:      ConversationPrompt(g),
		Messages:    []model.Message{{Role: "user", Content: g.Query}},
		MaxTokens:   t.maxTokens,
		Temperature: llm.Float(t.temperature),
	})
	if err != nil {
		return model.AdviceResponse{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.AdviceResponse{}, eris.Errorf("advice: %s returned an empty reply", t.Name())
	}
	return model.AdviceResponse{
		Mode:       model.AdviceModeConversation,
		AdviceText: text,
	}, nil
}

type analysisReply struct {
	SuggestedCrops []string `json:"suggested_crops"`
	SoilAnalysis   string   `json:"soil_analysis"`
	ActionPlan     []string `json:"action_plan"`
}

func (t *ProviderTier) analysis(ctx context.Context, g Grounding) (model.AdviceResponse, error) {
	text, err := t.provider.Generate(ctx, llm.Request{
		System:      AnalysisPrompt(g),
		Messages:    []model.Message{{Role: "user", Content: "Analyse my field conditions."}},
		MaxTokens:   t.maxTokens,
		Temperature: llm.Float(t.temperature),
		JSON:        true,
	})
	if err != nil {
		return model.AdviceResponse{}, err
	}

	var reply analysisReply
	if err := json.Unmarshal([]byte(textutil.CleanJSON(text)), &reply); err != nil {
		return model.AdviceResponse{}, eris.Wrapf(err, "advice: %s returned malformed analysis JSON", t.Name())
	}
	return model.AdviceResponse{
		Mode:           model.AdviceModeAnalysis,
		SuggestedCrops: reply.SuggestedCrops,
		SoilAnalysis:   strings.TrimSpace(reply.SoilAnalysis),
		ActionPlan:     reply.ActionPlan,
	}, nil
}
