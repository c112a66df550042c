package llm

import (
	"context"
	"net/http"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/resilience"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/pkg/anthropic"
)

const anthropicDefaultMaxTokens = 1024

// AnthropicProvider implements Provider over the Anthropic Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropic wraps client. Empty model falls back to the client default.
func NewAnthropic(client anthropic.Client, model string, maxTokens int) *AnthropicProvider {
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	return &AnthropicProvider{client: client, model: model, maxTokens: maxTokens}
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) Generate(ctx context.Context, req Request) (string, error) {
	modelID := a.model
	if req.Model != "" {
		modelID = req.Model
	}
	if modelID == "" {
		modelID = anthropic.DefaultModel
	}
	maxTokens := a.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	system := req.System
	if req.JSON {
		system += "\n\nRespond with a single JSON object and nothing else."
	}

	msgs := make([]anthropic.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, anthropic.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       modelID,
		MaxTokens:   int64(maxTokens),
		System:      system,
		Messages:    msgs,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", classifyAnthropic(err)
	}
	resp.Usage.LogCost(modelID, "generate")
	return resp.Text(), nil
}

func classifyAnthropic(err error) error {
	status := anthropic.StatusCode(err)
	if status == http.StatusTooManyRequests {
		return resilience.RateLimited("anthropic", status, 0, err)
	}
	return resilience.Unavailable("anthropic", status, err)
}
