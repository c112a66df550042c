package llm

import (
	"context"
	"errors"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/resilience"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/pkg/gemini"
)

// GeminiProvider implements Provider over the Gemini chat completions API.
type GeminiProvider struct {
	client gemini.Client
}

// NewGemini wraps client.
func NewGemini(client gemini.Client) *GeminiProvider {
	return &GeminiProvider{client: client}
}

func (g *GeminiProvider) Name() string { return "gemini" }

func (g *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	msgs := make([]gemini.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, gemini.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, gemini.Message{Role: m.Role, Content: m.Content})
	}

	creq := gemini.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		creq.MaxTokens = &mt
	}
	if req.JSON {
		creq.ResponseFormat = &gemini.ResponseFormat{Type: "json_object"}
	}

	resp, err := g.client.ChatCompletion(ctx, creq)
	if err != nil {
		return "", classifyGemini(err)
	}
	return resp.Content(), nil
}

func classifyGemini(err error) error {
	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		if apiErr.QuotaExhausted() {
			return resilience.RateLimited("gemini", apiErr.StatusCode, 0, err)
		}
		return resilience.Unavailable("gemini", apiErr.StatusCode, err)
	}
	return resilience.Unavailable("gemini", 0, err)
}
