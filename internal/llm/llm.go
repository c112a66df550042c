// Package llm defines the text-generation capability shared by the extraction
// service and the advice tiers, with adapters over the upstream clients.
package llm

import (
	"context"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

// Request is one generation call.
type Request struct {
	// System is the system prompt.
	System string
	// Messages is the conversation, oldest first. The last entry is the
	// current user turn.
	Messages []model.Message
	// Model overrides the provider's configured model when set.
	Model       string
	MaxTokens   int
	Temperature *float64
	// JSON asks for a single JSON object reply.
	JSON bool
}

// Provider generates text from a request.
//
// Errors are classified with the resilience taxonomy: quota exhaustion is a
// *resilience.RateLimitedError, every other upstream failure a
// *resilience.UpstreamUnavailableError.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 { return &v }
