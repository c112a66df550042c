package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/llm"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/registry"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func TestExtract_Success(t *testing.T) {
	p := &llm.MockProvider{Response: "```json\n" + `{
		"crop": "Tomato",
		"symptoms": ["Yellow Leaves", " yellow leaves ", "curling"],
		"pests": ["Aphids"],
		"action_taken": "Sprayed neem oil",
		"urgency": "HIGH",
		"primary_category": "pest"
	}` + "\n```"}

	svc := New(p, WithModel("claude-haiku-4-5-20251001"))
	q, err := svc.Extract(context.Background(), "My tomato leaves are yellow with aphids")
	require.NoError(t, err)

	assert.Equal(t, "tomato", q.Crop)
	assert.Equal(t, []string{"yellow leaves", "curling"}, q.Symptoms)
	assert.Equal(t, []string{"aphids"}, q.Pests)
	assert.Equal(t, "sprayed neem oil", q.ActionTaken)
	assert.Equal(t, model.UrgencyHigh, q.Urgency)
	assert.Equal(t, model.CategoryPest, q.Category)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].JSON)
	assert.Equal(t, "claude-haiku-4-5-20251001", calls[0].Model)
	assert.Contains(t, calls[0].System, "Example 5:")
	assert.Contains(t, calls[0].System, `"crop":"tomato"`)
	assert.Equal(t, "Query: My tomato leaves are yellow with aphids", calls[0].Messages[0].Content)
}

func TestExtract_CoercesUnknownEnums(t *testing.T) {
	p := &llm.MockProvider{Response: `{"crop":"maize","symptoms":"purple leaves","urgency":"whenever","primary_category":"soil"}`}
	q, err := New(p).Extract(context.Background(), "maize leaves purple")
	require.NoError(t, err)
	assert.Equal(t, model.UrgencyMedium, q.Urgency)
	assert.Equal(t, model.CategoryPest, q.Category)
	assert.Equal(t, []string{"purple leaves"}, q.Symptoms)
	assert.Empty(t, q.Pests)
}

func TestExtract_Failures(t *testing.T) {
	tests := []struct {
		name     string
		provider llm.Provider
		query    string
		reason   string
	}{
		{"empty query", &llm.MockProvider{Response: `{"crop":"rice"}`}, "   ", "empty query"},
		{"no provider", nil, "rice blight", "no provider configured"},
		{"not json", &llm.MockProvider{Response: "I think it is rice"}, "rice", "output is not valid JSON"},
		{"missing crop", &llm.MockProvider{Response: `{"symptoms":["wilting"]}`}, "wilting", "missing crop"},
		{"upstream", &llm.MockProvider{Err: resilience.Unavailable("anthropic", 401, errors.New("bad key"))}, "rice", "upstream call failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.provider, WithRetry(fastRetry())).Extract(context.Background(), tt.query)
			var exErr *Error
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, tt.reason, exErr.Reason)
		})
	}
}

func TestExtract_RetriesTransientFailures(t *testing.T) {
	p := &llm.MockProvider{Err: resilience.Unavailable("anthropic", 503, errors.New("overloaded"))}
	_, err := New(p, WithRetry(fastRetry())).Extract(context.Background(), "rice")
	require.Error(t, err)
	assert.Len(t, p.Calls(), 2)
	assert.True(t, resilience.IsUpstreamUnavailable(err))
}

func TestExtract_DoesNotRetryRateLimit(t *testing.T) {
	p := &llm.MockProvider{Err: resilience.RateLimited("gemini", 429, 0, errors.New("quota"))}
	_, err := New(p, WithRetry(fastRetry())).Extract(context.Background(), "rice")
	require.Error(t, err)
	assert.Len(t, p.Calls(), 1)
	assert.True(t, resilience.IsRateLimited(err))
}

func TestExtractAsync(t *testing.T) {
	p := &llm.MockProvider{Response: `{"crop":"wheat","urgency":"medium","primary_category":"disease"}`}
	res, ok := <-New(p).ExtractAsync(context.Background(), "wheat brown spots")
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "wheat", res.Query.Crop)
	assert.Equal(t, model.CategoryDisease, res.Query.Category)

	_, open := <-New(p).ExtractAsync(context.Background(), "")
	assert.True(t, open)
}

func TestWithExemplars(t *testing.T) {
	p := &llm.MockProvider{Response: `{"crop":"okra"}`}
	svc := New(p, WithExemplars([]registry.Exemplar{{
		Input:  "okra fruit borer",
		Output: model.ExtractedQuery{Crop: "okra", Urgency: model.UrgencyHigh, Category: model.CategoryPest},
	}}))
	_, err := svc.Extract(context.Background(), "okra")
	require.NoError(t, err)
	system := p.Calls()[0].System
	assert.Contains(t, system, "Example 1:\nInput: okra fruit borer")
	assert.NotContains(t, system, "Example 2:")
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "extract: missing crop", (&Error{Reason: "missing crop"}).Error())
	inner := errors.New("boom")
	err := &Error{Reason: "upstream call failed", Err: inner}
	assert.Equal(t, "extract: upstream call failed: boom", err.Error())
	assert.ErrorIs(t, err, inner)
}
