package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/resilience"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/pkg/anthropic"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/pkg/gemini"
)

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestAnthropicProvider_Generate(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-sonnet-4-5-20250929" &&
			req.MaxTokens == 512 &&
			len(req.Messages) == 2 &&
			req.Messages[1].Role == "user" &&
			req.System == "be brief"
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "Use neem oil."}},
	}, nil)

	p := NewAnthropic(client, "claude-sonnet-4-5-20250929", 512)
	out, err := p.Generate(context.Background(), Request{
		System: "be brief",
		Messages: []model.Message{
			{Role: "assistant", Content: "hello"},
			{Role: "user", Content: "aphids"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Use neem oil.", out)
	assert.Equal(t, "anthropic", p.Name())
	client.AssertExpectations(t)
}

func TestAnthropicProvider_JSONModeAndOverrides(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "override" && req.MaxTokens == 64 &&
			assert.ObjectsAreEqual(0.1, *req.Temperature) &&
			len(req.System) > 0
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"crop":"rice"}`}},
	}, nil)

	p := NewAnthropic(client, "", 0)
	out, err := p.Generate(context.Background(), Request{
		Model:       "override",
		MaxTokens:   64,
		Temperature: Float(0.1),
		JSON:        true,
		Messages:    []model.Message{{Role: "user", Content: "rice blight"}},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"crop":"rice"}`, out)
}

func TestAnthropicProvider_ClassifiesErrors(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	p := NewAnthropic(client, "", 0)
	_, err := p.Generate(context.Background(), Request{Messages: []model.Message{{Role: "user", Content: "x"}}})
	require.Error(t, err)
	assert.True(t, resilience.IsUpstreamUnavailable(err))
	assert.False(t, resilience.IsRateLimited(err))
}

func TestAnthropicProvider_RateLimitOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
		})
	}))
	defer srv.Close()

	p := NewAnthropic(anthropic.NewClient("k", anthropic.WithBaseURL(srv.URL)), "", 0)
	_, err := p.Generate(context.Background(), Request{Messages: []model.Message{{Role: "user", Content: "x"}}})
	require.Error(t, err)
	assert.True(t, resilience.IsRateLimited(err))
}

func TestGeminiProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gemini.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be brief", req.Messages[0].Content)
		require.NotNil(t, req.ResponseFormat)
		require.NotNil(t, req.MaxTokens)
		assert.Equal(t, 256, *req.MaxTokens)
		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	p := NewGemini(gemini.NewClient("k", gemini.WithBaseURL(srv.URL)))
	out, err := p.Generate(context.Background(), Request{
		System:    "be brief",
		Messages:  []model.Message{{Role: "user", Content: "hi"}},
		MaxTokens: 256,
		JSON:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "gemini", p.Name())
}

func TestGeminiProvider_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
	}{
		{"quota", http.StatusTooManyRequests, `{"error":"quota"}`, true},
		{"resource_exhausted", http.StatusBadRequest, `{"status":"RESOURCE_EXHAUSTED"}`, true},
		{"auth", http.StatusUnauthorized, `{"error":"bad key"}`, false},
		{"server", http.StatusInternalServerError, `oops`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewGemini(gemini.NewClient("k", gemini.WithBaseURL(srv.URL)))
			_, err := p.Generate(context.Background(), Request{Messages: []model.Message{{Role: "user", Content: "x"}}})
			require.Error(t, err)
			assert.True(t, resilience.IsUpstreamUnavailable(err))
			assert.Equal(t, tt.rateLimited, resilience.IsRateLimited(err))
		})
	}
}

func TestMockProvider(t *testing.T) {
	m := &MockProvider{Response: "ok"}
	out, err := m.Generate(context.Background(), Request{System: "s"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "mock", m.Name())
	require.Len(t, m.Calls(), 1)
	assert.Equal(t, "s", m.Calls()[0].System)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Generate(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
