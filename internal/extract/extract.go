// Package extract turns a farmer's free-text query into a typed
// model.ExtractedQuery using a generation provider and a fixed few-shot table.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/llm"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/registry"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/resilience"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/textutil"
)

const systemPrompt = `You are an expert agricultural entity extraction specialist.
Analyze the farmer's query and extract structured info into JSON.
Normalize all biological terms and use lowercase for consistency.

Return exactly one JSON object with these keys:
{"crop": string, "symptoms": [string], "pests": [string], "action_taken": string,
 "urgency": "low"|"medium"|"high"|"critical",
 "primary_category": "pest"|"disease"|"nutrient"|"irrigation"|"weather"}`

// Error reports that a query could not be turned into a valid record. The
// orchestrator substitutes model.DefaultExtractedQuery when it sees one.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Reason, e.Err)
	}
	return "extract: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Result is delivered by ExtractAsync.
type Result struct {
	Query model.ExtractedQuery
	Err   error
}

// Service extracts structured queries. A Service with a nil provider always
// fails with *Error, which keeps the pipeline on the default record.
type Service struct {
	provider llm.Provider
	model    string
	retry    resilience.RetryConfig
	system   string
}

// Option configures a Service.
type Option func(*Service)

// WithModel overrides the provider's model for extraction calls.
func WithModel(m string) Option {
	return func(s *Service) { s.model = m }
}

// WithRetry sets the retry policy for transient upstream failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) { s.retry = cfg }
}

// WithExemplars replaces the built-in few-shot table.
func WithExemplars(ex []registry.Exemplar) Option {
	return func(s *Service) { s.system = buildSystemPrompt(ex) }
}

// New creates an extraction service over provider.
func New(provider llm.Provider, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.system == "" {
		s.system = buildSystemPrompt(registry.Exemplars())
	}
	return s
}

// Extract calls the provider and coerces its reply into a valid record.
func (s *Service) Extract(ctx context.Context, query string) (model.ExtractedQuery, error) {
	if strings.TrimSpace(query) == "" {
		return model.ExtractedQuery{}, &Error{Reason: "empty query"}
	}
	if s.provider == nil {
		return model.ExtractedQuery{}, &Error{Reason: "no provider configured"}
	}

	retry := s.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(s.provider.Name(), "extract")
	}

	text, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return s.provider.Generate(ctx, llm.Request{
			System:      s.system,
			Messages:    []model.Message{{Role: "user", Content: "Query: " + query}},
			Model:       s.model,
			MaxTokens:   512,
			Temperature: llm.Float(0),
			JSON:        true,
		})
	})
	if err != nil {
		return model.ExtractedQuery{}, &Error{Reason: "upstream call failed", Err: err}
	}

	q, err := Parse(text)
	if err != nil {
		zap.L().Warn("extract: unusable model output",
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
		return model.ExtractedQuery{}, err
	}
	return q, nil
}

// ExtractAsync runs Extract on its own goroutine. The channel receives
// exactly one Result and is then closed.
func (s *Service) ExtractAsync(ctx context.Context, query string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		q, err := s.Extract(ctx, query)
		ch <- Result{Query: q, Err: err}
	}()
	return ch
}

// rawQuery accepts the loose shapes models produce before coercion.
type rawQuery struct {
	Crop        string     `json:"crop"`
	Symptoms    stringList `json:"symptoms"`
	Pests       stringList `json:"pests"`
	ActionTaken string     `json:"action_taken"`
	Urgency     string     `json:"urgency"`
	Category    string     `json:"primary_category"`
}

// stringList decodes either a JSON array of strings or a single string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	if one != "" {
		*l = []string{one}
	}
	return nil
}

// Parse decodes model output into a record: code fences are stripped, terms
// are lower-cased and trimmed, and unknown urgency or category values fall
// back to the defaults. A reply without a crop is an *Error.
func Parse(text string) (model.ExtractedQuery, error) {
	var raw rawQuery
	if err := json.Unmarshal([]byte(textutil.CleanJSON(text)), &raw); err != nil {
		return model.ExtractedQuery{}, &Error{Reason: "output is not valid JSON", Err: err}
	}

	crop := textutil.Normalize(raw.Crop)
	if crop == "" {
		return model.ExtractedQuery{}, &Error{Reason: "missing crop"}
	}

	def := model.DefaultExtractedQuery()
	q := model.ExtractedQuery{
		Crop:        crop,
		Symptoms:    normalizeTerms(raw.Symptoms),
		Pests:       normalizeTerms(raw.Pests),
		ActionTaken: textutil.Normalize(raw.ActionTaken),
		Urgency:     model.Urgency(textutil.Normalize(raw.Urgency)),
		Category:    model.Category(textutil.Normalize(raw.Category)),
	}
	if !q.Urgency.Valid() {
		q.Urgency = def.Urgency
	}
	if !q.Category.Valid() {
		q.Category = def.Category
	}
	return q, nil
}

func normalizeTerms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		n := textutil.Normalize(t)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func buildSystemPrompt(exemplars []registry.Exemplar) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	if len(exemplars) == 0 {
		return b.String()
	}
	b.WriteString("\n\nHere are examples of correct extractions:")
	for i, ex := range exemplars {
		out, err := json.Marshal(ex.Output)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n\nExample %d:\nInput: %s\nOutput: %s", i+1, ex.Input, out)
	}
	return b.String()
}
