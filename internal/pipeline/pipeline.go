// Package pipeline runs the advisory graph: extraction, validation, weather
// and soil analysis, then advice generation, over a single AdvisoryState.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/advice"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/store"
)

// Extractor pulls a typed query out of free text.
type Extractor interface {
	Extract(ctx context.Context, query string) (model.ExtractedQuery, error)
}

// Validator checks a query against the live reading.
type Validator interface {
	Validate(q model.ExtractedQuery, text string, r model.EnvironmentalReading) model.ValidationVerdict
}

// Advisor produces the final answer. *advice.Chain satisfies it.
type Advisor interface {
	GenerateWithReport(ctx context.Context, s model.AdvisoryState) (model.AdviceResponse, advice.Report)
}

// Pipeline orchestrates one advisory turn.
type Pipeline struct {
	extractor Extractor
	validator Validator
	advisor   Advisor
	store     store.Store
	tracer    trace.Tracer
	newID     func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore enables session checkpoints. A nil store disables them.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// New creates a Pipeline with all dependencies.
func New(ex Extractor, v Validator, adv Advisor, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: ex,
		validator: v,
		advisor:   adv,
		tracer:    otel.Tracer("agri-advisor/pipeline"),
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes one turn. It fails only when ctx is done or a checkpoint
// cannot be loaded; every other problem is absorbed into the response.
func (p *Pipeline) Run(ctx context.Context, req model.Request) (*model.Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	state, start, err := p.initialState(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("session_id", state.SessionID),
		attribute.String("start_stage", start),
	)

	final, err := p.runGraph(ctx, state, start)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	final.UpdatedAt = time.Now().UTC()

	p.saveCheckpoint(ctx, final)

	res := &model.Result{
		SessionID:      final.SessionID,
		ReasoningTrace: final.ReasoningTrace,
	}
	if final.Response != nil {
		res.Response = *final.Response
	}
	return res, nil
}

// runGraph walks the graph from start until the end node, appending one trace
// entry per executed stage.
func (p *Pipeline) runGraph(ctx context.Context, s model.AdvisoryState, start string) (model.AdvisoryState, error) {
	log := zap.L().With(zap.String("session_id", s.SessionID))

	for stage := start; stage != StageEnd; stage = next(stage, s) {
		if err := ctx.Err(); err != nil {
			return s, eris.Wrapf(err, "pipeline: before %s", stage)
		}
		fn := p.stage(stage)
		if fn == nil {
			return s, eris.Errorf("pipeline: unknown stage %q", stage)
		}

		sctx, span := p.tracer.Start(ctx, "pipeline."+stage)
		began := time.Now()
		updated, detail := fn(sctx, s)
		duration := time.Since(began).Milliseconds()
		span.SetAttributes(attribute.String("detail", detail), attribute.Int64("duration_ms", duration))
		span.End()

		s = updated.WithTrace(stage, detail)
		log.Info("pipeline: stage complete",
			zap.String("stage", stage),
			zap.Int64("duration_ms", duration),
		)
	}
	return s, nil
}
