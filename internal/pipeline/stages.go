package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/alert"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/extract"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/soil"
)

// stageFunc transforms the state and returns the trace detail for the stage.
type stageFunc func(ctx context.Context, s model.AdvisoryState) (model.AdvisoryState, string)

func (p *Pipeline) stage(name string) stageFunc {
	switch name {
	case StageExtract:
		return p.extractKeywords
	case StageValidate:
		return p.validateInput
	case StageWeather:
		return weatherAnalysis
	case StageSoil:
		return soilAnalysis
	case StageGenerate:
		return p.generateAdvice
	}
	return nil
}

func (p *Pipeline) extractKeywords(ctx context.Context, s model.AdvisoryState) (model.AdvisoryState, string) {
	q, err := p.extractor.Extract(ctx, s.Query)
	if err != nil {
		def := model.DefaultExtractedQuery()
		s.Extracted = &def

		reason := err.Error()
		var xe *extract.Error
		if errors.As(err, &xe) {
			reason = xe.Reason
		}
		zap.L().Info("pipeline: extraction fell back to default query",
			zap.String("session_id", s.SessionID),
			zap.String("reason", reason),
		)
		return s, "fallback to default query (" + reason + ")"
	}
	s.Extracted = &q
	return s, fmt.Sprintf("crop=%s category=%s urgency=%s", q.Crop, q.Category, q.Urgency)
}

func (p *Pipeline) validateInput(_ context.Context, s model.AdvisoryState) (model.AdvisoryState, string) {
	q := model.DefaultExtractedQuery()
	if s.Extracted != nil {
		q = *s.Extracted
	}
	v := p.validator.Validate(q, s.Query, s.Reading)
	s.Verdict = &v
	return s, fmt.Sprintf("consistent=%t safe=%t discrepancies=%d", v.IsConsistent, v.IsSafe, len(v.Discrepancies))
}

func weatherAnalysis(_ context.Context, s model.AdvisoryState) (model.AdvisoryState, string) {
	s.WeatherAlert = alert.Evaluate(s.Reading)
	if s.WeatherAlert == nil {
		return s, "no alert"
	}
	return s, *s.WeatherAlert
}

func soilAnalysis(_ context.Context, s model.AdvisoryState) (model.AdvisoryState, string) {
	rec := soil.Recommend(s.Reading.SoilPH)
	summary := rec.Summary()
	s.SoilRecommendation = &rec
	s.SoilAdvice = &summary
	return s, "band=" + string(rec.Band)
}

func (p *Pipeline) generateAdvice(ctx context.Context, s model.AdvisoryState) (model.AdvisoryState, string) {
	resp, report := p.advisor.GenerateWithReport(ctx, s)
	text := resp.Text()
	s.Response = &resp
	s.FinalAdvice = &text
	return s, report.Summary()
}
