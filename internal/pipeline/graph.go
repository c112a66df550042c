package pipeline

import (
	"github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"
)

// Stage names, as recorded in the reasoning trace.
const (
	StageExtract  = "extract_keywords"
	StageValidate = "validate_input"
	StageWeather  = "weather_analysis"
	StageSoil     = "soil_analysis"
	StageGenerate = "generate_advice"
	StageEnd      = "end"
)

// Stages lists every stage in graph order.
func Stages() []string {
	return []string{StageExtract, StageValidate, StageWeather, StageSoil, StageGenerate}
}

// next returns the stage that follows stage for s. The only conditional edge
// skips soil analysis when nothing is known about the soil.
func next(stage string, s model.AdvisoryState) string {
	switch stage {
	case StageExtract:
		return StageValidate
	case StageValidate:
		return StageWeather
	case StageWeather:
		if s.SoilKnown() {
			return StageSoil
		}
		return StageGenerate
	case StageSoil:
		return StageGenerate
	default:
		return StageEnd
	}
}

// Route returns the stages a fresh run over s would execute, in order.
func Route(s model.AdvisoryState, from string) []string {
	var out []string
	for stage := from; stage != StageEnd; stage = next(stage, s) {
		out = append(out, stage)
	}
	return out
}
