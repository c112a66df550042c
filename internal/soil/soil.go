// Package soil selects crops and soil actions from a pH reading.
package soil

import "github.com/heidi04aldidi/NeuralThinkers-AgriTech-AI/internal/model"

const (
	acidicBelow   = 6.0
	alkalineAbove = 7.5
)

var bands = map[model.SoilBand]model.SoilRecommendation{
	model.SoilBandAcidic: {
		Band:             model.SoilBandAcidic,
		SuggestedCrops:   []string{"Blueberries", "Potatoes", "Sweet Potatoes"},
		SoilAnalysisNote: "Your soil is acidic. These crops thrive in lower pH levels.",
		ActionPlan: []string{
			"Apply agricultural lime to raise pH",
			"Monitor for nutrient deficiencies",
			"Add organic matter",
		},
	},
	model.SoilBandAlkaline: {
		Band:             model.SoilBandAlkaline,
		SuggestedCrops:   []string{"Asparagus", "Beets", "Cabbage"},
		SoilAnalysisNote: "Your soil is alkaline. Selecting salt-tolerant crops is recommended.",
		ActionPlan: []string{
			"Apply elemental sulfur",
			"Use acidifying fertilizers",
			"Ensure deep irrigation",
		},
	},
	model.SoilBandNeutral: {
		Band:             model.SoilBandNeutral,
		SuggestedCrops:   []string{"Rice", "Wheat", "Maize", "Tomatoes"},
		SoilAnalysisNote: "Your soil pH is optimal (Neutral). Most major crops will thrive here.",
		ActionPlan: []string{
			"Maintain current fertilization",
			"Monitor moisture during bloom",
			"Check for pests weekly",
		},
	},
}

// Band classifies a pH value. Unknown pH is neutral.
func Band(ph *float64) model.SoilBand {
	switch {
	case ph == nil:
		return model.SoilBandNeutral
	case *ph < acidicBelow:
		return model.SoilBandAcidic
	case *ph > alkalineAbove:
		return model.SoilBandAlkaline
	default:
		return model.SoilBandNeutral
	}
}

// Recommend returns the crops, note and actions for the pH band. The returned
// slices are copies; callers may modify them.
func Recommend(ph *float64) model.SoilRecommendation {
	rec := bands[Band(ph)]
	rec.SuggestedCrops = append([]string(nil), rec.SuggestedCrops...)
	rec.ActionPlan = append([]string(nil), rec.ActionPlan...)
	return rec
}
